package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/lumoraenergy/lumora/internal/projection"
	"github.com/lumoraenergy/lumora/pkg/testutil"
	"gopkg.in/yaml.v3"
)

func mumbaiProjection(t *testing.T) projection.Projection {
	return testutil.MustCompute(t, projection.Mumbai, 2500, projection.Flat)
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := PrettyFormat(&buf, mumbaiProjection(t)); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Solar savings projection: Mumbai, ₹2,500/month, Flat roof",
		"2.5 kW",
		"₹1,37,500",
		"₹69,000",
		"₹68,500",
		"2.3 years",
		"Excellent Investment Potential",
		"Year | Yearly savings | Cumulative savings",
		"₹30,000",
		"₹60,900",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyFormat missing %q in:\n%s", want, output)
		}
	}
	if strings.Contains(output, OversizedNote) {
		t.Errorf("PrettyFormat should not print the oversize note for a 2.5 kW system")
	}
}

func TestPrettyFormatOversizedNote(t *testing.T) {
	tests := []struct {
		name     string
		city     projection.City
		bill     float64
		roof     projection.RoofType
		size     string
		oversize bool
	}{
		{"Rounded up to one kilowatt", projection.Delhi, 600, projection.Sloped, "1.0 kW", true},
		{"Rounded up past the threshold", projection.Mumbai, 900, projection.Flat, "1.5 kW", true},
		{"Rounded within the threshold", projection.Mumbai, 2500, projection.Flat, "2.5 kW", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.MustCompute(t, tt.city, tt.bill, tt.roof)
			if p.Oversized != tt.oversize {
				t.Fatalf("Oversized = %v, expected %v (raw %.3f kW)", p.Oversized, tt.oversize, p.RawSystemSizeKW)
			}

			var buf bytes.Buffer
			if err := PrettyFormat(&buf, p); err != nil {
				t.Fatalf("PrettyFormat() error = %v", err)
			}
			output := buf.String()
			if !strings.Contains(output, tt.size) {
				t.Errorf("expected recommended size %s, got:\n%s", tt.size, output)
			}
			if strings.Contains(output, OversizedNote) != tt.oversize {
				t.Errorf("oversize note present = %v, expected %v:\n%s", !tt.oversize, tt.oversize, output)
			}
			if strings.Contains(output, "minimum") {
				t.Errorf("note should not blame the minimum system size:\n%s", output)
			}
		})
	}
}

func TestCsvFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, mumbaiProjection(t)); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	if len(lines) != 26 {
		t.Fatalf("expected header plus 25 rows, got %d lines", len(lines))
	}
	if lines[0] != "year,yearly savings,cumulative savings,net of cost" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "1,30000,30000,-38500" {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if lines[2] != "2,30900,60900,-7600" {
		t.Errorf("unexpected second row %q", lines[2])
	}
	p := mumbaiProjection(t)
	last := testutil.FindYear(p.Years, 25)
	if last == nil {
		t.Fatal("expected year 25 in the schedule")
	}
	want := fmt.Sprintf("25,%.0f,%.0f,%.0f", last.YearlySavings, last.CumulativeSavings, last.CumulativeSavings-p.FinalCost)
	if lines[25] != want {
		t.Errorf("last row = %q, expected %q", lines[25], want)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONFormat(&buf, mumbaiProjection(t)); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded["systemSizeKW"] != 2.5 {
		t.Errorf("expected systemSizeKW 2.5, got %v", decoded["systemSizeKW"])
	}
}

func TestYAMLFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := YAMLFormat(&buf, mumbaiProjection(t)); err != nil {
		t.Fatalf("YAMLFormat() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML output: %v", err)
	}
	if decoded["city"] != "Mumbai" {
		t.Errorf("expected city Mumbai, got %v", decoded["city"])
	}
	if !strings.Contains(buf.String(), "finalCost: 68500") {
		t.Errorf("expected camelCase keys, got:\n%s", buf.String())
	}
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "xml", mumbaiProjection(t)); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if err := Write(&buf, "", mumbaiProjection(t)); err != nil {
		t.Fatalf("empty format should default to pretty, got %v", err)
	}
}
