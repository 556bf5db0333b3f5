// Package output provides utilities for formatting and displaying projection results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lumoraenergy/lumora/internal/projection"
	"github.com/lumoraenergy/lumora/pkg/constants"
	"github.com/lumoraenergy/lumora/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// OversizedNote flags a recommended size rounded well above the raw estimate.
const OversizedNote = "Note: slightly oversized to ensure seasonal reliability"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Width(22)
)

// Write renders the projection in the requested format.
func Write(w io.Writer, outputFormat string, p projection.Projection) error {
	switch outputFormat {
	case constants.OutputFormatPretty, "":
		return PrettyFormat(w, p)
	case constants.OutputFormatCSV:
		return CsvFormat(w, p)
	case constants.OutputFormatJSON:
		return JSONFormat(w, p)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, p)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// PrettyFormat outputs a human-readable summary followed by the yearly table.
func PrettyFormat(w io.Writer, p projection.Projection) error {
	printer := message.NewPrinter(language.English)

	title := fmt.Sprintf("Solar savings projection: %s, %s/month, %s roof",
		p.City, format.Rupees(p.MonthlyBill), p.RoofType)

	rows := [][2]string{
		{"Recommended system", format.Kilowatts(p.SystemSizeKW)},
		{"Monthly generation", printer.Sprintf("%.1f kWh", p.MonthlyGeneration)},
		{"Installation cost", format.Rupees(p.InstallationCost)},
		{"Subsidy", format.Rupees(p.Subsidy)},
		{"Net cost", format.Rupees(p.FinalCost)},
		{"Monthly savings", format.Rupees(p.MonthlySavings)},
		{"Annual savings", format.Rupees(p.AnnualSavings)},
		{"New monthly bill", format.Rupees(p.NewMonthlyBill)},
		{"Payback", format.Years(p.PaybackYears)},
		{"Rating", p.Rating.Label},
		{"25-year net savings", format.Rupees(p.NetSavings25Years)},
	}
	lines := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row[0])+row[1])
	}
	if p.Oversized {
		lines = append(lines, OversizedNote)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(summaryStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")
	b.WriteString("Year | Yearly savings | Cumulative savings\n")
	b.WriteString("____ | ______________ | __________________\n")
	for _, year := range p.Years {
		b.WriteString(fmt.Sprintf("%4d | %14s | %18s\n",
			year.Year, format.Rupees(year.YearlySavings), format.Rupees(year.CumulativeSavings)))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// CsvFormat outputs the yearly schedule in comma-separated value format.
func CsvFormat(w io.Writer, p projection.Projection) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"year", "yearly savings", "cumulative savings", "net of cost"}); err != nil {
		return err
	}
	for _, year := range p.Years {
		record := []string{
			strconv.Itoa(year.Year),
			strconv.FormatFloat(year.YearlySavings, 'f', 0, 64),
			strconv.FormatFloat(year.CumulativeSavings, 'f', 0, 64),
			strconv.FormatFloat(year.CumulativeSavings-p.FinalCost, 'f', 0, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// JSONFormat outputs the full projection as indented JSON.
func JSONFormat(w io.Writer, p projection.Projection) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(p)
}

// YAMLFormat outputs the full projection as YAML using the JSON field names.
func YAMLFormat(w io.Writer, p projection.Projection) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var generic map[string]interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return err
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return err
	}
	return encoder.Close()
}
