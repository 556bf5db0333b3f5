package server

import (
	"testing"
	"time"

	"github.com/lumoraenergy/lumora/internal/config"
	"github.com/lumoraenergy/lumora/pkg/constants"
)

func TestNewSettingsDefaults(t *testing.T) {
	s, err := NewSettings(config.ServerConfig{})
	if err != nil {
		t.Fatalf("NewSettings() error = %v", err)
	}

	if s.Address != constants.DefaultServerAddress {
		t.Fatalf("expected default address, got %q", s.Address)
	}
	if s.UploadSizeBytes != constants.DefaultMaxUploadSizeBytes {
		t.Fatalf("expected default max upload size, got %d", s.UploadSizeBytes)
	}
	if s.ReadTimeout != 15*time.Second || s.WriteTimeout != 30*time.Second || s.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected default timeouts %+v", s)
	}
}

func TestNewSettingsOverrides(t *testing.T) {
	s, err := NewSettings(config.ServerConfig{
		Address:         "127.0.0.1:9000",
		MaxUploadSize:   "2M",
		ReadTimeout:     time.Second,
		WriteTimeout:    2 * time.Second,
		ShutdownTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSettings() error = %v", err)
	}

	if s.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address override, got %s", s.Address)
	}
	if s.UploadSizeBytes != 2*1024*1024 {
		t.Fatalf("expected max upload override, got %d", s.UploadSizeBytes)
	}
	if s.ReadTimeout != time.Second || s.WriteTimeout != 2*time.Second || s.ShutdownTimeout != 3*time.Second {
		t.Fatalf("unexpected timeouts %+v", s)
	}
}

func TestNewSettingsInvalidSize(t *testing.T) {
	if _, err := NewSettings(config.ServerConfig{MaxUploadSize: "invalid"}); err == nil {
		t.Fatal("expected error for invalid size but got nil")
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxUploadSizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"5MiB":      5 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	for _, bad := range []string{"1TB", "abc", "99999999999999G"} {
		if _, err := ParseSize(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
