package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lumoraenergy/lumora/pkg/constants"
)

func TestLoadConfigurationDefaultsWhenMissing(t *testing.T) {
	conf, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Server.Address != constants.DefaultServerAddress {
		t.Errorf("expected default address, got %q", conf.Server.Address)
	}
	if conf.Server.MaxUploadSize != "5M" {
		t.Errorf("expected default upload size 5M, got %q", conf.Server.MaxUploadSize)
	}
	if conf.Storage.Bucket != constants.DefaultImageBucket {
		t.Errorf("expected default bucket, got %q", conf.Storage.Bucket)
	}
	if conf.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected default token TTL 24h, got %v", conf.Auth.TokenTTL)
	}
	if conf.RateLimit.Window != time.Minute {
		t.Errorf("expected default rate limit window 1m, got %v", conf.RateLimit.Window)
	}
	if conf.Calculator.LogQueueSize != 256 {
		t.Errorf("expected default log queue size 256, got %d", conf.Calculator.LogQueueSize)
	}
	if conf.Logging.Level != "" || conf.Logging.Format != "" || conf.Logging.OutputFile != "" {
		t.Errorf("expected empty logging defaults, got %+v", conf.Logging)
	}
}

func TestLoadConfigurationFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte(`server:
  address: 127.0.0.1:9000
  maxUploadSize: 2M
  readTimeout: 5s
database:
  url: postgres://lumora:secret@db:5432/lumora?sslmode=disable
  maxOpenConns: 20
storage:
  endpoint: minio:9000
  bucket: showcase
  useSSL: true
auth:
  jwtSecret: s3cr3t
  tokenTTL: 2h
rateLimit:
  redisURL: redis://cache:6379/0
  requests: 3
  window: 30s
calculator:
  logTimeout: 2s
logging:
  level: debug
  format: console
output:
  format: csv
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Server.Address != "127.0.0.1:9000" {
		t.Errorf("expected address override, got %s", conf.Server.Address)
	}
	if conf.Server.MaxUploadSize != "2M" {
		t.Errorf("expected max upload override, got %s", conf.Server.MaxUploadSize)
	}
	if conf.Server.ReadTimeout != 5*time.Second {
		t.Errorf("expected read timeout 5s, got %v", conf.Server.ReadTimeout)
	}
	if conf.Server.WriteTimeout != 30*time.Second {
		t.Errorf("expected default write timeout to survive partial section, got %v", conf.Server.WriteTimeout)
	}
	if conf.Database.MaxOpenConns != 20 {
		t.Errorf("expected maxOpenConns 20, got %d", conf.Database.MaxOpenConns)
	}
	if !conf.Storage.UseSSL || conf.Storage.Bucket != "showcase" {
		t.Errorf("unexpected storage config %+v", conf.Storage)
	}
	if conf.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("expected token TTL 2h, got %v", conf.Auth.TokenTTL)
	}
	if conf.RateLimit.Requests != 3 || conf.RateLimit.Window != 30*time.Second {
		t.Errorf("unexpected rate limit config %+v", conf.RateLimit)
	}
	if conf.Calculator.LogTimeout != 2*time.Second {
		t.Errorf("expected log timeout 2s, got %v", conf.Calculator.LogTimeout)
	}
	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" {
		t.Errorf("unexpected logging config %+v", conf.Logging)
	}
	if conf.Output.Format != constants.OutputFormatCSV {
		t.Errorf("expected output format csv, got %s", conf.Output.Format)
	}
}

func TestLoadConfigurationEnvironmentOverride(t *testing.T) {
	t.Setenv("LUMORA_DATABASE_URL", "postgres://env-host/lumora")
	t.Setenv("LUMORA_AUTH_JWTSECRET", "from-env")

	conf, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Database.URL != "postgres://env-host/lumora" {
		t.Errorf("expected database URL from environment, got %q", conf.Database.URL)
	}
	if conf.Auth.JWTSecret != "from-env" {
		t.Errorf("expected JWT secret from environment, got %q", conf.Auth.JWTSecret)
	}
}

func TestLoadConfigurationInvalidYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	if _, err := LoadConfiguration(path); err == nil {
		t.Fatal("expected error for invalid YAML but got nil")
	}
}

func TestLoadConfigurationFromReader(t *testing.T) {
	conf, err := LoadConfigurationFromReader(strings.NewReader("server:\n  address: :9999\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if conf.Server.Address != ":9999" {
		t.Errorf("expected address :9999, got %s", conf.Server.Address)
	}
	if conf.Auth.Issuer != constants.DefaultTokenIssuer {
		t.Errorf("expected default issuer, got %s", conf.Auth.Issuer)
	}
}

func TestValidateConfiguration(t *testing.T) {
	conf, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	warnings := conf.ValidateConfiguration()
	expectContains := []string{"auth.jwtSecret", "database.url", "storage.endpoint", "rateLimit.redisURL"}
	for _, key := range expectContains {
		found := false
		for _, w := range warnings {
			if strings.Contains(w, key) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected a warning mentioning %s, got %v", key, warnings)
		}
	}

	conf.Auth.JWTSecret = "production-secret"
	conf.Database.URL = "postgres://db/lumora"
	conf.Storage.Endpoint = "minio:9000"
	conf.RateLimit.RedisURL = "redis://cache:6379"
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("expected no warnings for a complete config, got %v", warnings)
	}
}

func TestExampleConfigurationLoads(t *testing.T) {
	conf, err := LoadConfiguration(filepath.Join("..", "..", constants.ExampleConfigFile))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Database.URL == "" || conf.Storage.Endpoint == "" || conf.RateLimit.RedisURL == "" {
		t.Errorf("expected the example to configure every backend, got %+v", conf)
	}
	if conf.RateLimit.Window != time.Minute {
		t.Errorf("expected 1m window, got %v", conf.RateLimit.Window)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("expected no warnings for the example, got %v", warnings)
	}
}
