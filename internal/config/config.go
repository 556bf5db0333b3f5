// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/lumoraenergy/lumora/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for lumora.
type Configuration struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rateLimit" yaml:"rateLimit"`
	Calculator CalculatorConfig `mapstructure:"calculator" yaml:"calculator"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging,omitempty"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output,omitempty"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	MaxUploadSize   string        `mapstructure:"maxUploadSize" yaml:"maxUploadSize"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" yaml:"url"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime" yaml:"connMaxLifetime"`
}

// StorageConfig holds the S3-compatible object store settings for project images.
type StorageConfig struct {
	Endpoint      string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey     string `mapstructure:"accessKey" yaml:"accessKey"`
	SecretKey     string `mapstructure:"secretKey" yaml:"secretKey"`
	Bucket        string `mapstructure:"bucket" yaml:"bucket"`
	UseSSL        bool   `mapstructure:"useSSL" yaml:"useSSL"`
	PublicBaseURL string `mapstructure:"publicBaseURL" yaml:"publicBaseURL"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret" yaml:"jwtSecret"`
	TokenTTL  time.Duration `mapstructure:"tokenTTL" yaml:"tokenTTL"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
}

// RateLimitConfig throttles the public form endpoints.
type RateLimitConfig struct {
	RedisURL string        `mapstructure:"redisURL" yaml:"redisURL"`
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

// CalculatorConfig controls persistence of calculator runs.
type CalculatorConfig struct {
	LogTimeout   time.Duration `mapstructure:"logTimeout" yaml:"logTimeout"`
	LogQueueSize int           `mapstructure:"logQueueSize" yaml:"logQueueSize"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, json, yaml
}

// setDefaults registers every key so environment overrides apply even when
// the file omits a section.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxUploadSize", "5M")
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 30*time.Minute)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accessKey", "")
	v.SetDefault("storage.secretKey", "")
	v.SetDefault("storage.bucket", constants.DefaultImageBucket)
	v.SetDefault("storage.useSSL", false)
	v.SetDefault("storage.publicBaseURL", "")

	v.SetDefault("auth.jwtSecret", constants.DefaultJWTSecret)
	v.SetDefault("auth.tokenTTL", 24*time.Hour)
	v.SetDefault("auth.issuer", constants.DefaultTokenIssuer)

	v.SetDefault("rateLimit.redisURL", "")
	v.SetDefault("rateLimit.requests", constants.DefaultRateLimitRequests)
	v.SetDefault("rateLimit.window", time.Minute)

	v.SetDefault("calculator.logTimeout", 5*time.Second)
	v.SetDefault("calculator.logQueueSize", 256)

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")

	v.SetDefault("output.format", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A missing file yields the defaults plus any
// LUMORA_* environment overrides.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file, %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from the provided reader.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == constants.DefaultJWTSecret {
		warnings = append(warnings, "auth.jwtSecret is unset or uses the development default")
	}
	if c.Database.URL == "" {
		warnings = append(warnings, "database.url is empty; the server cannot persist leads, projects or calculator logs")
	}
	if c.Storage.Endpoint == "" {
		warnings = append(warnings, "storage.endpoint is empty; project image uploads are disabled")
	}
	if c.RateLimit.RedisURL == "" {
		warnings = append(warnings, "rateLimit.redisURL is empty; using per-process in-memory rate limiting")
	}
	if c.RateLimit.Requests <= 0 {
		warnings = append(warnings, "rateLimit.requests is not positive; public form rate limiting is disabled")
	}
	if c.Calculator.LogQueueSize <= 0 {
		warnings = append(warnings, "calculator.logQueueSize is not positive; calculator runs will not be persisted")
	}

	return warnings
}
