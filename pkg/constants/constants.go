// Package constants provides shared constants for the lumora application.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 paisa)
	CurrencyTolerance = 0.01
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// EnvPrefix prefixes every environment override, e.g. LUMORA_DATABASE_URL
	EnvPrefix = "LUMORA"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum project image upload size (5 MB)
	DefaultMaxUploadSizeBytes int64 = 5 * 1024 * 1024

	// DefaultMaxBodyBytes caps JSON request bodies (64 KB)
	DefaultMaxBodyBytes int64 = 64 * 1024
)

// Storage defaults
const (
	// DefaultImageBucket is the bucket holding project showcase images
	DefaultImageBucket = "project-images"

	// ProjectImagePrefix is the object key prefix for project images
	ProjectImagePrefix = "projects"
)

// Auth defaults
const (
	// DefaultJWTSecret is only suitable for local development
	DefaultJWTSecret = "change-me-in-production"

	// DefaultTokenIssuer is the issuer claim for session tokens
	DefaultTokenIssuer = "lumora"

	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8
)

// Lead capture limits
const (
	// MaxLeadMessageLength caps the free-text quote request message
	MaxLeadMessageLength = 2000

	// DefaultRateLimitRequests is the number of public form submissions allowed per window
	DefaultRateLimitRequests = 10
)
