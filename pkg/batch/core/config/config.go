// Package config provides the configuration structures of dayche and their defaults.
package config

import "time"

// EmbeddedConfig holds the content of a configuration file compiled into the binary.
type EmbeddedConfig []byte

// RetryConfig holds configuration for retrying remote calls.
type RetryConfig struct {
	MaxAttempts     int     `yaml:"max_attempts"`     // MaxAttempts is the maximum number of attempts, including the first one.
	InitialInterval int     `yaml:"initial_interval"` // InitialInterval is the first backoff interval in milliseconds.
	MaxInterval     int     `yaml:"max_interval"`     // MaxInterval caps the backoff interval in milliseconds.
	Factor          float64 `yaml:"factor"`           // Factor multiplies the interval after every attempt.
}

// APIConfig holds settings of the quote API.
type APIConfig struct {
	URL            string      `yaml:"url"`
	Key            string      `yaml:"key"`
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	Retry          RetryConfig `yaml:"retry"`
}

// Timeout returns the HTTP timeout as a time.Duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
	// Dir is the directory log files are written to. Empty disables file logging.
	Dir string `yaml:"dir"`
	// Prefix is substituted for {prefix} in NamePattern.
	Prefix string `yaml:"prefix"`
	// NamePattern is the log file name pattern, e.g. "{prefix}_{run_id}_{pid}.log".
	NamePattern string `yaml:"name_pattern"`
	// KeepDays is the age after which log files are removed on startup. Zero disables cleanup.
	KeepDays int `yaml:"keep_days"`
	// Console also writes log lines to stderr when file logging is enabled.
	Console bool `yaml:"console"`
}

// SchemaConfig holds settings of the schema batch applier.
type SchemaConfig struct {
	Connection             string `yaml:"connection"`
	File                   string `yaml:"file"`
	Separator              string `yaml:"separator"`
	Encoding               string `yaml:"encoding"`
	StopOnError            bool   `yaml:"stop_on_error"`
	CommitOnPartialFailure bool   `yaml:"commit_on_partial_failure"`
}

// MigrationConfig holds settings of versioned migrations.
type MigrationConfig struct {
	Connection string `yaml:"connection"`
	Dir        string `yaml:"dir"`
	Table      string `yaml:"table"`
}

// IngestConfig holds settings of quote ingestion.
type IngestConfig struct {
	Connection      string   `yaml:"connection"`
	Symbols         []string `yaml:"symbols"`
	Timezone        string   `yaml:"timezone"`
	IntervalSeconds int      `yaml:"interval_seconds"`
	LookbackDays    int      `yaml:"lookback_days"`
	// SkipLimit is the number of malformed API rows tolerated per run. Zero fails on the first one.
	SkipLimit int `yaml:"skip_limit"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Textfile is a path the registry is written to after each run (node_exporter textfile collector format).
	Textfile string `yaml:"textfile"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// ExportConfig holds settings of the Parquet export.
type ExportConfig struct {
	Connection  string `yaml:"connection"`
	BaseDir     string `yaml:"base_dir"`
	Compression string `yaml:"compression"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Database holds named database connections. Each entry is bound to a
	// dbconfig.DatabaseConfig by the database adapter.
	Database  map[string]interface{} `yaml:"database"`
	API       APIConfig              `yaml:"api"`
	Logging   LoggingConfig          `yaml:"logging"`
	Schema    SchemaConfig           `yaml:"schema"`
	Migration MigrationConfig        `yaml:"migration"`
	Ingest    IngestConfig           `yaml:"ingest"`
	Metrics   MetricsConfig          `yaml:"metrics"`
	Tracing   TracingConfig          `yaml:"tracing"`
	Export    ExportConfig           `yaml:"export"`
}

// DefaultConnection is the database entry used when a component names none.
const DefaultConnection = "default"

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Database: map[string]interface{}{},
		API: APIConfig{
			URL:            "https://financialmodelingprep.com",
			TimeoutSeconds: 10,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 500,
				MaxInterval:     5000,
				Factor:          2.0,
			},
		},
		Logging: LoggingConfig{
			Level:       "INFO",
			Prefix:      "dayche",
			NamePattern: "{prefix}_{run_id}_{pid}.log",
			KeepDays:    14,
		},
		Schema: SchemaConfig{
			Connection:  DefaultConnection,
			Separator:   "GO",
			Encoding:    "utf-8",
			StopOnError: true,
		},
		Migration: MigrationConfig{
			Connection: DefaultConnection,
			Table:      "schema_migrations",
		},
		Ingest: IngestConfig{
			Connection:      DefaultConnection,
			Timezone:        "UTC",
			IntervalSeconds: 60,
			LookbackDays:    30,
			SkipLimit:       10,
		},
		Tracing: TracingConfig{
			ServiceName: "dayche",
		},
		Export: ExportConfig{
			Connection:  DefaultConnection,
			BaseDir:     "exports",
			Compression: "SNAPPY",
		},
	}
}
