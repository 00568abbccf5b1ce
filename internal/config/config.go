package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Remote parser boundary. Empty RemoteParserURL means local-only
	// extraction.
	RemoteParserURL string
	RemoteTimeout   time.Duration

	// Database connection for the statement statistics source. Optional:
	// without it the database_lineage tool is not registered.
	DatabaseURL    string
	StatementLimit int

	// Catalog annotation.
	CatalogFile string // optional path to catalog YAML

	// Logging.
	LogLevel slog.Level

	// Transport.
	Transport       string // "stdio" (default) or "http"
	HTTPAddr        string // listen address for HTTP transport (default ":8080")
	HTTPBearerToken string // required when transport=http

	// Observability.
	OTelEnabled bool // enable OpenTelemetry tracing and metrics

	// CLI-only fields (not settable via env vars).
	AuditLog string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	RemoteParserURL *string
	RemoteTimeout   *time.Duration
	DatabaseURL     *string
	StatementLimit  *int
	CatalogFile     *string
	LogLevel        *string
	Transport       *string
	HTTPAddr        *string
	HTTPBearerToken *string
	OTelEnabled     *bool
	AuditLog        *string
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		RemoteParserURL: os.Getenv("REMOTE_PARSER_URL"),
		RemoteTimeout:   5 * time.Second,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StatementLimit:  25,
		Transport:       "stdio",
		HTTPAddr:        ":8080",
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("REMOTE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REMOTE_TIMEOUT value %q: %w", v, err)
		}
		cfg.RemoteTimeout = d
	}

	if v := os.Getenv("STATEMENT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid STATEMENT_LIMIT value %q: must be a positive integer", v)
		}
		cfg.StatementLimit = n
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	cfg.CatalogFile = os.Getenv("CATALOG_FILE")

	if v := os.Getenv("TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.HTTPBearerToken = os.Getenv("HTTP_BEARER_TOKEN")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.RemoteParserURL != nil {
		cfg.RemoteParserURL = *o.RemoteParserURL
	}
	if o.RemoteTimeout != nil {
		cfg.RemoteTimeout = *o.RemoteTimeout
	}
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.StatementLimit != nil {
		if *o.StatementLimit <= 0 {
			return fmt.Errorf("invalid --statement-limit value: must be a positive integer")
		}
		cfg.StatementLimit = *o.StatementLimit
	}
	if o.CatalogFile != nil {
		cfg.CatalogFile = *o.CatalogFile
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearerToken != nil {
		cfg.HTTPBearerToken = *o.HTTPBearerToken
	}

	if o.OTelEnabled != nil {
		cfg.OTelEnabled = *o.OTelEnabled
	}
	if o.AuditLog != nil {
		cfg.AuditLog = *o.AuditLog
	}

	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	switch cfg.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid TRANSPORT value %q: must be \"stdio\" or \"http\"", cfg.Transport)
	}

	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("HTTP_BEARER_TOKEN is required when transport is \"http\" (set via env var or --http-bearer-token flag)")
	}

	if cfg.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive")
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
