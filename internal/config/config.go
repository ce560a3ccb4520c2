package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// PostgREST
	PostgRESTURL    string
	PostgRESTAPIKey string

	// Direct Postgres
	DatabaseURL string

	// SQLite mirror
	SQLiteDBPath string

	// Memory backend seed files
	SeedDir string

	// Periodic refresh of a SQLite mirror by the worker. Zero interval
	// disables it.
	MirrorDBPath   string
	MirrorInterval time.Duration

	// Reports
	FetchTimeout   time.Duration
	ReportCacheTTL time.Duration
	AgingPageSize  int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export targets
	ExportDir           string
	GoogleSpreadsheetID string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends   = []string{"postgrest", "postgres", "sqlite", "memory"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		PostgRESTURL:    getEnv("POSTGREST_URL", ""),
		PostgRESTAPIKey: getEnv("POSTGREST_API_KEY", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		SeedDir:         getEnv("SEED_DIR", "data"),

		MirrorDBPath:   getEnv("MIRROR_DB_PATH", ""),
		MirrorInterval: getEnvDuration("MIRROR_INTERVAL", 0),

		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", 30*time.Second),
		AgingPageSize:  getEnvInt("AGING_PAGE_SIZE", 10),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_reports"),

		ExportDir:           getEnv("EXPORT_DIR", "./exports"),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "postgrest":
		if c.PostgRESTURL == "" {
			errors = append(errors, "POSTGREST_URL is required when using postgrest backend")
		} else if u, err := url.Parse(c.PostgRESTURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid PostgREST URL '%s': %v", c.PostgRESTURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid PostgREST URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.MirrorInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must not be negative", c.MirrorInterval))
	} else if c.MirrorInterval > 0 {
		switch {
		case c.MirrorDBPath == "":
			errors = append(errors, "MIRROR_DB_PATH is required when MIRROR_INTERVAL is set")
		case c.DataBackend == "sqlite" && filepath.Clean(c.MirrorDBPath) == filepath.Clean(c.SQLiteDBPath):
			errors = append(errors, "MIRROR_DB_PATH must differ from SQLITE_DB_PATH when reading from the sqlite backend")
		}
	}

	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	} else if c.FetchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 5 minutes", c.FetchTimeout))
	}

	if c.ReportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must not be negative", c.ReportCacheTTL))
	}

	if c.AgingPageSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid aging page size %d: must be at least 1", c.AgingPageSize))
	} else if c.AgingPageSize > 500 {
		errors = append(errors, fmt.Sprintf("invalid aging page size %d: must be at most 500", c.AgingPageSize))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// MirrorEnabled reports whether the worker refreshes a SQLite mirror.
func (c *Config) MirrorEnabled() bool {
	return c.MirrorInterval > 0 && c.MirrorDBPath != ""
}

// SheetsEnabled reports whether exports may target Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
