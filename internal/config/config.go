package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	DefaultLocale      string

	// Database
	SQLiteDBPath string

	// AMQP (optional for the API, required by the worker)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger export
	LedgerBackend            string
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	LedgerSyncBatchSize      int
	LedgerSyncInterval       time.Duration

	// Goal cache
	GoalCacheSize int
	GoalCacheTTL  time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "fr"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/wishbudget.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "wishbudget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_changed"),

		LedgerBackend:            getEnv("LEDGER_BACKEND", "memory"),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		LedgerSyncBatchSize:      getEnvInt("LEDGER_SYNC_BATCH_SIZE", 10),
		LedgerSyncInterval:       getEnvDuration("LEDGER_SYNC_INTERVAL", 30*time.Second),

		GoalCacheSize: getEnvInt("GOAL_CACHE_SIZE", 256),
		GoalCacheTTL:  getEnvDuration("GOAL_CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// SlogLevel maps LogLevel onto a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
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

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.DefaultLocale != "fr" && c.DefaultLocale != "en" {
		errors = append(errors, fmt.Sprintf("invalid default locale '%s': must be 'fr' or 'en'", c.DefaultLocale))
	}

	// Validate SQLite configuration
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	// Validate ledger backend
	validBackends := []string{"memory", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.LedgerBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	// Validate Google Sheets configuration if backend is sheets
	if c.LedgerBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets ledger backend")
		}

		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets ledger backend")
		}

		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate ledger sync configuration
	if c.LedgerSyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid ledger sync batch size %d: must be at least 1", c.LedgerSyncBatchSize))
	} else if c.LedgerSyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid ledger sync batch size %d: must be at most 1000", c.LedgerSyncBatchSize))
	}

	if c.LedgerSyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid ledger sync interval %v: must be at least 1 second", c.LedgerSyncInterval))
	} else if c.LedgerSyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid ledger sync interval %v: must be at most 24 hours", c.LedgerSyncInterval))
	}

	// Validate goal cache
	if c.GoalCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid goal cache size %d: must be at least 1", c.GoalCacheSize))
	}
	if c.GoalCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid goal cache TTL %v: must be positive", c.GoalCacheTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
