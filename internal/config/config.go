package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Classifier selection values.
const (
	ClassifierRules      = "rules"
	ClassifierSimilarity = "similarity"
)

// Embedder selection values.
const (
	EmbedderHashing = "hashing"
	EmbedderHTTP    = "http"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Query routing
	Classifier              string
	ClassifierMinConfidence float64
	IntentCatalogPath       string

	// Embedding service (similarity classifier)
	Embedder        string
	EmbedServiceURL string
	EmbedModel      string
	EmbedAPIKey     string

	// AMQP events (empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Market data
	MarketBaseURL  string
	MarketCacheTTL time.Duration

	// Google Sheets export (empty spreadsheet ID disables export)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker schedules
	AlertCron  string
	ExportCron string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		Classifier:              getEnv("CLASSIFIER", ClassifierSimilarity),
		ClassifierMinConfidence: getEnvFloat("CLASSIFIER_MIN_CONFIDENCE", 0),
		IntentCatalogPath:       getEnv("INTENT_CATALOG_PATH", ""),

		Embedder:        getEnv("EMBEDDER", EmbedderHashing),
		EmbedServiceURL: getEnv("EMBED_SERVICE_URL", ""),
		EmbedModel:      getEnv("EMBED_MODEL", ""),
		EmbedAPIKey:     getEnv("EMBED_API_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "finance_events"),

		MarketBaseURL:  getEnv("MARKET_BASE_URL", "https://api.coingecko.com/api/v3"),
		MarketCacheTTL: getEnvDuration("MARKET_CACHE_TTL", time.Minute),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Reports"),

		AlertCron:  getEnv("ALERT_CRON", "0 0 9 * * *"),
		ExportCron: getEnv("EXPORT_CRON", "0 0 7 1 * *"),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}

	switch c.Classifier {
	case ClassifierRules, ClassifierSimilarity:
	default:
		errs = append(errs, fmt.Sprintf("invalid classifier '%s': must be one of [%s %s]", c.Classifier, ClassifierRules, ClassifierSimilarity))
	}

	if c.ClassifierMinConfidence < 0 || c.ClassifierMinConfidence > 1 {
		errs = append(errs, fmt.Sprintf("invalid classifier min confidence %v: must be between 0 and 1", c.ClassifierMinConfidence))
	}

	switch c.Embedder {
	case EmbedderHashing:
	case EmbedderHTTP:
		if c.EmbedServiceURL == "" {
			errs = append(errs, "EMBED_SERVICE_URL is required when using the http embedder")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid embedder '%s': must be one of [%s %s]", c.Embedder, EmbedderHashing, EmbedderHTTP))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MarketCacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid market cache TTL %v: must be at least 1 second", c.MarketCacheTTL))
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errs = append(errs, "Google sheet name cannot be empty when a spreadsheet ID is provided")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
