package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Inventory InventoryConfig
	Import    ImportConfig
	Backfill  BackfillConfig
	Webhook   WebhookConfig
	Cache     CacheConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to pull imports from a
// Google spreadsheet. Both fields empty disables the spreadsheet source.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// InventoryConfig controls stock bookkeeping policy.
type InventoryConfig struct {
	// AllowNegativeStock keeps the historical behavior of letting cascade
	// decrements drive quantities below zero. When false, decrements clamp
	// at zero instead.
	AllowNegativeStock bool
}

// ImportConfig bounds the bulk import endpoints.
type ImportConfig struct {
	MaxPayloadBytes int64
}

// BackfillConfig holds the cascade backfill sweep settings.
type BackfillConfig struct {
	CronSchedule string
	GracePeriod  time.Duration
}

// WebhookConfig points at an optional operations endpoint that receives
// backfill summaries. Empty URL disables it.
type WebhookConfig struct {
	URL string
}

// CacheConfig controls the list-count cache.
type CacheConfig struct {
	CountTTL time.Duration
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "livestock"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_IMPORT_ID"),
		},
		Inventory: InventoryConfig{
			AllowNegativeStock: getenvBool("INVENTORY_ALLOW_NEGATIVE_STOCK", true),
		},
		Import: ImportConfig{
			MaxPayloadBytes: getenvInt64("IMPORT_MAX_PAYLOAD_BYTES", 10<<20),
		},
		Backfill: BackfillConfig{
			CronSchedule: getenvWithDefault("CASCADE_BACKFILL_SCHEDULE", "*/15 * * * *"),
			GracePeriod:  getenvDuration("CASCADE_BACKFILL_GRACE", 5*time.Minute),
		},
		Webhook: WebhookConfig{
			URL: os.Getenv("OPS_WEBHOOK_URL"),
		},
		Cache: CacheConfig{
			CountTTL: getenvDuration("LIST_COUNT_CACHE_TTL", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Import.MaxPayloadBytes <= 0 {
		return errors.New("IMPORT_MAX_PAYLOAD_BYTES must be positive")
	}

	if c.Backfill.CronSchedule == "" {
		return errors.New("CASCADE_BACKFILL_SCHEDULE must be provided")
	}

	// Spreadsheet credentials travel together: one without the other is a
	// misconfiguration rather than a disabled feature.
	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_IMPORT_ID must be set together")
	}

	return nil
}

// SheetsEnabled reports whether the spreadsheet import source is configured.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
