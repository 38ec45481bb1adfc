package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "livestock", cfg.MongoDB.DBName)
	assert.True(t, cfg.Inventory.AllowNegativeStock)
	assert.Equal(t, int64(10<<20), cfg.Import.MaxPayloadBytes)
	assert.Equal(t, "*/15 * * * *", cfg.Backfill.CronSchedule)
	assert.Equal(t, 5*time.Minute, cfg.Backfill.GracePeriod)
	assert.Equal(t, 30*time.Second, cfg.Cache.CountTTL)
	assert.False(t, cfg.SheetsEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("INVENTORY_ALLOW_NEGATIVE_STOCK", "false")
	t.Setenv("CASCADE_BACKFILL_GRACE", "1m")
	t.Setenv("LIST_COUNT_CACHE_TTL", "0s")

	cfg, err := Load("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.False(t, cfg.Inventory.AllowNegativeStock)
	assert.Equal(t, time.Minute, cfg.Backfill.GracePeriod)
	assert.Zero(t, cfg.Cache.CountTTL)
}

func TestValidateSheetsPairing(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: "8080"},
		MongoDB:  MongoDBConfig{URI: "mongodb://localhost:27017", DBName: "livestock"},
		Import:   ImportConfig{MaxPayloadBytes: 1024},
		Backfill: BackfillConfig{CronSchedule: "*/15 * * * *"},
	}
	require.NoError(t, cfg.Validate())

	cfg.Sheets.SpreadsheetID = "sheet-id"
	assert.Error(t, cfg.Validate(), "spreadsheet id without credentials must fail")

	cfg.Sheets.CredentialsPath = "/etc/creds.json"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.SheetsEnabled())
}

func TestValidateRejectsMissingRequireds(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			MongoDB:  MongoDBConfig{URI: "mongodb://localhost:27017", DBName: "livestock"},
			Import:   ImportConfig{MaxPayloadBytes: 1024},
			Backfill: BackfillConfig{CronSchedule: "*/15 * * * *"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty mongo uri", func(c *Config) { c.MongoDB.URI = "" }},
		{"empty db name", func(c *Config) { c.MongoDB.DBName = "" }},
		{"zero payload limit", func(c *Config) { c.Import.MaxPayloadBytes = 0 }},
		{"empty cron schedule", func(c *Config) { c.Backfill.CronSchedule = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
