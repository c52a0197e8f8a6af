package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yml := `
risk:
  max_risk_per_trade_percent: 0.5
journal:
  type: csv
  trades_file: trades.csv
  shadows_file: shadows.csv
execution:
  allow_shadow_if_risk_denied: false
log_level: debug
`
	assert.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := LoadFromFile(path)
	assert.NoError(t, err)

	assert.InDelta(t, 0.5, cfg.Risk.MaxRiskPerTradePercent, 1e-9)
	// Untouched fields keep their defaults.
	assert.InDelta(t, 3.0, cfg.Risk.MaxDailyLossPercent, 1e-9)
	assert.Equal(t, "csv", cfg.Journal.Type)
	assert.False(t, cfg.Execution.AllowShadowIfRiskDenied)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFromJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	jsn := `{"journal": {"type": "sqlite", "db_path": "x.db"}, "log_level": "warn"}`
	assert.NoError(t, os.WriteFile(path, []byte(jsn), 0644))

	cfg, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "x.db", cfg.Journal.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	assert.NoError(t, os.WriteFile(path, []byte("journal:\n  type: mongodb\n"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "journal.type")
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := Default()
	cfg.Risk.MaxOpenPositions = 2
	cfg.Metrics.Listen = ":9100"

	assert.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 2, got.Risk.MaxOpenPositions)
	assert.Equal(t, ":9100", got.Metrics.Listen)
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad risk", func(c *Config) { c.Risk.TickSize = 0 }, "risk:"},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }, "db_path"},
		{"csv without files", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }, "trades_file"},
		{"zero default size", func(c *Config) { c.Execution.DefaultSize = 0 }, "default_size"},
		{"polling without interval", func(c *Config) { c.Execution.ExitPollingIntervalSeconds = 0 }, "exit_polling_interval_seconds"},
		{"metrics without listen", func(c *Config) { c.Metrics.Listen = "" }, "metrics.listen"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
