// Package config loads the application configuration from YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fiona-trading/fiona/execution"
	"github.com/fiona-trading/fiona/risk"
)

// Config is the complete application configuration.
type Config struct {
	Risk      risk.Config      `json:"risk" yaml:"risk"`
	Execution execution.Config `json:"execution" yaml:"execution"`
	Journal   JournalConfig    `json:"journal" yaml:"journal"`
	Broker    BrokerConfig     `json:"broker" yaml:"broker"`
	Metrics   MetricsConfig    `json:"metrics" yaml:"metrics"`
	LogLevel  string           `json:"log_level" yaml:"log_level"`
}

// JournalConfig selects and parameterizes the journal backend.
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "csv" or "sqlite"
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	TradesFile  string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	ShadowsFile string `json:"shadows_file,omitempty" yaml:"shadows_file,omitempty"`
}

// BrokerConfig controls the IG connection. Credentials come from the
// environment, never from this file.
type BrokerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Demo    bool `json:"demo" yaml:"demo"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen" yaml:"listen"`
}

// Default returns a complete runnable configuration: shadow-only against
// the IG demo environment, SQLite journal, metrics on.
func Default() *Config {
	return &Config{
		Risk:      risk.Default(),
		Execution: execution.DefaultConfig(),
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "fiona.db",
		},
		Broker: BrokerConfig{
			Enabled: false,
			Demo:    true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path is required for sqlite")
		}
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.ShadowsFile == "" {
			return fmt.Errorf("journal.trades_file and journal.shadows_file are required for csv")
		}
	default:
		return fmt.Errorf("journal.type must be \"csv\" or \"sqlite\", got %q", c.Journal.Type)
	}

	if c.Execution.DefaultSize <= 0 {
		return fmt.Errorf("execution.default_size must be positive")
	}
	if c.Execution.EnableExitPolling && c.Execution.ExitPollingIntervalSeconds <= 0 {
		return fmt.Errorf("execution.exit_polling_interval_seconds must be positive")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}

	return nil
}
