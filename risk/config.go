package risk

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the immutable risk policy. Load it once at startup; the engine
// only ever reads it.
type Config struct {
	// Risk limits
	MaxRiskPerTradePercent float64 `json:"max_risk_per_trade_percent" yaml:"max_risk_per_trade_percent"`
	MaxDailyLossPercent    float64 `json:"max_daily_loss_percent" yaml:"max_daily_loss_percent"`
	MaxWeeklyLossPercent   float64 `json:"max_weekly_loss_percent" yaml:"max_weekly_loss_percent"`

	// Exposure limits
	MaxOpenPositions  int     `json:"max_open_positions" yaml:"max_open_positions"`
	MaxPositionSize   float64 `json:"max_position_size" yaml:"max_position_size"`
	AllowCountertrend bool    `json:"allow_countertrend" yaml:"allow_countertrend"`

	// Trade constraints
	SLMinTicks int `json:"sl_min_ticks" yaml:"sl_min_ticks"`
	TPMinTicks int `json:"tp_min_ticks" yaml:"tp_min_ticks"`

	// Time rules
	EIABlackoutMinutes int    `json:"eia_blackout_minutes" yaml:"eia_blackout_minutes"`
	FridayCutoff       string `json:"friday_cutoff" yaml:"friday_cutoff"` // "HH:MM", UTC
	DenyOvernight      bool   `json:"deny_overnight" yaml:"deny_overnight"`

	// Instrument metadata
	TickSize  float64 `json:"tick_size" yaml:"tick_size"`
	TickValue float64 `json:"tick_value" yaml:"tick_value"`
	Leverage  float64 `json:"leverage" yaml:"leverage"`
}

// Default returns the conservative WTI crude policy used when no config file
// is supplied.
func Default() Config {
	return Config{
		MaxRiskPerTradePercent: 1.0,
		MaxDailyLossPercent:    3.0,
		MaxWeeklyLossPercent:   6.0,
		MaxOpenPositions:       1,
		MaxPositionSize:        5.0,
		AllowCountertrend:      false,
		SLMinTicks:             5,
		TPMinTicks:             5,
		EIABlackoutMinutes:     5,
		FridayCutoff:           "21:00",
		DenyOvernight:          true,
		TickSize:               0.01,
		TickValue:              10.0,
		Leverage:               1.0,
	}
}

// FromYAML parses a policy over the defaults, so a partial file only
// overrides what it names.
func FromYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse risk config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid risk config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxRiskPerTradePercent <= 0 || c.MaxRiskPerTradePercent > 100 {
		return fmt.Errorf("max_risk_per_trade_percent must be between 0 and 100")
	}
	if c.MaxDailyLossPercent <= 0 {
		return fmt.Errorf("max_daily_loss_percent must be positive")
	}
	if c.MaxWeeklyLossPercent < c.MaxDailyLossPercent {
		return fmt.Errorf("max_weekly_loss_percent must be >= max_daily_loss_percent")
	}
	if c.MaxOpenPositions <= 0 {
		return fmt.Errorf("max_open_positions must be positive")
	}
	if c.MaxPositionSize <= 0 {
		return fmt.Errorf("max_position_size must be positive")
	}
	if c.SLMinTicks <= 0 {
		return fmt.Errorf("sl_min_ticks must be positive")
	}
	if c.EIABlackoutMinutes < 0 {
		return fmt.Errorf("eia_blackout_minutes must not be negative")
	}
	if c.TickSize <= 0 {
		return fmt.Errorf("tick_size must be positive")
	}
	if c.TickValue <= 0 {
		return fmt.Errorf("tick_value must be positive")
	}
	if _, _, err := c.fridayCutoff(); err != nil {
		return fmt.Errorf("friday_cutoff: %w", err)
	}
	return nil
}

// fridayCutoff parses FridayCutoff into hour and minute.
func (c Config) fridayCutoff() (hour, minute int, err error) {
	parts := strings.SplitN(c.FridayCutoff, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", c.FridayCutoff)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", c.FridayCutoff)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", c.FridayCutoff)
	}
	return hour, minute, nil
}
