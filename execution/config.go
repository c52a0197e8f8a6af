package execution

// Config tunes the execution service and shadow trader.
type Config struct {
	// AllowShadowIfRiskDenied routes risk-denied proposals to SHADOW_ONLY
	// instead of the RISK_REJECTED dead end.
	AllowShadowIfRiskDenied bool `json:"allow_shadow_if_risk_denied" yaml:"allow_shadow_if_risk_denied"`

	// DefaultCurrency is stamped on orders that carry none.
	DefaultCurrency string `json:"default_currency" yaml:"default_currency"`

	// DefaultSize is used when the KI evaluation supplies no size.
	DefaultSize float64 `json:"default_size" yaml:"default_size"`

	// Exit polling for open shadow trades.
	EnableExitPolling          bool `json:"enable_exit_polling" yaml:"enable_exit_polling"`
	ExitPollingIntervalSeconds int  `json:"exit_polling_interval_seconds" yaml:"exit_polling_interval_seconds"`

	// SnapshotMinutesAfterExit schedules best-effort market snapshots after
	// a shadow exit, for judging exit quality in hindsight.
	SnapshotMinutesAfterExit []int `json:"snapshot_minutes_after_exit" yaml:"snapshot_minutes_after_exit"`
}

// DefaultConfig returns the stock execution settings.
func DefaultConfig() Config {
	return Config{
		AllowShadowIfRiskDenied:    true,
		DefaultCurrency:            "USD",
		DefaultSize:                1.0,
		EnableExitPolling:          true,
		ExitPollingIntervalSeconds: 30,
		SnapshotMinutesAfterExit:   []int{1, 5, 15},
	}
}
