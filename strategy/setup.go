package strategy

import "time"

// SetupKind is the type of trading setup identified by the Strategy Engine.
type SetupKind string

const (
	Breakout     SetupKind = "BREAKOUT"
	EIAReversion SetupKind = "EIA_REVERSION"
	EIATrendDay  SetupKind = "EIA_TRENDDAY"
)

// IsEIA reports whether the setup is driven by an EIA release. EIA setups
// are exempt from the EIA blackout window and the countertrend rule.
func (k SetupKind) IsEIA() bool {
	return k == EIAReversion || k == EIATrendDay
}

// SessionPhase is the named time-of-day trading window a setup was found in.
type SessionPhase string

const (
	PhaseAsiaRange  SessionPhase = "ASIA_RANGE"
	PhaseLondonCore SessionPhase = "LONDON_CORE"
	PhasePreUSRange SessionPhase = "PRE_US_RANGE"
	PhaseUSCore     SessionPhase = "US_CORE_TRADING"
	PhaseEIAPre     SessionPhase = "EIA_PRE"
	PhaseEIAPost    SessionPhase = "EIA_POST"
	PhaseFridayLate SessionPhase = "FRIDAY_LATE"
	PhaseOther      SessionPhase = "OTHER"
)

// Direction is the suggested trade direction of a setup.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// BreakoutSignal classifies a breakout, including fakeouts.
type BreakoutSignal string

const (
	LongBreakout        BreakoutSignal = "LONG_BREAKOUT"
	ShortBreakout       BreakoutSignal = "SHORT_BREAKOUT"
	FailedLongBreakout  BreakoutSignal = "FAILED_LONG_BREAKOUT"
	FailedShortBreakout BreakoutSignal = "FAILED_SHORT_BREAKOUT"
)

// BreakoutContext carries the range a breakout setup broke out of.
type BreakoutContext struct {
	SignalType BreakoutSignal
	RangeHigh  float64
	RangeLow   float64
}

// SetupCandidate describes a trade opportunity found by the Strategy Engine.
// It makes no decision about whether to trade; that is the job of the risk
// engine and the user.
type SetupCandidate struct {
	ID             string
	CreatedAt      time.Time
	Epic           string
	Kind           SetupKind
	Phase          SessionPhase
	ReferencePrice float64
	Direction      Direction

	// Breakout is set when Kind is BREAKOUT.
	Breakout *BreakoutContext

	QualityFlags []string
}
