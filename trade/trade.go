// Package trade holds the persistent trade records: executed live trades,
// shadow trades, and post-exit market snapshots.
package trade

import "time"

// Direction of a trade.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Status of a trade record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// ExitReason names why a trade was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "SL_HIT"
	ExitTakeProfit ExitReason = "TP_HIT"
	ExitManual     ExitReason = "MANUAL"
	ExitTime       ExitReason = "TIME_EXIT"
	ExitSignal     ExitReason = "SIGNAL_EXIT"
	ExitMarginCall ExitReason = "MARGIN_CALL"
)

// ExecutedTrade is a live trade that went to the broker.
type ExecutedTrade struct {
	ID        string
	SessionID string
	SetupID   string

	Epic      string
	Direction Direction
	Size      float64

	EntryPrice float64
	StopLoss   *float64
	TakeProfit *float64

	DealID        string
	DealReference string

	Status     Status
	OpenedAt   time.Time
	ClosedAt   *time.Time
	ExitPrice  *float64
	ExitReason ExitReason
	RealizedPL *float64

	Comment string
	Meta    map[string]any
}

// ShadowTrade is a paper trade tracked against live prices. It records what
// would have happened had the trade been executed.
type ShadowTrade struct {
	ID string

	SetupID          string
	KiEvaluationID   string
	RiskEvaluationID string

	Epic      string
	Direction Direction
	Size      float64

	EntryPrice float64
	StopLoss   *float64
	TakeProfit *float64

	Status   Status
	OpenedAt time.Time

	ClosedAt       *time.Time
	ExitPrice      *float64
	ExitReason     ExitReason
	TheoreticalPnl *float64
	PnlPercent     *float64

	SkipReason string
	Meta       map[string]any
}

// IsLong reports whether the trade profits from rising prices.
func (s *ShadowTrade) IsLong() bool {
	return s.Direction == Long
}

// MarketSnapshot is a best-effort price capture taken after a shadow trade
// exits, used to judge exit quality in hindsight.
type MarketSnapshot struct {
	ID      string
	TradeID string
	Epic    string

	Bid    float64
	Ask    float64
	Mid    float64
	Spread float64

	MinutesAfterExit float64
	Timestamp        time.Time
}
