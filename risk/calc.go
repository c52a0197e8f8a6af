package risk

import (
	"math"

	"github.com/fiona-trading/fiona/broker"
)

// CalculatePositionSize is the standalone sizing helper: the largest size
// (rounded down to one decimal) whose loss at the stop stays within the
// per-trade risk budget. Returns 0 when the stop is too tight or the fitted
// size falls below the 0.1 minimum.
func (e *Engine) CalculatePositionSize(account broker.AccountState, entry, stopLoss float64) float64 {
	maxRiskAmount := account.Equity * e.cfg.MaxRiskPerTradePercent / 100

	slTicks := math.Abs(entry-stopLoss) / e.cfg.TickSize
	if slTicks < float64(e.cfg.SLMinTicks) {
		return 0
	}

	size := maxRiskAmount / (slTicks * e.cfg.TickValue)
	if size < 0.1 {
		return 0
	}

	size = math.Floor(size*10) / 10
	if size > e.cfg.MaxPositionSize {
		size = e.cfg.MaxPositionSize
	}
	return size
}
