package risk

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/fiona-trading/fiona/broker"
	"github.com/fiona-trading/fiona/strategy"
)

// Violation codes.
const (
	CodeTimeRestricted = "TIME_RESTRICTED"
	CodeLossLimit      = "LOSS_LIMIT"
	CodeMaxPositions   = "MAX_POSITIONS"
	CodeCountertrend   = "COUNTERTREND"
	CodeSLRequired     = "SL_REQUIRED"
	CodeSLTooTight     = "SL_TOO_TIGHT"
	CodeRiskExceeded   = "RISK_EXCEEDED"
)

type Violation struct {
	Code string
	Msg  string
}

// Result is the full outcome of one evaluation. A denial is a normal value,
// not an error: Reason carries the first violation message and Violations
// holds all of them.
type Result struct {
	// ID is assigned by the caller when the result is stored for audit;
	// Evaluate itself stays deterministic and leaves it empty.
	ID string

	Allowed       bool
	Reason        string
	AdjustedOrder *broker.OrderRequest
	Violations    []Violation
	Metrics       map[string]float64
}

func (r *Result) add(code, msg string) {
	r.Violations = append(r.Violations, Violation{Code: code, Msg: msg})
	r.Allowed = false
}

// Input bundles everything one evaluation looks at. All fields are
// caller-owned and read-only from the engine's perspective.
type Input struct {
	Account       broker.AccountState
	OpenPositions []broker.Position

	Setup strategy.SetupCandidate
	Order broker.OrderRequest

	Now        time.Time
	EIARelease *time.Time

	DailyPL  float64
	WeeklyPL float64

	TrendDirection *strategy.Direction
}

// Engine applies the admission policy. Stateless; safe for concurrent use.
type Engine struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: log}
}

// Evaluate runs every check in fixed order and returns the exhaustive
// result. It never short-circuits: a trade denied for time reasons still
// reports its loss-limit and sizing violations.
func (e *Engine) Evaluate(in Input) Result {
	res := Result{Allowed: true, Metrics: map[string]float64{}}

	e.checkTimeRestrictions(in, &res)
	e.checkLossLimits(in, &res)
	e.checkOpenPositions(in, &res)
	e.checkCountertrend(in, &res)

	if in.Order.StopLoss == nil {
		res.add(CodeSLRequired, "Trade denied: Stop-loss is required")
	}

	finalSize := e.fitPositionSize(in, &res)

	if len(res.Violations) > 0 {
		res.Reason = res.Violations[0].Msg
		res.AdjustedOrder = nil
		e.log.Debug("trade denied",
			zap.String("setup_id", in.Setup.ID),
			zap.String("reason", res.Reason),
			zap.Int("violations", len(res.Violations)))
		return res
	}

	if finalSize < in.Order.Size {
		adjusted := in.Order.WithSize(finalSize)
		res.AdjustedOrder = &adjusted
		res.Reason = "adjusted"
		e.log.Debug("trade size adjusted",
			zap.String("setup_id", in.Setup.ID),
			zap.Float64("requested", in.Order.Size),
			zap.Float64("adjusted", finalSize))
	}
	return res
}

func (e *Engine) checkTimeRestrictions(in Input, res *Result) {
	if in.EIARelease != nil && !in.Setup.Kind.IsEIA() {
		window := time.Duration(e.cfg.EIABlackoutMinutes) * time.Minute
		if !in.Now.Before(in.EIARelease.Add(-window)) && !in.Now.After(in.EIARelease.Add(window)) {
			res.add(CodeTimeRestricted,
				fmt.Sprintf("Trade denied: Within EIA blackout window (±%d min)", e.cfg.EIABlackoutMinutes))
		}
	}

	if e.cfg.DenyOvernight && in.Now.Weekday() == time.Friday {
		hour, minute, err := e.cfg.fridayCutoff()
		if err == nil && (in.Now.Hour() > hour || (in.Now.Hour() == hour && in.Now.Minute() >= minute)) {
			res.add(CodeTimeRestricted,
				fmt.Sprintf("Trade denied: Friday cutoff %s reached, no overnight positions", e.cfg.FridayCutoff))
		}
	}

	if wd := in.Now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		res.add(CodeTimeRestricted, "Trade denied: Weekend trading not allowed")
	}
}

func (e *Engine) checkLossLimits(in Input, res *Result) {
	equity := in.Account.Equity

	dailyLimit := -equity * e.cfg.MaxDailyLossPercent / 100
	if in.DailyPL < dailyLimit {
		res.add(CodeLossLimit,
			fmt.Sprintf("Trade denied: Daily loss limit reached (%.2f < %.2f)", in.DailyPL, dailyLimit))
	}

	weeklyLimit := -equity * e.cfg.MaxWeeklyLossPercent / 100
	if in.WeeklyPL < weeklyLimit {
		res.add(CodeLossLimit,
			fmt.Sprintf("Trade denied: Weekly loss limit reached (%.2f < %.2f)", in.WeeklyPL, weeklyLimit))
	}
}

func (e *Engine) checkOpenPositions(in Input, res *Result) {
	if len(in.OpenPositions) >= e.cfg.MaxOpenPositions {
		res.add(CodeMaxPositions,
			fmt.Sprintf("Trade denied: Max open positions reached (%d >= %d)",
				len(in.OpenPositions), e.cfg.MaxOpenPositions))
	}
}

func (e *Engine) checkCountertrend(in Input, res *Result) {
	if e.cfg.AllowCountertrend || in.TrendDirection == nil {
		return
	}
	// EIA reversion setups trade against the move on purpose.
	if in.Setup.Kind.IsEIA() {
		return
	}
	if in.Setup.Direction != *in.TrendDirection {
		res.add(CodeCountertrend,
			fmt.Sprintf("Trade denied: Countertrend trading not allowed (setup %s vs trend %s)",
				in.Setup.Direction, *in.TrendDirection))
	}
}

// fitPositionSize runs the sizing math, records the risk metrics, and
// returns the size the trade should actually carry. It only appends
// violations for hard failures (SL too tight, risk cannot be fitted).
func (e *Engine) fitPositionSize(in Input, res *Result) float64 {
	equity := in.Account.Equity
	maxRiskAmount := equity * e.cfg.MaxRiskPerTradePercent / 100

	res.Metrics["equity"] = equity
	res.Metrics["max_risk_amount"] = maxRiskAmount

	size := in.Order.Size
	capped := 0.0
	if size > e.cfg.MaxPositionSize {
		size = e.cfg.MaxPositionSize
		capped = 1.0
	}
	res.Metrics["size_capped_to_max"] = capped

	if in.Order.StopLoss == nil {
		res.Metrics["final_size"] = size
		return size
	}

	entry := entryPrice(in.Order, in.Setup)
	slDistance := math.Abs(entry - *in.Order.StopLoss)
	slTicks := slDistance / e.cfg.TickSize

	res.Metrics["sl_distance"] = slDistance
	res.Metrics["sl_ticks"] = slTicks

	if slTicks < float64(e.cfg.SLMinTicks) {
		res.add(CodeSLTooTight,
			fmt.Sprintf("Trade denied: SL distance (%.1f ticks) below minimum (%d ticks)",
				slTicks, e.cfg.SLMinTicks))
		res.Metrics["final_size"] = size
		return size
	}

	potentialLoss := slTicks * e.cfg.TickValue * size
	res.Metrics["potential_loss"] = potentialLoss

	if potentialLoss > maxRiskAmount {
		maxSize := maxRiskAmount / (slTicks * e.cfg.TickValue)
		if maxSize < 0.1 {
			res.add(CodeRiskExceeded,
				fmt.Sprintf("Trade denied: Risk cannot be fitted (max size %.3f below minimum 0.1)", maxSize))
			res.Metrics["final_size"] = size
			return size
		}
		size = math.Floor(maxSize*10) / 10
		if size > e.cfg.MaxPositionSize {
			size = e.cfg.MaxPositionSize
		}
		res.Metrics["adjusted_size"] = size
	}

	res.Metrics["final_size"] = size
	return size
}

// entryPrice resolves the price the sizing math treats as entry: explicit
// order levels win, a market order falls back to the setup's reference.
func entryPrice(order broker.OrderRequest, setup strategy.SetupCandidate) float64 {
	if order.LimitPrice != nil {
		return *order.LimitPrice
	}
	if order.StopPrice != nil {
		return *order.StopPrice
	}
	return setup.ReferencePrice
}
