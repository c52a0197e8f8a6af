package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fiona-trading/fiona/broker"
	"github.com/fiona-trading/fiona/internal/id"
	"github.com/fiona-trading/fiona/journal"
	"github.com/fiona-trading/fiona/metrics"
	"github.com/fiona-trading/fiona/trade"
)

// ShadowTrader tracks simulated trades against live prices. It owns the
// open-set; callers only ever see copies of the records.
type ShadowTrader struct {
	prices  broker.PriceSource
	journal journal.Journal
	cfg     Config
	log     *zap.Logger

	mu   sync.Mutex
	open map[string]*trade.ShadowTrade
}

func NewShadowTrader(prices broker.PriceSource, j journal.Journal, cfg Config, log *zap.Logger) *ShadowTrader {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShadowTrader{
		prices:  prices,
		journal: j,
		cfg:     cfg,
		log:     log,
		open:    make(map[string]*trade.ShadowTrade),
	}
}

// OpenRequest carries everything needed to open one shadow trade.
type OpenRequest struct {
	SetupID          string
	KiEvaluationID   string
	RiskEvaluationID string

	Epic      string
	Direction trade.Direction
	Size      float64

	StopLoss   *float64
	TakeProfit *float64

	SkipReason string
	Meta       map[string]any
	Now        time.Time
}

// Open creates a shadow trade with the current market mid as its simulated
// entry, persists it, and tracks it in the open-set.
func (st *ShadowTrader) Open(ctx context.Context, req OpenRequest) (trade.ShadowTrade, error) {
	price, err := st.prices.GetSymbolPrice(ctx, req.Epic)
	if err != nil {
		return trade.ShadowTrade{}, fmt.Errorf("fetch entry price for %s: %w", req.Epic, err)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rec := &trade.ShadowTrade{
		ID:               id.New(),
		SetupID:          req.SetupID,
		KiEvaluationID:   req.KiEvaluationID,
		RiskEvaluationID: req.RiskEvaluationID,
		Epic:             req.Epic,
		Direction:        req.Direction,
		Size:             req.Size,
		EntryPrice:       price.Mid(),
		StopLoss:         req.StopLoss,
		TakeProfit:       req.TakeProfit,
		Status:           trade.StatusOpen,
		OpenedAt:         now,
		SkipReason:       req.SkipReason,
		Meta:             req.Meta,
	}

	if err := st.journal.StoreShadowTrade(*rec); err != nil {
		return trade.ShadowTrade{}, fmt.Errorf("store shadow trade: %w", err)
	}

	st.mu.Lock()
	st.open[rec.ID] = rec
	st.mu.Unlock()

	metrics.TradesOpened.WithLabelValues("shadow").Inc()
	metrics.OpenShadowTrades.Inc()

	st.log.Info("shadow trade opened",
		zap.String("trade_id", rec.ID),
		zap.String("epic", rec.Epic),
		zap.String("direction", string(rec.Direction)),
		zap.Float64("entry", rec.EntryPrice))

	return *rec, nil
}

// CheckAndClose evaluates the SL/TP exit condition for one open shadow
// trade and closes it on a hit. currentPrice may be nil, in which case the
// price is fetched. Returns nil when the trade is still open.
func (st *ShadowTrader) CheckAndClose(ctx context.Context, tradeID string, currentPrice *float64, now time.Time) (*trade.ShadowTrade, error) {
	st.mu.Lock()
	rec, ok := st.open[tradeID]
	if !ok {
		st.mu.Unlock()
		return nil, fmt.Errorf("shadow trade %q not open", tradeID)
	}
	snapshot := *rec
	st.mu.Unlock()

	price := currentPrice
	if price == nil {
		p, err := st.prices.GetSymbolPrice(ctx, snapshot.Epic)
		if err != nil {
			return nil, fmt.Errorf("fetch price for %s: %w", snapshot.Epic, err)
		}
		mid := p.Mid()
		price = &mid
	}

	reason, hit := exitReason(&snapshot, *price)
	if !hit {
		return nil, nil
	}

	closed, err := st.close(tradeID, *price, reason, now)
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

// Close forces closure of a tracked shadow trade regardless of SL/TP.
// exitPrice may be nil, in which case the current mid is used.
func (st *ShadowTrader) Close(ctx context.Context, tradeID string, exitPrice *float64, reason trade.ExitReason, now time.Time) (trade.ShadowTrade, error) {
	st.mu.Lock()
	rec, ok := st.open[tradeID]
	if !ok {
		st.mu.Unlock()
		return trade.ShadowTrade{}, fmt.Errorf("shadow trade %q not open", tradeID)
	}
	epic := rec.Epic
	st.mu.Unlock()

	if reason == "" {
		reason = trade.ExitManual
	}

	price := exitPrice
	if price == nil {
		p, err := st.prices.GetSymbolPrice(ctx, epic)
		if err != nil {
			return trade.ShadowTrade{}, fmt.Errorf("fetch exit price for %s: %w", epic, err)
		}
		mid := p.Mid()
		price = &mid
	}

	return st.close(tradeID, *price, reason, now)
}

// close finalizes a tracked trade: sets exit fields, computes theoretical
// P&L, removes it from the open-set and persists the update.
func (st *ShadowTrader) close(tradeID string, exitPrice float64, reason trade.ExitReason, now time.Time) (trade.ShadowTrade, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	st.mu.Lock()
	rec, ok := st.open[tradeID]
	if !ok {
		st.mu.Unlock()
		return trade.ShadowTrade{}, fmt.Errorf("shadow trade %q not open", tradeID)
	}

	pnl := (exitPrice - rec.EntryPrice) * rec.Size
	if !rec.IsLong() {
		pnl = -pnl
	}
	pnlPercent := 0.0
	if rec.EntryPrice != 0 {
		pnlPercent = pnl / rec.EntryPrice * 100
	}

	rec.Status = trade.StatusClosed
	rec.ClosedAt = &now
	rec.ExitPrice = &exitPrice
	rec.ExitReason = reason
	rec.TheoreticalPnl = &pnl
	rec.PnlPercent = &pnlPercent

	closed := *rec
	delete(st.open, tradeID)
	st.mu.Unlock()

	metrics.ShadowExits.WithLabelValues(string(reason)).Inc()
	metrics.OpenShadowTrades.Dec()

	st.log.Info("shadow trade closed",
		zap.String("trade_id", closed.ID),
		zap.String("reason", string(reason)),
		zap.Float64("exit", exitPrice),
		zap.Float64("pnl", pnl))

	st.scheduleSnapshots(closed)

	if err := st.journal.StoreShadowTrade(closed); err != nil {
		return closed, fmt.Errorf("store shadow trade close: %w", err)
	}
	return closed, nil
}

// scheduleSnapshots arms the configured post-exit market captures. Purely
// best-effort; a snapshot that never fires is not an error.
func (st *ShadowTrader) scheduleSnapshots(closed trade.ShadowTrade) {
	for _, minutes := range st.cfg.SnapshotMinutesAfterExit {
		if minutes <= 0 {
			continue
		}
		time.AfterFunc(time.Duration(minutes)*time.Minute, func() {
			st.CaptureSnapshot(context.Background(), closed, time.Now().UTC())
		})
	}
}

// Poll checks every open shadow trade once and closes those that hit SL or
// TP. One trade's price-fetch failure never aborts the others. Returns how
// many trades were closed.
func (st *ShadowTrader) Poll(ctx context.Context) int {
	st.mu.Lock()
	ids := make([]string, 0, len(st.open))
	for tid := range st.open {
		ids = append(ids, tid)
	}
	st.mu.Unlock()

	closed := 0
	for _, tid := range ids {
		rec, err := st.CheckAndClose(ctx, tid, nil, time.Time{})
		if err != nil {
			st.log.Warn("shadow poll check failed",
				zap.String("trade_id", tid),
				zap.Error(err))
			continue
		}
		if rec != nil {
			closed++
		}
	}
	return closed
}

// OpenTrades returns copies of all currently open shadow trades.
func (st *ShadowTrader) OpenTrades() []trade.ShadowTrade {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]trade.ShadowTrade, 0, len(st.open))
	for _, rec := range st.open {
		out = append(out, *rec)
	}
	return out
}

// CaptureSnapshot records a best-effort market snapshot for a trade some
// time after its exit. Failures are swallowed: snapshots are observability,
// never control flow.
func (st *ShadowTrader) CaptureSnapshot(ctx context.Context, tr trade.ShadowTrade, now time.Time) {
	price, err := st.prices.GetSymbolPrice(ctx, tr.Epic)
	if err != nil {
		st.log.Debug("snapshot price fetch failed",
			zap.String("trade_id", tr.ID),
			zap.Error(err))
		return
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	minutesAfter := 0.0
	if tr.ClosedAt != nil {
		minutesAfter = now.Sub(*tr.ClosedAt).Minutes()
	}

	snap := trade.MarketSnapshot{
		ID:               id.New(),
		TradeID:          tr.ID,
		Epic:             tr.Epic,
		Bid:              price.Bid,
		Ask:              price.Ask,
		Mid:              price.Mid(),
		Spread:           price.Spread,
		MinutesAfterExit: minutesAfter,
		Timestamp:        now,
	}

	if err := st.journal.StoreSnapshot(snap); err != nil {
		st.log.Debug("snapshot store failed",
			zap.String("trade_id", tr.ID),
			zap.Error(err))
	}
}

// exitReason applies the SL/TP exit rule for the trade's direction.
func exitReason(rec *trade.ShadowTrade, price float64) (trade.ExitReason, bool) {
	if rec.IsLong() {
		if rec.StopLoss != nil && price <= *rec.StopLoss {
			return trade.ExitStopLoss, true
		}
		if rec.TakeProfit != nil && price >= *rec.TakeProfit {
			return trade.ExitTakeProfit, true
		}
		return "", false
	}

	if rec.StopLoss != nil && price >= *rec.StopLoss {
		return trade.ExitStopLoss, true
	}
	if rec.TakeProfit != nil && price <= *rec.TakeProfit {
		return trade.ExitTakeProfit, true
	}
	return "", false
}
