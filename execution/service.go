package execution

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fiona-trading/fiona/broker"
	"github.com/fiona-trading/fiona/internal/id"
	"github.com/fiona-trading/fiona/journal"
	"github.com/fiona-trading/fiona/ki"
	"github.com/fiona-trading/fiona/metrics"
	"github.com/fiona-trading/fiona/risk"
	"github.com/fiona-trading/fiona/strategy"
	"github.com/fiona-trading/fiona/trade"
)

// Service drives sessions through the lifecycle. It is the single owner of
// all session state; the mutex guards every check-then-transition sequence
// so a session can never submit to the broker twice.
type Service struct {
	broker  broker.Broker // nil when running shadow-only
	shadow  *ShadowTrader
	journal journal.Journal
	cfg     Config
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(b broker.Broker, shadow *ShadowTrader, j journal.Journal, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		broker:   b,
		shadow:   shadow,
		journal:  j,
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// ProposeTrade creates the session for one signal. The order takes its
// direction from the setup and its size/SL/TP from the KI evaluation when
// tradeable, falling back to defaults otherwise.
//
// The session starts directly in WAITING_FOR_USER, SHADOW_ONLY or
// RISK_REJECTED; the early NEW_SIGNAL/KI_EVALUATED/RISK_APPROVED states in
// the transition table are modeled but not visited on this path.
func (s *Service) ProposeTrade(setup strategy.SetupCandidate, kiEval *ki.Evaluation, riskRes *risk.Result) (Session, error) {
	order := s.buildOrder(setup, kiEval)

	now := time.Now().UTC()
	sess := &Session{
		ID:            id.New(),
		SetupID:       setup.ID,
		CreatedAt:     now,
		LastUpdate:    now,
		ProposedOrder: order,
		Meta: map[string]any{
			"setup_kind":      string(setup.Kind),
			"direction":       string(setup.Direction),
			"reference_price": setup.ReferencePrice,
		},
	}
	if setup.Breakout != nil {
		sess.Meta["breakout_signal"] = string(setup.Breakout.SignalType)
	}
	if kiEval != nil {
		sess.KiEvaluationID = kiEval.ID
	}

	switch {
	case riskRes == nil || riskRes.Allowed:
		sess.State = WaitingForUser
	case s.cfg.AllowShadowIfRiskDenied:
		sess.State = ShadowOnly
	default:
		sess.State = RiskRejected
	}

	if riskRes != nil {
		sess.RiskEvaluationID = riskRes.ID
		if riskRes.AdjustedOrder != nil {
			adj := *riskRes.AdjustedOrder
			sess.AdjustedOrder = &adj
		}
		if !riskRes.Allowed {
			sess.Comment = riskRes.Reason
		}
		countRiskResult(riskRes)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Info("trade proposed",
		zap.String("session_id", sess.ID),
		zap.String("setup_id", setup.ID),
		zap.String("state", string(sess.State)))

	return sess.copy(), nil
}

// ConfirmLiveTrade places the session's effective order with the broker.
//
// The transition to USER_ACCEPTED happens under lock before the broker
// call, which closes the double-submission window: a concurrent confirm for
// the same session finds the state already moved and fails with
// INVALID_STATE. The lock is released for the network call and re-acquired
// to finalize. Any broker failure, rejection or timeout reverts the session
// to WAITING_FOR_USER so the user may retry or abandon.
func (s *Service) ConfirmLiveTrade(ctx context.Context, sessionID string) (trade.ExecutedTrade, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return trade.ExecutedTrade{}, errSessionNotFound(sessionID)
	}
	if s.broker == nil {
		s.mu.Unlock()
		return trade.ExecutedTrade{}, &Error{Code: CodeNoBroker, Message: "no broker configured"}
	}
	if sess.State != WaitingForUser {
		s.mu.Unlock()
		return trade.ExecutedTrade{}, errInvalidState(sess.State, UserAccepted)
	}
	s.applyTransition(sess, UserAccepted, time.Now().UTC())
	order := sess.EffectiveOrder()
	setupID := sess.SetupID
	s.mu.Unlock()

	if order.Currency == "" {
		order.Currency = s.cfg.DefaultCurrency
	}

	result, err := s.broker.PlaceOrder(ctx, order)
	if err != nil {
		s.revertToWaiting(sessionID)
		metrics.BrokerFailures.Inc()

		var brokerErr *broker.Error
		details := map[string]any{}
		if errors.As(err, &brokerErr) {
			details["broker_code"] = brokerErr.Code
		}
		s.log.Error("broker order failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return trade.ExecutedTrade{}, &Error{
			Code:    CodeBrokerError,
			Message: err.Error(),
			Details: details,
		}
	}
	if !result.Success {
		s.revertToWaiting(sessionID)
		metrics.BrokerFailures.Inc()
		s.log.Warn("order rejected by broker",
			zap.String("session_id", sessionID),
			zap.String("reason", result.Reason))
		return trade.ExecutedTrade{}, &Error{
			Code:    CodeOrderRejected,
			Message: result.Reason,
			Details: map[string]any{"deal_reference": result.DealReference},
		}
	}

	// Best-effort entry price for the record; explicit order levels win.
	entry := 0.0
	switch {
	case order.LimitPrice != nil:
		entry = *order.LimitPrice
	case order.StopPrice != nil:
		entry = *order.StopPrice
	default:
		if p, perr := s.broker.GetSymbolPrice(ctx, order.Epic); perr == nil {
			entry = p.Mid()
		}
	}

	now := time.Now().UTC()
	rec := trade.ExecutedTrade{
		ID:            id.New(),
		SessionID:     sessionID,
		SetupID:       setupID,
		Epic:          order.Epic,
		Direction:     tradeDirection(order.Direction),
		Size:          order.Size,
		EntryPrice:    entry,
		StopLoss:      order.StopLoss,
		TakeProfit:    order.TakeProfit,
		DealID:        result.DealID,
		DealReference: result.DealReference,
		Status:        trade.StatusOpen,
		OpenedAt:      now,
	}

	s.mu.Lock()
	s.applyTransition(sess, LiveTradeOpen, now)
	sess.TradeID = rec.ID
	sess.IsShadow = false
	s.mu.Unlock()

	metrics.TradesOpened.WithLabelValues("live").Inc()

	if err := s.journal.StoreTrade(rec); err != nil {
		// The position is live; a journal failure must not undo it.
		s.log.Error("store trade failed",
			zap.String("trade_id", rec.ID),
			zap.Error(err))
	}

	s.log.Info("live trade opened",
		zap.String("session_id", sessionID),
		zap.String("trade_id", rec.ID),
		zap.String("deal_id", rec.DealID))

	return rec, nil
}

// ConfirmShadowTrade opens a shadow trade for the session at the current
// market price, carrying the session's risk-denial comment forward as the
// skip reason.
func (s *Service) ConfirmShadowTrade(ctx context.Context, sessionID string) (trade.ShadowTrade, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return trade.ShadowTrade{}, errSessionNotFound(sessionID)
	}
	if !sess.State.AllowsUserAction() {
		s.mu.Unlock()
		return trade.ShadowTrade{}, errInvalidState(sess.State, UserShadow)
	}
	previous := sess.State
	s.applyTransition(sess, UserShadow, time.Now().UTC())

	order := sess.EffectiveOrder()
	req := OpenRequest{
		SetupID:          sess.SetupID,
		KiEvaluationID:   sess.KiEvaluationID,
		RiskEvaluationID: sess.RiskEvaluationID,
		Epic:             order.Epic,
		Direction:        tradeDirection(order.Direction),
		Size:             order.Size,
		StopLoss:         order.StopLoss,
		TakeProfit:       order.TakeProfit,
		SkipReason:       sess.Comment,
	}
	s.mu.Unlock()

	rec, err := s.shadow.Open(ctx, req)
	if err != nil {
		s.mu.Lock()
		sess.State = previous
		sess.LastUpdate = time.Now().UTC()
		s.mu.Unlock()
		s.log.Error("shadow open failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return trade.ShadowTrade{}, &Error{Code: CodeBrokerError, Message: err.Error()}
	}

	s.mu.Lock()
	s.applyTransition(sess, ShadowTradeOpen, time.Now().UTC())
	sess.TradeID = rec.ID
	sess.IsShadow = true
	s.mu.Unlock()

	return rec, nil
}

// RejectTrade drops the session. The two transitions (USER_REJECTED, then
// DROPPED) happen under one lock hold, so callers observe them as atomic.
func (s *Service) RejectTrade(sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, errSessionNotFound(sessionID)
	}
	if !sess.State.AllowsUserAction() {
		return Session{}, errInvalidState(sess.State, UserRejected)
	}

	now := time.Now().UTC()
	s.applyTransition(sess, UserRejected, now)
	s.applyTransition(sess, Dropped, now)

	s.log.Info("trade rejected",
		zap.String("session_id", sessionID),
		zap.String("setup_id", sess.SetupID))

	return sess.copy(), nil
}

// GetSession returns a copy of one session.
func (s *Service) GetSession(sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, errSessionNotFound(sessionID)
	}
	return sess.copy(), nil
}

// AllSessions returns copies of every session, terminal ones included.
func (s *Service) AllSessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.copy())
	}
	return out
}

// ActiveSessions returns copies of all non-terminal sessions.
func (s *Service) ActiveSessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Session
	for _, sess := range s.sessions {
		if !sess.State.IsTerminal() {
			out = append(out, sess.copy())
		}
	}
	return out
}

// OpenTrades returns copies of all sessions with a live or shadow trade
// currently open.
func (s *Service) OpenTrades() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Session
	for _, sess := range s.sessions {
		if sess.State.IsTradeOpen() {
			out = append(out, sess.copy())
		}
	}
	return out
}

// applyTransition performs a table-validated transition. Caller holds the
// lock and has already verified the move, so a table miss here is a bug.
func (s *Service) applyTransition(sess *Session, to State, now time.Time) {
	from := sess.State
	if err := sess.transitionTo(to, now); err != nil {
		s.log.Error("unexpected invalid transition",
			zap.String("session_id", sess.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return
	}
	metrics.StateTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// revertToWaiting restores WAITING_FOR_USER after a failed broker call.
// This is a deliberate rollback outside the transition table; the table has
// no USER_ACCEPTED edge back because the forward path never takes it.
func (s *Service) revertToWaiting(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok && sess.State == UserAccepted {
		sess.State = WaitingForUser
		sess.LastUpdate = time.Now().UTC()
	}
}

// buildOrder assembles the proposal: direction from the setup, size/SL/TP
// from the KI evaluation when tradeable, defaults otherwise.
func (s *Service) buildOrder(setup strategy.SetupCandidate, kiEval *ki.Evaluation) broker.OrderRequest {
	order := broker.OrderRequest{
		Epic:      setup.Epic,
		Direction: brokerDirection(setup.Direction),
		Size:      s.cfg.DefaultSize,
		Type:      broker.Market,
		Currency:  s.cfg.DefaultCurrency,
	}

	if kiEval != nil {
		if params := kiEval.TradeParameters(); params != nil {
			if params.Size > 0 {
				order.Size = params.Size
			}
			order.StopLoss = params.StopLoss
			order.TakeProfit = params.TakeProfit
		}
	}
	return order
}

func countRiskResult(res *risk.Result) {
	switch {
	case !res.Allowed:
		metrics.RiskEvaluations.WithLabelValues("denied").Inc()
	case res.AdjustedOrder != nil:
		metrics.RiskEvaluations.WithLabelValues("adjusted").Inc()
	default:
		metrics.RiskEvaluations.WithLabelValues("allowed").Inc()
	}
	for _, v := range res.Violations {
		metrics.RiskViolations.WithLabelValues(v.Code).Inc()
	}
}

func brokerDirection(d strategy.Direction) broker.Direction {
	if d == strategy.Short {
		return broker.Sell
	}
	return broker.Buy
}

func tradeDirection(d broker.Direction) trade.Direction {
	if d == broker.Sell {
		return trade.Short
	}
	return trade.Long
}
