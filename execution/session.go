package execution

import (
	"time"

	"github.com/fiona-trading/fiona/broker"
)

// Session is one signal's journey through the lifecycle. Created exactly
// once per signal and mutated only through validated transitions; sessions
// are never deleted, terminal ones stay for audit.
//
// The service owns all sessions. Callers only ever see copies.
type Session struct {
	ID      string
	SetupID string

	KiEvaluationID   string
	RiskEvaluationID string

	State      State
	CreatedAt  time.Time
	LastUpdate time.Time

	ProposedOrder broker.OrderRequest
	AdjustedOrder *broker.OrderRequest

	TradeID  string
	IsShadow bool

	Comment string
	Meta    map[string]any
}

// EffectiveOrder is the order that would actually be sent: the risk-adjusted
// one when present, the proposal otherwise.
func (s *Session) EffectiveOrder() broker.OrderRequest {
	if s.AdjustedOrder != nil {
		return *s.AdjustedOrder
	}
	return s.ProposedOrder
}

// transitionTo applies one validated transition. Caller must hold the
// service lock.
func (s *Session) transitionTo(to State, now time.Time) error {
	if !CanTransition(s.State, to) {
		return errInvalidState(s.State, to)
	}
	s.State = to
	s.LastUpdate = now
	return nil
}

// copy returns a detached value the caller may keep. The adjusted order and
// meta map are duplicated so callers cannot reach back into service state.
func (s *Session) copy() Session {
	out := *s
	if s.AdjustedOrder != nil {
		adj := *s.AdjustedOrder
		out.AdjustedOrder = &adj
	}
	if s.Meta != nil {
		out.Meta = make(map[string]any, len(s.Meta))
		for k, v := range s.Meta {
			out.Meta[k] = v
		}
	}
	return out
}
