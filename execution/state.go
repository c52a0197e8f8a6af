package execution

// State is the lifecycle state of an execution session.
type State string

const (
	NewSignal       State = "NEW_SIGNAL"
	KiEvaluated     State = "KI_EVALUATED"
	RiskApproved    State = "RISK_APPROVED"
	RiskRejected    State = "RISK_REJECTED"
	WaitingForUser  State = "WAITING_FOR_USER"
	ShadowOnly      State = "SHADOW_ONLY"
	UserAccepted    State = "USER_ACCEPTED"
	UserShadow      State = "USER_SHADOW"
	UserRejected    State = "USER_REJECTED"
	LiveTradeOpen   State = "LIVE_TRADE_OPEN"
	ShadowTradeOpen State = "SHADOW_TRADE_OPEN"
	Exited          State = "EXITED"
	Dropped         State = "DROPPED"
)

// ValidTransitions is the closed transition table. Anything absent here is
// rejected with INVALID_STATE.
//
// RISK_REJECTED deliberately has no outgoing edge: once a denied signal
// lands there (shadow-on-denial disabled) it stays for audit.
var ValidTransitions = map[State][]State{
	NewSignal:       {KiEvaluated},
	KiEvaluated:     {RiskApproved, RiskRejected},
	RiskApproved:    {WaitingForUser},
	RiskRejected:    {ShadowOnly},
	WaitingForUser:  {UserAccepted, UserShadow, UserRejected},
	ShadowOnly:      {UserShadow, UserRejected},
	UserAccepted:    {LiveTradeOpen},
	UserShadow:      {ShadowTradeOpen},
	UserRejected:    {Dropped},
	LiveTradeOpen:   {Exited},
	ShadowTradeOpen: {Exited},
	Exited:          {},
	Dropped:         {},
}

// CanTransition reports whether the table permits from -> to.
func CanTransition(from, to State) bool {
	for _, next := range ValidTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state ends the session lifecycle.
func (s State) IsTerminal() bool {
	return s == Exited || s == Dropped
}

// IsTradeOpen reports whether a live or shadow trade is currently open.
func (s State) IsTradeOpen() bool {
	return s == LiveTradeOpen || s == ShadowTradeOpen
}

// AllowsUserAction reports whether the session is waiting on a user
// decision (accept, shadow, or reject).
func (s State) AllowsUserAction() bool {
	return s == WaitingForUser || s == ShadowOnly
}
