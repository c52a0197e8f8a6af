package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransitions(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to State }{
		{NewSignal, KiEvaluated},
		{KiEvaluated, RiskApproved},
		{KiEvaluated, RiskRejected},
		{RiskApproved, WaitingForUser},
		{RiskRejected, ShadowOnly},
		{WaitingForUser, UserAccepted},
		{WaitingForUser, UserShadow},
		{WaitingForUser, UserRejected},
		{ShadowOnly, UserShadow},
		{ShadowOnly, UserRejected},
		{UserAccepted, LiveTradeOpen},
		{UserShadow, ShadowTradeOpen},
		{UserRejected, Dropped},
		{LiveTradeOpen, Exited},
		{ShadowTradeOpen, Exited},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to State }{
		{WaitingForUser, LiveTradeOpen},
		{ShadowOnly, UserAccepted},
		{UserAccepted, WaitingForUser},
		{Exited, NewSignal},
		{Dropped, WaitingForUser},
		{NewSignal, LiveTradeOpen},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestLiveAndShadowHaveSingleEntryPoints(t *testing.T) {
	t.Parallel()

	// LIVE_TRADE_OPEN is reachable from USER_ACCEPTED only, and
	// SHADOW_TRADE_OPEN from USER_SHADOW only.
	for from, nexts := range ValidTransitions {
		for _, to := range nexts {
			if to == LiveTradeOpen {
				assert.Equal(t, UserAccepted, from)
			}
			if to == ShadowTradeOpen {
				assert.Equal(t, UserShadow, from)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	t.Parallel()

	assert.True(t, Exited.IsTerminal())
	assert.True(t, Dropped.IsTerminal())
	assert.False(t, WaitingForUser.IsTerminal())
	assert.False(t, LiveTradeOpen.IsTerminal())

	assert.Empty(t, ValidTransitions[Exited])
	assert.Empty(t, ValidTransitions[Dropped])
}

func TestRiskRejectedOnlyLeadsToShadow(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []State{ShadowOnly}, ValidTransitions[RiskRejected])
}

func TestStateHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, LiveTradeOpen.IsTradeOpen())
	assert.True(t, ShadowTradeOpen.IsTradeOpen())
	assert.False(t, WaitingForUser.IsTradeOpen())

	assert.True(t, WaitingForUser.AllowsUserAction())
	assert.True(t, ShadowOnly.AllowsUserAction())
	assert.False(t, UserAccepted.AllowsUserAction())
	assert.False(t, RiskRejected.AllowsUserAction())
}
