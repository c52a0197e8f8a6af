// Package metrics exposes the Prometheus counters for the decision and
// execution path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fiona"

var (
	// RiskEvaluations counts risk engine decisions by result
	// (allowed, adjusted, denied).
	RiskEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "risk_evaluations_total",
		Help:      "Risk engine decisions by result.",
	}, []string{"result"})

	// RiskViolations counts individual rule failures by violation code.
	RiskViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "risk_violations_total",
		Help:      "Risk rule failures by violation code.",
	}, []string{"code"})

	// StateTransitions counts session state changes.
	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Execution session state transitions.",
	}, []string{"from", "to"})

	// TradesOpened counts opened trades by mode (live, shadow).
	TradesOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_opened_total",
		Help:      "Trades opened by mode.",
	}, []string{"mode"})

	// ShadowExits counts shadow trade closures by exit reason.
	ShadowExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shadow_exits_total",
		Help:      "Shadow trade closures by exit reason.",
	}, []string{"reason"})

	// BrokerFailures counts broker calls that errored or were rejected.
	BrokerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broker_failures_total",
		Help:      "Broker calls that failed or were rejected.",
	})

	// OpenShadowTrades tracks the current size of the shadow open-set.
	OpenShadowTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_shadow_trades",
		Help:      "Shadow trades currently tracked as open.",
	})
)
