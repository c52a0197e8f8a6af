// Package ki holds the output model of the AI evaluation layer.
//
// The AI does not decide whether to trade; it suggests direction, levels and
// size. Risk engine plus user make the final call.
package ki

import (
	"time"

	"github.com/fiona-trading/fiona/strategy"
)

// SignalStrength classifies how strongly the evaluation backs the setup.
type SignalStrength string

const (
	StrongSignal SignalStrength = "strong_signal"
	WeakSignal   SignalStrength = "weak_signal"
	NoTrade      SignalStrength = "no_trade"
)

// Evaluation is the consolidated result of the AI layer for one setup.
type Evaluation struct {
	ID        string
	SetupID   string
	Timestamp time.Time

	FinalDirection  strategy.Direction
	FinalStopLoss   *float64
	FinalTakeProfit *float64
	FinalSize       float64
	FinalReason     string

	SignalStrength SignalStrength
	Confidence     *float64 // reflection score, 0-100
}

// TradeParameters are the merged trade values of a tradeable evaluation.
type TradeParameters struct {
	Direction  strategy.Direction
	StopLoss   *float64
	TakeProfit *float64
	Size       float64
	Strength   SignalStrength
	Confidence *float64
}

// IsTradeable reports whether the evaluation suggests a tradeable signal.
// Advisory only.
func (e *Evaluation) IsTradeable() bool {
	return e.SignalStrength != NoTrade
}

// TradeParameters returns the final trade values, or nil when the
// evaluation is not tradeable.
func (e *Evaluation) TradeParameters() *TradeParameters {
	if !e.IsTradeable() {
		return nil
	}
	return &TradeParameters{
		Direction:  e.FinalDirection,
		StopLoss:   e.FinalStopLoss,
		TakeProfit: e.FinalTakeProfit,
		Size:       e.FinalSize,
		Strength:   e.SignalStrength,
		Confidence: e.Confidence,
	}
}
