// Package strategy turns a window of market observations plus the current
// position into a single trade action per evaluation cycle.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"trendbot-go/internal/signal"
)

// Position is the strategy's view of what is currently held in a market.
// The zero value means flat.
type Position struct {
	Open       bool
	Side       signal.Side
	EntryPrice decimal.Decimal
}

// Params tunes a strategy instance. One set of params is shared across all
// monitored markets; per-market state lives in the Window.
type Params struct {
	// TrendThreshold is the overbought boundary for RSI (oversold is its
	// mirror, 100-TrendThreshold) and the reversal boundary for the other
	// modes where applicable.
	TrendThreshold float64
	// ProfitThreshold is the absolute price gain over entry that triggers a
	// take-profit exit.
	ProfitThreshold decimal.Decimal
	// StopLossThreshold is the absolute price drop under entry that triggers
	// a stop-loss exit. Stop-loss always wins when both thresholds are hit
	// in the same cycle.
	StopLossThreshold decimal.Decimal
	// Lookback is the RSI and momentum period.
	Lookback int

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	// MomentumThresholdPct is the percent change that counts as a trend for
	// the momentum mode.
	MomentumThresholdPct float64

	// PositionSize is the notional committed on each entry.
	PositionSize decimal.Decimal
}

// Strategy evaluates one market each cycle. Implementations keep no mutable
// state of their own; everything they need is in the window and the position.
type Strategy interface {
	Name() string
	Evaluate(w *Window, pos Position) signal.TradeAction
}

// Build constructs the strategy for the configured mode.
func Build(mode string, params Params) (Strategy, error) {
	switch mode {
	case "rsi":
		return &RSIStrategy{params: params}, nil
	case "macd":
		return &MACDStrategy{params: params}, nil
	case "momentum":
		return &MomentumStrategy{params: params}, nil
	default:
		return nil, fmt.Errorf("unknown strategy mode %q", mode)
	}
}

// exitOnThresholds applies the price-based exit rules shared by every mode.
// Stop-loss is checked before take-profit, so a cycle whose price move
// crosses both boundaries closes as a loss, never a win. The position is
// closed at the current ask of the held token.
func exitOnThresholds(pos Position, current decimal.Decimal, p Params) (signal.TradeAction, bool) {
	if current.LessThanOrEqual(pos.EntryPrice.Sub(p.StopLossThreshold)) {
		return signal.Exit(pos.Side, current, signal.ExitStopLoss), true
	}
	if current.GreaterThanOrEqual(pos.EntryPrice.Add(p.ProfitThreshold)) {
		return signal.Exit(pos.Side, current, signal.ExitTakeProfit), true
	}
	return signal.TradeAction{}, false
}

func heldAsk(w *Window, side signal.Side) (decimal.Decimal, bool) {
	last, ok := w.Last()
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(last.Ask(side)), true
}
