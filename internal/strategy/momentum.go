package strategy

import (
	"github.com/shopspring/decimal"

	"trendbot-go/internal/indicator"
	"trendbot-go/internal/signal"
)

// MomentumStrategy trades raw rate of change on the Up token ask. It enters
// Up when the percent change over the lookback exceeds the momentum
// threshold and Down when it falls below the negated threshold. An open
// position is closed on stop-loss, take-profit, or when momentum crosses to
// the opposite side of zero.
type MomentumStrategy struct {
	params Params
}

func (s *MomentumStrategy) Name() string { return "momentum" }

func (s *MomentumStrategy) Evaluate(w *Window, pos Position) signal.TradeAction {
	mom, err := indicator.Momentum(w.UpAsks(), s.params.Lookback)
	if err != nil {
		return signal.Hold()
	}

	if pos.Open {
		current, ok := heldAsk(w, pos.Side)
		if !ok {
			return signal.Hold()
		}
		if act, done := exitOnThresholds(pos, current, s.params); done {
			return act
		}
		if pos.Side == signal.SideUp && mom < 0 {
			return signal.Exit(pos.Side, current, signal.ExitSignalReversal)
		}
		if pos.Side == signal.SideDown && mom > 0 {
			return signal.Exit(pos.Side, current, signal.ExitSignalReversal)
		}
		return signal.Hold()
	}

	last, ok := w.Last()
	if !ok {
		return signal.Hold()
	}
	switch {
	case mom > s.params.MomentumThresholdPct:
		return signal.Enter(signal.SideUp, decimal.NewFromFloat(last.UpAsk), s.params.PositionSize)
	case mom < -s.params.MomentumThresholdPct:
		return signal.Enter(signal.SideDown, decimal.NewFromFloat(last.DownAsk), s.params.PositionSize)
	}
	return signal.Hold()
}
