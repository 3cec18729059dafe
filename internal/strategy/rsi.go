package strategy

import (
	"github.com/shopspring/decimal"

	"trendbot-go/internal/indicator"
	"trendbot-go/internal/signal"
)

// RSIStrategy trades mean reversion on the Up token ask series. It enters
// Up when RSI drops below the oversold boundary (100 - TrendThreshold) and
// Down when RSI rises above TrendThreshold. An open position is closed on
// stop-loss, take-profit, or when RSI crosses back through the boundary it
// entered on.
type RSIStrategy struct {
	params Params
}

func (s *RSIStrategy) Name() string { return "rsi" }

func (s *RSIStrategy) Evaluate(w *Window, pos Position) signal.TradeAction {
	rsi, err := indicator.RSI(w.UpAsks(), s.params.Lookback)
	if err != nil {
		return signal.Hold()
	}

	oversold := 100 - s.params.TrendThreshold
	overbought := s.params.TrendThreshold

	if pos.Open {
		current, ok := heldAsk(w, pos.Side)
		if !ok {
			return signal.Hold()
		}
		if act, done := exitOnThresholds(pos, current, s.params); done {
			return act
		}
		// Signal reversal: RSI has crossed back through the entry boundary.
		if pos.Side == signal.SideUp && rsi > oversold {
			return signal.Exit(pos.Side, current, signal.ExitSignalReversal)
		}
		if pos.Side == signal.SideDown && rsi < overbought {
			return signal.Exit(pos.Side, current, signal.ExitSignalReversal)
		}
		return signal.Hold()
	}

	last, ok := w.Last()
	if !ok {
		return signal.Hold()
	}
	switch {
	case rsi < oversold:
		return signal.Enter(signal.SideUp, decimal.NewFromFloat(last.UpAsk), s.params.PositionSize)
	case rsi > overbought:
		return signal.Enter(signal.SideDown, decimal.NewFromFloat(last.DownAsk), s.params.PositionSize)
	}
	return signal.Hold()
}
