package strategy

import (
	"github.com/shopspring/decimal"

	"trendbot-go/internal/indicator"
	"trendbot-go/internal/signal"
)

// MACDStrategy trades trend acceleration. It enters Up when the MACD line is
// above the signal line and still rising since the previous point, and Down
// on the mirrored condition. An open position is closed on stop-loss,
// take-profit, or when the histogram flips against the held side.
type MACDStrategy struct {
	params Params
}

func (s *MACDStrategy) Name() string { return "macd" }

func (s *MACDStrategy) Evaluate(w *Window, pos Position) signal.TradeAction {
	series := w.UpAsks()
	cur, err := indicator.MACD(series, s.params.MACDFast, s.params.MACDSlow, s.params.MACDSignal)
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
		if pos.Side == signal.SideUp && cur.Histogram < 0 {
			return signal.Exit(pos.Side, current, signal.ExitSignalReversal)
		}
		if pos.Side == signal.SideDown && cur.Histogram > 0 {
			return signal.Exit(pos.Side, current, signal.ExitSignalReversal)
		}
		return signal.Hold()
	}

	// Entry needs the line to be moving, not just positioned: compare
	// against the MACD of the window without its latest point.
	prev, err := indicator.MACD(series[:len(series)-1], s.params.MACDFast, s.params.MACDSlow, s.params.MACDSignal)
	if err != nil {
		return signal.Hold()
	}

	last, ok := w.Last()
	if !ok {
		return signal.Hold()
	}
	switch {
	case cur.Histogram > 0 && cur.Line > prev.Line:
		return signal.Enter(signal.SideUp, decimal.NewFromFloat(last.UpAsk), s.params.PositionSize)
	case cur.Histogram < 0 && cur.Line < prev.Line:
		return signal.Enter(signal.SideDown, decimal.NewFromFloat(last.DownAsk), s.params.PositionSize)
	}
	return signal.Hold()
}
