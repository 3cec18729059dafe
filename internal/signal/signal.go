// Package signal standardizes payloads shared between market data, strategy, and dispatch layers.
package signal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which outcome token of an up/down market a position holds.
type Side string

const (
	// SideUp is the token that settles at 1.0 when the underlying goes up.
	SideUp Side = "UP"
	// SideDown is the token that settles at 1.0 when the underlying goes down.
	SideDown Side = "DOWN"
)

// Opposite returns the other outcome token of the same market.
func (s Side) Opposite() Side {
	if s == SideUp {
		return SideDown
	}
	return SideUp
}

// PricePoint is one observation of both outcome token quotes for a market.
// Points are immutable once recorded and strictly ordered by Ts within a market.
type PricePoint struct {
	Market   string
	UpAsk    float64
	DownAsk  float64
	UpBid    float64
	DownBid  float64
	Volume   float64
	PeriodTs int64 // unix start of the 15-minute window this market settles on
	Ts       time.Time
}

// Ask returns the ask quote for the requested outcome token.
func (p PricePoint) Ask(side Side) float64 {
	if side == SideUp {
		return p.UpAsk
	}
	return p.DownAsk
}

// ActionKind discriminates the trade action variants a strategy can emit.
type ActionKind string

const (
	ActionHold  ActionKind = "HOLD"
	ActionEnter ActionKind = "ENTER"
	ActionExit  ActionKind = "EXIT"
)

// ExitReason explains why a position is being closed.
type ExitReason string

const (
	ExitTakeProfit     ExitReason = "take_profit"
	ExitStopLoss       ExitReason = "stop_loss"
	ExitSignalReversal ExitReason = "signal_reversal"
	// ExitMarketSettled closes a position at the 0/1 outcome when the
	// 15-minute market expires with the position still open.
	ExitMarketSettled ExitReason = "market_settled"
)

// TradeAction is a single decision produced by a strategy evaluation.
// It is transient: the dispatcher consumes it within the same cycle.
type TradeAction struct {
	Kind   ActionKind
	Side   Side
	Price  decimal.Decimal
	Size   decimal.Decimal
	Reason ExitReason
}

// Hold returns the neutral no-op action.
func Hold() TradeAction {
	return TradeAction{Kind: ActionHold}
}

// Enter returns an action opening a position on the given outcome token.
func Enter(side Side, price, size decimal.Decimal) TradeAction {
	return TradeAction{Kind: ActionEnter, Side: side, Price: price, Size: size}
}

// Exit returns an action closing the open position on the given token.
func Exit(side Side, price decimal.Decimal, reason ExitReason) TradeAction {
	return TradeAction{Kind: ActionExit, Side: side, Price: price, Reason: reason}
}

// OrderConfirmation is the exchange acknowledgement for a submitted order.
type OrderConfirmation struct {
	OrderID string
	Status  string
}
