// Package dispatch executes strategy decisions, either against the simulated
// account or a live order endpoint. Both paths apply the same position
// bookkeeping so a strategy behaves identically in sim and live modes.
package dispatch

import (
	"context"

	"github.com/shopspring/decimal"

	"trendbot-go/internal/signal"
)

// Direction of an order relative to the outcome token.
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// OrderRequest is a single order handed to an exchange submitter.
type OrderRequest struct {
	Market    string
	Token     signal.Side
	Direction string
	Price     decimal.Decimal
	Size      decimal.Decimal
}

// OrderSubmitter places one order with the exchange.
type OrderSubmitter interface {
	Submit(ctx context.Context, req OrderRequest) (signal.OrderConfirmation, error)
}

// Dispatcher executes one trade action for a market. Hold actions return
// immediately. Implementations must leave all state unchanged when execution
// fails.
type Dispatcher interface {
	Execute(ctx context.Context, market string, action signal.TradeAction) error
}
