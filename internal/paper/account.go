// Package paper simulates fills and tracks the cash, PnL, and trade history
// of a simulated account.
package paper

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"trendbot-go/internal/signal"
)

// ErrInsufficientCash reports an entry whose notional exceeds available cash.
var ErrInsufficientCash = errors.New("insufficient cash")

type openTrade struct {
	side   signal.Side
	price  decimal.Decimal
	shares decimal.Decimal
	cost   decimal.Decimal
}

// Account is a simulated trading account. Entries spend cash for outcome
// token shares at the quoted ask; exits convert shares back at the exit
// price. Safe for concurrent use.
type Account struct {
	mu       sync.Mutex
	cash     decimal.Decimal
	realized decimal.Decimal
	fundUsed decimal.Decimal
	wins     int
	losses   int
	open     map[string]openTrade
}

// NewAccount creates an account with the given starting cash.
func NewAccount(startingCash decimal.Decimal) *Account {
	return &Account{
		cash: startingCash,
		open: make(map[string]openTrade),
	}
}

// OpenTrade spends notional cash on shares of the given token at price.
// Fails without mutating state when cash is short or the market already has
// a simulated fill outstanding.
func (a *Account) OpenTrade(market string, side signal.Side, price, notional decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("open %s: non-positive price %s", market, price)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.open[market]; ok {
		return fmt.Errorf("open %s: fill already outstanding", market)
	}
	if notional.GreaterThan(a.cash) {
		return fmt.Errorf("open %s for %s with %s cash: %w", market, notional, a.cash, ErrInsufficientCash)
	}
	a.cash = a.cash.Sub(notional)
	a.fundUsed = a.fundUsed.Add(notional)
	a.open[market] = openTrade{
		side:   side,
		price:  price,
		shares: notional.Div(price),
		cost:   notional,
	}
	return nil
}

// CloseTrade sells the market's shares at exitPrice and returns the realized
// PnL of the round trip.
func (a *Account) CloseTrade(market string, exitPrice decimal.Decimal) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tr, ok := a.open[market]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("close %s: no outstanding fill", market)
	}
	delete(a.open, market)

	proceeds := tr.shares.Mul(exitPrice)
	pnl := proceeds.Sub(tr.cost)
	a.cash = a.cash.Add(proceeds)
	a.realized = a.realized.Add(pnl)
	if pnl.GreaterThan(decimal.Zero) {
		a.wins++
	} else {
		a.losses++
	}
	return pnl, nil
}

// Snapshot is a point-in-time view of the account.
type Snapshot struct {
	Cash       decimal.Decimal
	Realized   decimal.Decimal
	Equity     decimal.Decimal
	FundUsed   decimal.Decimal
	Wins       int
	Losses     int
	OpenTrades int
}

// Snapshot values the account. Open trades are marked with the prices in
// marks; markets without a mark are valued at their entry price.
func (a *Account) Snapshot(marks map[string]decimal.Decimal) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	equity := a.cash
	for market, tr := range a.open {
		mark := tr.price
		if m, ok := marks[market]; ok {
			mark = m
		}
		equity = equity.Add(tr.shares.Mul(mark))
	}
	return Snapshot{
		Cash:       a.cash,
		Realized:   a.realized,
		Equity:     equity,
		FundUsed:   a.fundUsed,
		Wins:       a.wins,
		Losses:     a.losses,
		OpenTrades: len(a.open),
	}
}
