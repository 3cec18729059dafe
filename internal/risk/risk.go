// Package risk enforces pre-trade limits on new entries.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Limits caps what the bot may commit. A zero value disables the
// corresponding check.
type Limits struct {
	MaxNotionalPerTrade decimal.Decimal
	MaxOpenPositions    int
}

// AllowEntry reports whether a new entry of the given notional is permitted
// with openCount positions already held. The returned error names the limit
// that blocked it.
func (l Limits) AllowEntry(notional decimal.Decimal, openCount int) error {
	if l.MaxNotionalPerTrade.GreaterThan(decimal.Zero) && notional.GreaterThan(l.MaxNotionalPerTrade) {
		return fmt.Errorf("notional %s exceeds per-trade cap %s", notional, l.MaxNotionalPerTrade)
	}
	if l.MaxOpenPositions > 0 && openCount >= l.MaxOpenPositions {
		return fmt.Errorf("open positions %d at cap %d", openCount, l.MaxOpenPositions)
	}
	return nil
}
