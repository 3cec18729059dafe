// Package position tracks the single open position allowed per market.
package position

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trendbot-go/internal/signal"
)

var (
	// ErrAlreadyOpen reports an entry attempt on a market that already
	// holds a position.
	ErrAlreadyOpen = errors.New("position already open for market")
	// ErrNoPosition reports an exit attempt on a market with nothing held.
	ErrNoPosition = errors.New("no open position for market")
)

// Position records one open holding in a market.
type Position struct {
	Market     string
	Side       signal.Side
	EntryPrice decimal.Decimal
	Size       decimal.Decimal
	OpenedAt   time.Time
}

// Store holds at most one position per market. Safe for concurrent use by
// the per-market evaluation goroutines.
type Store struct {
	mu   sync.Mutex
	open map[string]Position
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{open: make(map[string]Position)}
}

// Open records a new position. Fails with ErrAlreadyOpen if the market
// already holds one; the existing position is untouched.
func (s *Store) Open(p Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[p.Market]; ok {
		return ErrAlreadyOpen
	}
	s.open[p.Market] = p
	return nil
}

// Close removes and returns the market's position. Fails with ErrNoPosition
// when flat.
func (s *Store) Close(market string) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.open[market]
	if !ok {
		return Position{}, ErrNoPosition
	}
	delete(s.open, market)
	return p, nil
}

// Get returns the market's position, if any.
func (s *Store) Get(market string) (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.open[market]
	return p, ok
}

// OpenCount returns the number of markets currently holding a position.
func (s *Store) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}
