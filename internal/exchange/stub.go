package exchange

import (
	"context"
	"math"
	"sync"
	"time"

	"trendbot-go/internal/signal"
)

// StubSource produces a deterministic synthetic quote series. Each market
// walks a slow sine wave around 0.50 with a fixed per-market phase, so runs
// are reproducible and need no network.
type StubSource struct {
	now func() time.Time

	mu    sync.Mutex
	ticks map[string]int
}

// NewStubSource builds a stub source.
func NewStubSource() *StubSource {
	return &StubSource{
		now:   time.Now,
		ticks: make(map[string]int),
	}
}

// FetchSnapshot implements the monitor's data source.
func (s *StubSource) FetchSnapshot(_ context.Context, market string) (signal.PricePoint, error) {
	s.mu.Lock()
	tick := s.ticks[market]
	s.ticks[market]++
	s.mu.Unlock()

	phase := float64(len(market)%7) * 0.9
	upAsk := 0.50 + 0.20*math.Sin(float64(tick)*0.25+phase)
	downAsk := 1.0 - upAsk

	now := s.now()
	return signal.PricePoint{
		Market:   market,
		UpAsk:    upAsk,
		DownAsk:  downAsk,
		UpBid:    upAsk - 0.01,
		DownBid:  downAsk - 0.01,
		PeriodTs: currentPeriod(now),
		Ts:       now,
	}, nil
}
