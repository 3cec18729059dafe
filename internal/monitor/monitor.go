// Package monitor runs the evaluation loop: one goroutine per market that
// fetches a snapshot, consults the strategy, and hands the decision to the
// dispatcher. A failure in one market never disturbs the others.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trendbot-go/internal/dispatch"
	"trendbot-go/internal/metrics"
	"trendbot-go/internal/position"
	"trendbot-go/internal/risk"
	"trendbot-go/internal/signal"
	"trendbot-go/internal/strategy"
)

const periodSeconds = 900

// Clock abstracts time so the loop is deterministic under test.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// MarketDataSource produces one fresh observation for a market.
type MarketDataSource interface {
	FetchSnapshot(ctx context.Context, market string) (signal.PricePoint, error)
}

// Options tunes the loop.
type Options struct {
	Markets       []string
	Interval      time.Duration
	FetchTimeout  time.Duration
	DispatchWait  time.Duration
	WindowSize    int
	// EntryCutoff blocks new entries when less than this much time remains
	// in the market's 15-minute window.
	EntryCutoff time.Duration
}

// Monitor drives the per-market loops.
type Monitor struct {
	source     MarketDataSource
	strat      strategy.Strategy
	positions  *position.Store
	dispatcher dispatch.Dispatcher
	limits     risk.Limits
	opts       Options
	clock      Clock
	log        zerolog.Logger
}

// New wires a monitor.
func New(source MarketDataSource, strat strategy.Strategy, positions *position.Store, dispatcher dispatch.Dispatcher, limits risk.Limits, opts Options, log zerolog.Logger) *Monitor {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 3 * time.Second
	}
	if opts.DispatchWait <= 0 {
		opts.DispatchWait = 10 * time.Second
	}
	if opts.WindowSize < 2 {
		opts.WindowSize = 2
	}
	return &Monitor{
		source:     source,
		strat:      strat,
		positions:  positions,
		dispatcher: dispatcher,
		limits:     limits,
		opts:       opts,
		clock:      realClock{},
		log:        log.With().Str("component", "monitor").Logger(),
	}
}

// Run blocks until ctx is canceled and every market loop, including any
// in-flight dispatch, has finished.
func (m *Monitor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, market := range m.opts.Markets {
		wg.Add(1)
		go func(market string) {
			defer wg.Done()
			m.runMarket(ctx, market)
		}(market)
	}
	wg.Wait()
}

func (m *Monitor) runMarket(ctx context.Context, market string) {
	log := m.log.With().Str("market", market).Logger()
	log.Info().Str("strategy", m.strat.Name()).Msg("market loop started")

	w := strategy.NewWindow(m.opts.WindowSize)
	var lastPeriod int64

	ticker := m.clock.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.evaluate(ctx, market, w, &lastPeriod, log)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("market loop stopped")
			return
		case <-ticker.C():
			m.evaluate(ctx, market, w, &lastPeriod, log)
		}
	}
}

func (m *Monitor) evaluate(ctx context.Context, market string, w *strategy.Window, lastPeriod *int64, log zerolog.Logger) {
	fetchCtx, cancel := context.WithTimeout(ctx, m.opts.FetchTimeout)
	pt, err := m.source.FetchSnapshot(fetchCtx, market)
	cancel()
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(market).Inc()
		log.Warn().Err(err).Msg("snapshot fetch failed")
		return
	}
	metrics.SnapshotsTotal.WithLabelValues(market).Inc()

	if *lastPeriod != 0 && pt.PeriodTs != *lastPeriod {
		m.settleExpired(ctx, market, w, log)
		w.Reset()
	}
	*lastPeriod = pt.PeriodTs
	w.Append(pt)

	var posView strategy.Position
	if pos, held := m.positions.Get(market); held {
		posView = strategy.Position{Open: true, Side: pos.Side, EntryPrice: pos.EntryPrice}
	}

	act := m.strat.Evaluate(w, posView)
	metrics.DecisionsTotal.WithLabelValues(market, string(act.Kind)).Inc()
	if act.Kind == signal.ActionHold {
		return
	}

	if act.Kind == signal.ActionEnter {
		remaining := time.Duration(pt.PeriodTs+periodSeconds-m.clock.Now().Unix()) * time.Second
		if remaining < m.opts.EntryCutoff {
			log.Debug().Dur("remaining", remaining).Msg("entry skipped near market end")
			return
		}
		if err := m.limits.AllowEntry(act.Size, m.positions.OpenCount()); err != nil {
			log.Warn().Err(err).Msg("entry blocked by risk limits")
			return
		}
	}

	m.execute(ctx, market, act, log)
}

// settleExpired force-closes an open position when its market's window has
// rolled over. A position held to expiry settles at 1.0 when the last quote
// was already at the winning bound, otherwise at 0.0.
func (m *Monitor) settleExpired(ctx context.Context, market string, w *strategy.Window, log zerolog.Logger) {
	pos, held := m.positions.Get(market)
	if !held {
		return
	}

	settle := decimal.Zero
	if last, ok := w.Last(); ok {
		if last.Ask(pos.Side) >= 0.99 {
			settle = decimal.NewFromInt(1)
		}
	} else {
		// No observation from the expired window survives; carry the
		// position out at entry so the books stay consistent.
		settle = pos.EntryPrice
		log.Warn().Msg("settling expired position without a final quote")
	}

	log.Info().Str("side", string(pos.Side)).Str("price", settle.String()).
		Msg("market expired with open position")
	m.execute(ctx, market, signal.Exit(pos.Side, settle, signal.ExitMarketSettled), log)
}

// execute runs the dispatcher detached from loop cancellation so shutdown
// never abandons an order mid-flight.
func (m *Monitor) execute(ctx context.Context, market string, act signal.TradeAction, log zerolog.Logger) {
	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.DispatchWait)
	defer cancel()
	if err := m.dispatcher.Execute(dispatchCtx, market, act); err != nil {
		log.Warn().Err(err).Str("action", string(act.Kind)).Msg("dispatch failed")
	}
}
