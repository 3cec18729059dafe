package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trendbot-go/internal/metrics"
	"trendbot-go/internal/paper"
	"trendbot-go/internal/position"
	"trendbot-go/internal/signal"
)

// Live submits orders to the exchange and only mutates local position state
// after the exchange confirms. A submission that fails after all retries
// leaves the market exactly as it was.
type Live struct {
	positions *position.Store
	account   *paper.Account
	submitter OrderSubmitter
	recorder  paper.TradeRecorder
	retries   int
	backoff   time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewLive wires a live dispatcher. The account mirrors exchange fills so
// stats and equity metrics work the same as in simulation. retries is the
// total number of submission attempts.
func NewLive(positions *position.Store, account *paper.Account, submitter OrderSubmitter, recorder paper.TradeRecorder, retries int, log zerolog.Logger) *Live {
	if retries < 1 {
		retries = 1
	}
	return &Live{
		positions: positions,
		account:   account,
		submitter: submitter,
		recorder:  recorder,
		retries:   retries,
		backoff:   500 * time.Millisecond,
		log:       log.With().Str("dispatch", "live").Logger(),
		now:       time.Now,
	}
}

// Execute implements Dispatcher.
func (l *Live) Execute(ctx context.Context, market string, action signal.TradeAction) error {
	switch action.Kind {
	case signal.ActionEnter:
		return l.enter(ctx, market, action)
	case signal.ActionExit:
		return l.exit(ctx, market, action)
	default:
		return nil
	}
}

func (l *Live) enter(ctx context.Context, market string, action signal.TradeAction) error {
	if _, held := l.positions.Get(market); held {
		return position.ErrAlreadyOpen
	}
	conf, err := l.submitWithRetry(ctx, OrderRequest{
		Market:    market,
		Token:     action.Side,
		Direction: DirectionBuy,
		Price:     action.Price,
		Size:      action.Size,
	})
	if err != nil {
		metrics.SubmitFailuresTotal.WithLabelValues(market).Inc()
		return fmt.Errorf("submit entry for %s: %w", market, err)
	}

	pos := position.Position{
		Market:     market,
		Side:       action.Side,
		EntryPrice: action.Price,
		Size:       action.Size,
		OpenedAt:   l.now(),
	}
	if err := l.positions.Open(pos); err != nil {
		return err
	}
	if err := l.account.OpenTrade(market, action.Side, action.Price, action.Size); err != nil {
		l.log.Warn().Err(err).Str("market", market).Msg("shadow account rejected confirmed fill")
	}

	metrics.OrdersTotal.WithLabelValues(market, string(action.Side)).Inc()
	l.recorder.Record(paper.TradeRecord{
		Ts:      l.now().UTC(),
		Market:  market,
		Action:  string(signal.ActionEnter),
		Side:    string(action.Side),
		Price:   action.Price.String(),
		Size:    action.Size.String(),
		OrderID: conf.OrderID,
		Mode:    "live",
	})
	l.log.Info().Str("market", market).Str("side", string(action.Side)).
		Str("price", action.Price.String()).Str("order_id", conf.OrderID).
		Msg("entered position")
	return nil
}

func (l *Live) exit(ctx context.Context, market string, action signal.TradeAction) error {
	pos, held := l.positions.Get(market)
	if !held {
		return position.ErrNoPosition
	}
	conf, err := l.submitWithRetry(ctx, OrderRequest{
		Market:    market,
		Token:     pos.Side,
		Direction: DirectionSell,
		Price:     action.Price,
		Size:      pos.Size,
	})
	if err != nil {
		metrics.SubmitFailuresTotal.WithLabelValues(market).Inc()
		return fmt.Errorf("submit exit for %s: %w", market, err)
	}

	if _, err := l.positions.Close(market); err != nil {
		return err
	}
	pnl, err := l.account.CloseTrade(market, action.Price)
	if err != nil {
		l.log.Warn().Err(err).Str("market", market).Msg("shadow account missed the round trip")
	} else {
		snap := l.account.Snapshot(nil)
		metrics.RealizedPnL.Set(snap.Realized.InexactFloat64())
		metrics.Equity.Set(snap.Equity.InexactFloat64())
	}

	metrics.OrdersTotal.WithLabelValues(market, string(action.Side)).Inc()
	l.recorder.Record(paper.TradeRecord{
		Ts:      l.now().UTC(),
		Market:  market,
		Action:  string(signal.ActionExit),
		Side:    string(action.Side),
		Price:   action.Price.String(),
		Reason:  string(action.Reason),
		PnL:     pnl.String(),
		OrderID: conf.OrderID,
		Mode:    "live",
	})
	l.log.Info().Str("market", market).Str("side", string(action.Side)).
		Str("price", action.Price.String()).Str("reason", string(action.Reason)).
		Str("order_id", conf.OrderID).Msg("exited position")
	return nil
}

func (l *Live) submitWithRetry(ctx context.Context, req OrderRequest) (signal.OrderConfirmation, error) {
	var lastErr error
	for attempt := 1; attempt <= l.retries; attempt++ {
		conf, err := l.submitter.Submit(ctx, req)
		if err == nil {
			return conf, nil
		}
		lastErr = err
		l.log.Warn().Err(err).Str("market", req.Market).Int("attempt", attempt).
			Msg("order submission failed")
		if attempt == l.retries {
			break
		}
		select {
		case <-ctx.Done():
			return signal.OrderConfirmation{}, ctx.Err()
		case <-time.After(l.backoff * time.Duration(attempt)):
		}
	}
	return signal.OrderConfirmation{}, lastErr
}
