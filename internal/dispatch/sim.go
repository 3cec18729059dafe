package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trendbot-go/internal/metrics"
	"trendbot-go/internal/paper"
	"trendbot-go/internal/position"
	"trendbot-go/internal/signal"
)

// Simulation executes actions against the paper account. No network calls.
type Simulation struct {
	positions *position.Store
	account   *paper.Account
	recorder  paper.TradeRecorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewSimulation wires a simulation dispatcher.
func NewSimulation(positions *position.Store, account *paper.Account, recorder paper.TradeRecorder, log zerolog.Logger) *Simulation {
	return &Simulation{
		positions: positions,
		account:   account,
		recorder:  recorder,
		log:       log.With().Str("dispatch", "sim").Logger(),
		now:       time.Now,
	}
}

// Execute implements Dispatcher.
func (s *Simulation) Execute(_ context.Context, market string, action signal.TradeAction) error {
	switch action.Kind {
	case signal.ActionEnter:
		return s.enter(market, action)
	case signal.ActionExit:
		return s.exit(market, action)
	default:
		return nil
	}
}

func (s *Simulation) enter(market string, action signal.TradeAction) error {
	pos := position.Position{
		Market:     market,
		Side:       action.Side,
		EntryPrice: action.Price,
		Size:       action.Size,
		OpenedAt:   s.now(),
	}
	if err := s.positions.Open(pos); err != nil {
		return err
	}
	if err := s.account.OpenTrade(market, action.Side, action.Price, action.Size); err != nil {
		// Roll the reservation back so the market stays flat.
		s.positions.Close(market)
		return err
	}

	metrics.OrdersTotal.WithLabelValues(market, string(action.Side)).Inc()
	s.recorder.Record(paper.TradeRecord{
		Ts:     s.now().UTC(),
		Market: market,
		Action: string(signal.ActionEnter),
		Side:   string(action.Side),
		Price:  action.Price.String(),
		Size:   action.Size.String(),
		Mode:   "sim",
	})
	s.log.Info().Str("market", market).Str("side", string(action.Side)).
		Str("price", action.Price.String()).Str("size", action.Size.String()).
		Msg("entered position")
	return nil
}

func (s *Simulation) exit(market string, action signal.TradeAction) error {
	if _, err := s.positions.Close(market); err != nil {
		return err
	}
	pnl, err := s.account.CloseTrade(market, action.Price)
	if err != nil {
		return err
	}

	snap := s.account.Snapshot(nil)
	metrics.OrdersTotal.WithLabelValues(market, string(action.Side)).Inc()
	metrics.RealizedPnL.Set(snap.Realized.InexactFloat64())
	metrics.Equity.Set(snap.Equity.InexactFloat64())
	s.recorder.Record(paper.TradeRecord{
		Ts:     s.now().UTC(),
		Market: market,
		Action: string(signal.ActionExit),
		Side:   string(action.Side),
		Price:  action.Price.String(),
		Reason: string(action.Reason),
		PnL:    pnl.String(),
		Mode:   "sim",
	})
	s.log.Info().Str("market", market).Str("side", string(action.Side)).
		Str("price", action.Price.String()).Str("reason", string(action.Reason)).
		Str("pnl", pnl.String()).Str("cash", snap.Cash.String()).
		Str("realized", snap.Realized.String()).
		Int("wins", snap.Wins).Int("losses", snap.Losses).
		Msg("exited position")
	return nil
}
