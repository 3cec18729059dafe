package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trendbot-go/internal/paper"
	"trendbot-go/internal/position"
	"trendbot-go/internal/signal"
)

type fakeSubmitter struct {
	requests []OrderRequest
	failures int
	calls    int
}

func (f *fakeSubmitter) Submit(_ context.Context, req OrderRequest) (signal.OrderConfirmation, error) {
	f.calls++
	if f.calls <= f.failures {
		return signal.OrderConfirmation{}, errors.New("exchange unavailable")
	}
	f.requests = append(f.requests, req)
	return signal.OrderConfirmation{OrderID: "ord-1", Status: "matched"}, nil
}

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestSimulationRoundTrip(t *testing.T) {
	positions := position.NewStore()
	account := paper.NewAccount(d(100))
	ledger := paper.NewLedger()
	sim := NewSimulation(positions, account, ledger, zerolog.Nop())

	if err := sim.Execute(context.Background(), "bitcoin", signal.Enter(signal.SideUp, d(0.50), d(10))); err != nil {
		t.Fatalf("enter failed: %v", err)
	}
	if positions.OpenCount() != 1 {
		t.Fatalf("expected an open position, got %d", positions.OpenCount())
	}
	if err := sim.Execute(context.Background(), "bitcoin", signal.Exit(signal.SideUp, d(0.60), signal.ExitTakeProfit)); err != nil {
		t.Fatalf("exit failed: %v", err)
	}
	if positions.OpenCount() != 0 {
		t.Fatal("position not closed")
	}

	recs := ledger.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[1].Reason != string(signal.ExitTakeProfit) || recs[1].PnL != "2" {
		t.Fatalf("exit record %+v", recs[1])
	}
	snap := account.Snapshot(nil)
	if snap.Wins != 1 {
		t.Fatalf("wins = %d, want 1", snap.Wins)
	}
}

func TestSimulationHoldIsNoop(t *testing.T) {
	positions := position.NewStore()
	sim := NewSimulation(positions, paper.NewAccount(d(100)), paper.NewLedger(), zerolog.Nop())
	if err := sim.Execute(context.Background(), "bitcoin", signal.Hold()); err != nil {
		t.Fatalf("hold returned error: %v", err)
	}
	if positions.OpenCount() != 0 {
		t.Fatal("hold opened a position")
	}
}

func TestSimulationRollsBackOnInsufficientCash(t *testing.T) {
	positions := position.NewStore()
	account := paper.NewAccount(d(5))
	sim := NewSimulation(positions, account, paper.NewLedger(), zerolog.Nop())

	err := sim.Execute(context.Background(), "bitcoin", signal.Enter(signal.SideUp, d(0.50), d(10)))
	if !errors.Is(err, paper.ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}
	if positions.OpenCount() != 0 {
		t.Fatal("failed entry left a position reserved")
	}
}

func TestSimulationRejectsDoubleEntry(t *testing.T) {
	positions := position.NewStore()
	sim := NewSimulation(positions, paper.NewAccount(d(100)), paper.NewLedger(), zerolog.Nop())

	if err := sim.Execute(context.Background(), "bitcoin", signal.Enter(signal.SideUp, d(0.50), d(10))); err != nil {
		t.Fatalf("first entry failed: %v", err)
	}
	err := sim.Execute(context.Background(), "bitcoin", signal.Enter(signal.SideDown, d(0.50), d(10)))
	if !errors.Is(err, position.ErrAlreadyOpen) {
		t.Fatalf("expected ErrAlreadyOpen, got %v", err)
	}
}

func TestLiveRoundTrip(t *testing.T) {
	positions := position.NewStore()
	account := paper.NewAccount(d(100))
	ledger := paper.NewLedger()
	sub := &fakeSubmitter{}
	live := NewLive(positions, account, sub, ledger, 3, zerolog.Nop())

	if err := live.Execute(context.Background(), "bitcoin", signal.Enter(signal.SideUp, d(0.50), d(10))); err != nil {
		t.Fatalf("enter failed: %v", err)
	}
	if err := live.Execute(context.Background(), "bitcoin", signal.Exit(signal.SideUp, d(0.60), signal.ExitTakeProfit)); err != nil {
		t.Fatalf("exit failed: %v", err)
	}

	if len(sub.requests) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(sub.requests))
	}
	if sub.requests[0].Direction != DirectionBuy || sub.requests[1].Direction != DirectionSell {
		t.Fatalf("directions = %s, %s", sub.requests[0].Direction, sub.requests[1].Direction)
	}
	if !sub.requests[1].Size.Equal(d(10)) {
		t.Fatalf("exit should sell the full position, sold %s", sub.requests[1].Size)
	}
	recs := ledger.Records()
	if len(recs) != 2 || recs[0].OrderID != "ord-1" || recs[0].Mode != "live" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if positions.OpenCount() != 0 {
		t.Fatal("position not closed after confirmed exit")
	}
}

func TestLiveRetriesThenSucceeds(t *testing.T) {
	positions := position.NewStore()
	sub := &fakeSubmitter{failures: 2}
	live := NewLive(positions, paper.NewAccount(d(100)), sub, paper.NewLedger(), 3, zerolog.Nop())
	live.backoff = time.Millisecond

	if err := live.Execute(context.Background(), "bitcoin", signal.Enter(signal.SideUp, d(0.50), d(10))); err != nil {
		t.Fatalf("entry should succeed on the final attempt: %v", err)
	}
	if sub.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", sub.calls)
	}
	if positions.OpenCount() != 1 {
		t.Fatal("confirmed entry not recorded")
	}
}

func TestLiveFailureLeavesStateUnchanged(t *testing.T) {
	positions := position.NewStore()
	account := paper.NewAccount(d(100))
	ledger := paper.NewLedger()
	sub := &fakeSubmitter{failures: 10}
	live := NewLive(positions, account, sub, ledger, 2, zerolog.Nop())
	live.backoff = time.Millisecond

	err := live.Execute(context.Background(), "bitcoin", signal.Enter(signal.SideUp, d(0.50), d(10)))
	if err == nil {
		t.Fatal("expected submission failure")
	}
	if positions.OpenCount() != 0 {
		t.Fatal("failed entry mutated position state")
	}
	if len(ledger.Records()) != 0 {
		t.Fatal("failed entry was recorded")
	}
	snap := account.Snapshot(nil)
	if !snap.Cash.Equal(d(100)) {
		t.Fatalf("failed entry touched the account: cash %s", snap.Cash)
	}
}

func TestLiveExitWithoutPosition(t *testing.T) {
	live := NewLive(position.NewStore(), paper.NewAccount(d(100)), &fakeSubmitter{}, paper.NewLedger(), 1, zerolog.Nop())
	err := live.Execute(context.Background(), "bitcoin", signal.Exit(signal.SideUp, d(0.60), signal.ExitSignalReversal))
	if !errors.Is(err, position.ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
}

// The same action sequence must leave sim and live dispatchers with the same
// position state and the same trade history, order IDs aside.
func TestSimAndLiveEquivalence(t *testing.T) {
	actions := []signal.TradeAction{
		signal.Enter(signal.SideUp, d(0.50), d(10)),
		signal.Hold(),
		signal.Exit(signal.SideUp, d(0.44), signal.ExitStopLoss),
		signal.Enter(signal.SideDown, d(0.30), d(10)),
		signal.Exit(signal.SideDown, d(0.40), signal.ExitTakeProfit),
	}

	simPos, livePos := position.NewStore(), position.NewStore()
	simAcct, liveAcct := paper.NewAccount(d(100)), paper.NewAccount(d(100))
	simLedger, liveLedger := paper.NewLedger(), paper.NewLedger()
	sim := NewSimulation(simPos, simAcct, simLedger, zerolog.Nop())
	live := NewLive(livePos, liveAcct, &fakeSubmitter{}, liveLedger, 1, zerolog.Nop())

	for i, act := range actions {
		if err := sim.Execute(context.Background(), "bitcoin", act); err != nil {
			t.Fatalf("sim action %d: %v", i, err)
		}
		if err := live.Execute(context.Background(), "bitcoin", act); err != nil {
			t.Fatalf("live action %d: %v", i, err)
		}
	}

	if simPos.OpenCount() != livePos.OpenCount() {
		t.Fatalf("position divergence: sim %d, live %d", simPos.OpenCount(), livePos.OpenCount())
	}
	simRecs, liveRecs := simLedger.Records(), liveLedger.Records()
	if len(simRecs) != len(liveRecs) {
		t.Fatalf("record count divergence: sim %d, live %d", len(simRecs), len(liveRecs))
	}
	for i := range simRecs {
		if simRecs[i].Action != liveRecs[i].Action || simRecs[i].Side != liveRecs[i].Side ||
			simRecs[i].Price != liveRecs[i].Price || simRecs[i].Reason != liveRecs[i].Reason ||
			simRecs[i].PnL != liveRecs[i].PnL {
			t.Fatalf("record %d diverges:\nsim:  %+v\nlive: %+v", i, simRecs[i], liveRecs[i])
		}
	}
	simSnap, liveSnap := simAcct.Snapshot(nil), liveAcct.Snapshot(nil)
	if !simSnap.Realized.Equal(liveSnap.Realized) {
		t.Fatalf("realized divergence: sim %s, live %s", simSnap.Realized, liveSnap.Realized)
	}
}
