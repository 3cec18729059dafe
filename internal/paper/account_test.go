package paper

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trendbot-go/internal/signal"
)

func TestOpenCloseProfit(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(100))
	if err := a.OpenTrade("bitcoin", signal.SideUp, decimal.NewFromFloat(0.50), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("OpenTrade failed: %v", err)
	}

	snap := a.Snapshot(nil)
	if !snap.Cash.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("cash after open = %s, want 90", snap.Cash)
	}
	if snap.OpenTrades != 1 {
		t.Fatalf("OpenTrades = %d, want 1", snap.OpenTrades)
	}

	// 20 shares at 0.50; exiting at 0.60 returns 12 for a +2 round trip.
	pnl, err := a.CloseTrade("bitcoin", decimal.NewFromFloat(0.60))
	if err != nil {
		t.Fatalf("CloseTrade failed: %v", err)
	}
	if !pnl.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("pnl = %s, want 2", pnl)
	}

	snap = a.Snapshot(nil)
	if !snap.Cash.Equal(decimal.NewFromInt(102)) {
		t.Fatalf("cash after close = %s, want 102", snap.Cash)
	}
	if !snap.Realized.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("realized = %s, want 2", snap.Realized)
	}
	if snap.Wins != 1 || snap.Losses != 0 {
		t.Fatalf("wins/losses = %d/%d, want 1/0", snap.Wins, snap.Losses)
	}
}

func TestCloseAtLoss(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(100))
	if err := a.OpenTrade("ethereum", signal.SideDown, decimal.NewFromFloat(0.40), decimal.NewFromInt(20)); err != nil {
		t.Fatalf("OpenTrade failed: %v", err)
	}
	// 50 shares; settling at zero loses the full notional.
	pnl, err := a.CloseTrade("ethereum", decimal.Zero)
	if err != nil {
		t.Fatalf("CloseTrade failed: %v", err)
	}
	if !pnl.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("pnl = %s, want -20", pnl)
	}
	snap := a.Snapshot(nil)
	if snap.Losses != 1 {
		t.Fatalf("losses = %d, want 1", snap.Losses)
	}
	if !snap.Cash.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("cash = %s, want 80", snap.Cash)
	}
}

func TestInsufficientCashLeavesStateAlone(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(5))
	err := a.OpenTrade("bitcoin", signal.SideUp, decimal.NewFromFloat(0.50), decimal.NewFromInt(10))
	if !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}
	snap := a.Snapshot(nil)
	if !snap.Cash.Equal(decimal.NewFromInt(5)) || snap.OpenTrades != 0 {
		t.Fatalf("account mutated by rejected open: %+v", snap)
	}
}

func TestCloseWithoutOpen(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(100))
	if _, err := a.CloseTrade("solana", decimal.NewFromFloat(0.5)); err == nil {
		t.Fatal("expected error closing with no outstanding fill")
	}
}

func TestSnapshotMarksOpenTrades(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(100))
	if err := a.OpenTrade("bitcoin", signal.SideUp, decimal.NewFromFloat(0.50), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("OpenTrade failed: %v", err)
	}
	snap := a.Snapshot(map[string]decimal.Decimal{"bitcoin": decimal.NewFromFloat(0.55)})
	// 90 cash + 20 shares at 0.55.
	if !snap.Equity.Equal(decimal.NewFromInt(101)) {
		t.Fatalf("equity = %s, want 101", snap.Equity)
	}
	// Without a mark the position is carried at entry.
	snap = a.Snapshot(nil)
	if !snap.Equity.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unmarked equity = %s, want 100", snap.Equity)
	}
}

func TestLedgerOrder(t *testing.T) {
	l := NewLedger()
	l.Record(TradeRecord{Market: "bitcoin", Action: "ENTER"})
	l.Record(TradeRecord{Market: "bitcoin", Action: "EXIT"})
	recs := l.Records()
	if len(recs) != 2 || recs[0].Action != "ENTER" || recs[1].Action != "EXIT" {
		t.Fatalf("unexpected ledger contents: %+v", recs)
	}
}

func TestJSONLRecorderWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	r, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder failed: %v", err)
	}
	r.Record(TradeRecord{Ts: time.Now().UTC(), Market: "bitcoin", Action: "ENTER", Side: "UP", Price: "0.52", Mode: "sim"})
	r.Record(TradeRecord{Ts: time.Now().UTC(), Market: "bitcoin", Action: "EXIT", Side: "UP", Price: "0.57", Reason: "take_profit", PnL: "0.96", Mode: "sim"})
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"reason":"take_profit"`) {
		t.Fatalf("exit line missing reason: %s", lines[1])
	}
}

func TestFanout(t *testing.T) {
	a, b := NewLedger(), NewLedger()
	Fanout{a, b}.Record(TradeRecord{Market: "bitcoin"})
	if len(a.Records()) != 1 || len(b.Records()) != 1 {
		t.Fatal("fanout did not reach every recorder")
	}
}
