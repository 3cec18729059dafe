package risk

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNotionalCap(t *testing.T) {
	l := Limits{MaxNotionalPerTrade: decimal.NewFromInt(50)}
	if err := l.AllowEntry(decimal.NewFromInt(50), 0); err != nil {
		t.Fatalf("notional at cap should pass: %v", err)
	}
	if err := l.AllowEntry(decimal.NewFromInt(51), 0); err == nil {
		t.Fatal("notional over cap should be rejected")
	}
}

func TestOpenPositionCap(t *testing.T) {
	l := Limits{MaxOpenPositions: 2}
	if err := l.AllowEntry(decimal.NewFromInt(10), 1); err != nil {
		t.Fatalf("under the position cap should pass: %v", err)
	}
	if err := l.AllowEntry(decimal.NewFromInt(10), 2); err == nil {
		t.Fatal("at the position cap should be rejected")
	}
}

func TestZeroDisables(t *testing.T) {
	var l Limits
	if err := l.AllowEntry(decimal.NewFromInt(1_000_000), 99); err != nil {
		t.Fatalf("zero limits should allow everything: %v", err)
	}
}
