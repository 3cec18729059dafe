package strategy

import (
	"testing"
	"time"

	"trendbot-go/internal/signal"
)

func pt(up, down float64) signal.PricePoint {
	return signal.PricePoint{
		Market:  "bitcoin",
		UpAsk:   up,
		DownAsk: down,
		UpBid:   up - 0.01,
		DownBid: down - 0.01,
		Ts:      time.Now(),
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for _, up := range []float64{0.10, 0.20, 0.30, 0.40} {
		w.Append(pt(up, 1-up))
	}
	if w.Len() != 3 {
		t.Fatalf("expected len 3 after eviction, got %d", w.Len())
	}
	asks := w.UpAsks()
	want := []float64{0.20, 0.30, 0.40}
	for i, v := range want {
		if asks[i] != v {
			t.Fatalf("asks[%d] = %.2f, want %.2f", i, asks[i], v)
		}
	}
	last, ok := w.Last()
	if !ok || last.UpAsk != 0.40 {
		t.Fatalf("Last = %+v, ok=%v", last, ok)
	}
}

func TestWindowEmpty(t *testing.T) {
	w := NewWindow(4)
	if _, ok := w.Last(); ok {
		t.Fatal("Last on empty window reported a point")
	}
	if got := len(w.UpAsks()); got != 0 {
		t.Fatalf("expected empty ask series, got %d entries", got)
	}
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(4)
	w.Append(pt(0.5, 0.5))
	w.Append(pt(0.6, 0.4))
	w.Reset()
	if w.Len() != 0 {
		t.Fatalf("expected empty window after reset, got len %d", w.Len())
	}
	w.Append(pt(0.7, 0.3))
	if asks := w.UpAsks(); len(asks) != 1 || asks[0] != 0.7 {
		t.Fatalf("unexpected series after reset: %v", asks)
	}
}

func TestWindowDownAsks(t *testing.T) {
	w := NewWindow(2)
	w.Append(pt(0.55, 0.47))
	w.Append(pt(0.60, 0.42))
	downs := w.DownAsks()
	if len(downs) != 2 || downs[0] != 0.47 || downs[1] != 0.42 {
		t.Fatalf("unexpected down ask series: %v", downs)
	}
}
