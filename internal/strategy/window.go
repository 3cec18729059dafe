package strategy

import "trendbot-go/internal/signal"

// Window is a bounded FIFO of price points for a single market. The oldest
// point is evicted when a new one arrives at capacity. Each market's window
// is owned by exactly one evaluation goroutine, so no locking is needed.
type Window struct {
	capacity int
	points   []signal.PricePoint
}

// NewWindow creates an empty window holding at most capacity points.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{capacity: capacity, points: make([]signal.PricePoint, 0, capacity)}
}

// Append records a new point, evicting the oldest when at capacity.
func (w *Window) Append(p signal.PricePoint) {
	if len(w.points) == w.capacity {
		copy(w.points, w.points[1:])
		w.points = w.points[:len(w.points)-1]
	}
	w.points = append(w.points, p)
}

// Len returns the number of points currently held.
func (w *Window) Len() int { return len(w.points) }

// Last returns the most recent point, if any.
func (w *Window) Last() (signal.PricePoint, bool) {
	if len(w.points) == 0 {
		return signal.PricePoint{}, false
	}
	return w.points[len(w.points)-1], true
}

// UpAsks returns the ordered Up token ask series.
func (w *Window) UpAsks() []float64 {
	out := make([]float64, len(w.points))
	for i, p := range w.points {
		out[i] = p.UpAsk
	}
	return out
}

// DownAsks returns the ordered Down token ask series.
func (w *Window) DownAsks() []float64 {
	out := make([]float64, len(w.points))
	for i, p := range w.points {
		out[i] = p.DownAsk
	}
	return out
}

// Reset drops all points, e.g. when a new 15-minute market starts.
func (w *Window) Reset() {
	w.points = w.points[:0]
}
