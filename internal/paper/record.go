package paper

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// TradeRecord is one executed action, written to the trade log.
type TradeRecord struct {
	Ts      time.Time `json:"ts"`
	Market  string    `json:"market"`
	Action  string    `json:"action"`
	Side    string    `json:"side"`
	Price   string    `json:"price"`
	Size    string    `json:"size,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	PnL     string    `json:"pnl,omitempty"`
	OrderID string    `json:"order_id,omitempty"`
	Mode    string    `json:"mode"`
}

// TradeRecorder receives every executed trade. Implementations must be safe
// for concurrent use.
type TradeRecorder interface {
	Record(TradeRecord)
}

// Ledger keeps trade records in memory.
type Ledger struct {
	mu      sync.Mutex
	records []TradeRecord
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// Record appends one trade.
func (l *Ledger) Record(r TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// Records returns a copy of all recorded trades in arrival order.
func (l *Ledger) Records() []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// JSONLRecorder appends trades to a file, one JSON object per line.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder opens (or creates) path for appending.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{file: f, enc: json.NewEncoder(f)}, nil
}

// Record writes one trade line. Encoding errors are swallowed; the trade
// log is best effort and must never block trading.
func (r *JSONLRecorder) Record(rec TradeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(rec)
}

// Close flushes and closes the underlying file.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// Fanout forwards every record to each of its recorders.
type Fanout []TradeRecorder

// Record implements TradeRecorder.
func (f Fanout) Record(rec TradeRecord) {
	for _, r := range f {
		r.Record(rec)
	}
}
