package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trendbot-go/internal/signal"
)

// staleAfter is how old a cached stream quote may be before FetchSnapshot
// refuses to serve it.
const staleAfter = 30 * time.Second

type streamQuote struct {
	upAsk    float64
	upBid    float64
	downAsk  float64
	downBid  float64
	periodTs int64
	ts       time.Time
}

type tokenRef struct {
	market string
	side   signal.Side
}

// StreamSource maintains a websocket subscription to the CLOB market channel
// and serves the latest cached book top for each market. Discovery of token
// IDs goes through the REST source, which also handles period rollover.
type StreamSource struct {
	rest    *CLOBSource
	wsURL   string
	markets []string
	log     zerolog.Logger
	now     func() time.Time

	mu     sync.Mutex
	quotes map[string]*streamQuote
}

// NewStreamSource builds a stream source for the given assets.
func NewStreamSource(rest *CLOBSource, wsURL string, markets []string, log zerolog.Logger) *StreamSource {
	return &StreamSource{
		rest:    rest,
		wsURL:   wsURL,
		markets: markets,
		log:     log.With().Str("source", "ws").Logger(),
		now:     time.Now,
		quotes:  make(map[string]*streamQuote),
	}
}

// Run keeps the subscription alive until ctx is canceled, reconnecting with
// exponential backoff. It resubscribes on each connect so a period rollover
// picks up the new markets' tokens.
func (s *StreamSource) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := s.connectAndRead(ctx); err != nil {
			s.log.Warn().Err(err).Dur("backoff", backoff).Msg("stream disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

type subscribeMessage struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wsEvent struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Bids      []bookLevel `json:"bids"`
	Asks      []bookLevel `json:"asks"`
}

func (s *StreamSource) connectAndRead(ctx context.Context) error {
	refs := make(map[string]tokenRef)
	periods := make(map[string]int64)
	assets := make([]string, 0, 2*len(s.markets))
	for _, market := range s.markets {
		st, err := s.rest.ensureMarket(ctx, market)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", market, err)
		}
		refs[st.upTokenID] = tokenRef{market: market, side: signal.SideUp}
		refs[st.downTokenID] = tokenRef{market: market, side: signal.SideDown}
		periods[market] = st.periodTs
		assets = append(assets, st.upTokenID, st.downTokenID)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.wsURL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeMessage{Type: "market", AssetsIDs: assets}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info().Int("assets", len(assets)).Msg("stream subscribed")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		// Bounce the connection at the next rollover so subscriptions
		// track the new period's tokens.
		if s.rolledOver(periods) {
			return fmt.Errorf("period rollover")
		}
		conn.SetReadDeadline(s.now().Add(time.Minute))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		s.handleMessage(raw, refs, periods)
	}
}

func (s *StreamSource) rolledOver(periods map[string]int64) bool {
	cur := currentPeriod(s.now())
	for _, ts := range periods {
		if cur >= ts+periodSeconds {
			return true
		}
	}
	return false
}

// handleMessage applies book events to the quote cache. The channel sends
// both single events and arrays of them.
func (s *StreamSource) handleMessage(raw []byte, refs map[string]tokenRef, periods map[string]int64) {
	var events []wsEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		var single wsEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			return
		}
		events = []wsEvent{single}
	}
	for _, ev := range events {
		if ev.EventType != "book" {
			continue
		}
		ref, ok := refs[ev.AssetID]
		if !ok {
			continue
		}
		bid, ask, ok := bookTop(ev.Bids, ev.Asks)
		if !ok {
			continue
		}
		s.apply(ref, bid, ask, periods[ref.market])
	}
}

// bookTop returns the highest bid and lowest ask.
func bookTop(bids, asks []bookLevel) (bid, ask float64, ok bool) {
	for _, lvl := range bids {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		if p > bid {
			bid = p
		}
	}
	for _, lvl := range asks {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		if ask == 0 || p < ask {
			ask = p
		}
	}
	return bid, ask, bid > 0 && ask > 0
}

func (s *StreamSource) apply(ref tokenRef, bid, ask float64, periodTs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[ref.market]
	if !ok || q.periodTs != periodTs {
		q = &streamQuote{periodTs: periodTs}
		s.quotes[ref.market] = q
	}
	if ref.side == signal.SideUp {
		q.upBid, q.upAsk = bid, ask
	} else {
		q.downBid, q.downAsk = bid, ask
	}
	q.ts = s.now()
}

// FetchSnapshot serves the latest cached quotes for the market. Fails when
// the stream has not yet produced both sides or the cache has gone stale.
func (s *StreamSource) FetchSnapshot(_ context.Context, market string) (signal.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[market]
	if !ok {
		return signal.PricePoint{}, fmt.Errorf("no stream data for %s yet", market)
	}
	if q.upAsk == 0 || q.downAsk == 0 {
		return signal.PricePoint{}, fmt.Errorf("stream book for %s incomplete", market)
	}
	if s.now().Sub(q.ts) > staleAfter {
		return signal.PricePoint{}, fmt.Errorf("stream data for %s is stale", market)
	}
	return signal.PricePoint{
		Market:   market,
		UpAsk:    q.upAsk,
		DownAsk:  q.downAsk,
		UpBid:    q.upBid,
		DownBid:  q.downBid,
		PeriodTs: q.periodTs,
		Ts:       q.ts,
	}, nil
}
