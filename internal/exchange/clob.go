// Package exchange provides market data sources and order submission for
// Polymarket 15-minute up/down markets.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trendbot-go/internal/signal"
)

// periodSeconds is the length of one up/down market window.
const periodSeconds = 900

// discoveryFallbacks is how many previous periods to try when the current
// period's market is not listed yet.
const discoveryFallbacks = 3

// currentPeriod returns the unix start of the window containing t.
func currentPeriod(t time.Time) int64 {
	return (t.Unix() / periodSeconds) * periodSeconds
}

// marketState caches the resolved identifiers for one asset's active market.
type marketState struct {
	slug        string
	conditionID string
	upTokenID   string
	downTokenID string
	periodTs    int64
}

// expired reports whether the market's window has ended.
func (s *marketState) expired(now time.Time) bool {
	return now.Unix() >= s.periodTs+periodSeconds
}

// CLOBSource serves price snapshots from the Gamma and CLOB REST APIs. It
// discovers each asset's active market by slug and rediscovers it when the
// 15-minute window rolls over.
type CLOBSource struct {
	http     *http.Client
	gammaURL string
	clobURL  string
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	markets map[string]*marketState
}

// NewCLOBSource builds a REST source against the given API bases.
func NewCLOBSource(gammaURL, clobURL string, log zerolog.Logger) *CLOBSource {
	return &CLOBSource{
		http:     &http.Client{Timeout: 10 * time.Second},
		gammaURL: strings.TrimRight(gammaURL, "/"),
		clobURL:  strings.TrimRight(clobURL, "/"),
		log:      log.With().Str("source", "clob").Logger(),
		now:      time.Now,
		markets:  make(map[string]*marketState),
	}
}

type gammaMarket struct {
	ConditionID string `json:"conditionId"`
}

type gammaEvent struct {
	Markets []gammaMarket `json:"markets"`
}

type clobToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

type clobMarket struct {
	Tokens []clobToken `json:"tokens"`
}

// FetchSnapshot implements the monitor's data source: one observation of
// both outcome token quotes for the asset's active market.
func (c *CLOBSource) FetchSnapshot(ctx context.Context, market string) (signal.PricePoint, error) {
	st, err := c.ensureMarket(ctx, market)
	if err != nil {
		return signal.PricePoint{}, err
	}

	upAsk, err := c.fetchPrice(ctx, st.upTokenID, "buy")
	if err != nil {
		return signal.PricePoint{}, fmt.Errorf("up ask for %s: %w", market, err)
	}
	upBid, err := c.fetchPrice(ctx, st.upTokenID, "sell")
	if err != nil {
		return signal.PricePoint{}, fmt.Errorf("up bid for %s: %w", market, err)
	}
	downAsk, err := c.fetchPrice(ctx, st.downTokenID, "buy")
	if err != nil {
		return signal.PricePoint{}, fmt.Errorf("down ask for %s: %w", market, err)
	}
	downBid, err := c.fetchPrice(ctx, st.downTokenID, "sell")
	if err != nil {
		return signal.PricePoint{}, fmt.Errorf("down bid for %s: %w", market, err)
	}

	return signal.PricePoint{
		Market:   market,
		UpAsk:    upAsk,
		DownAsk:  downAsk,
		UpBid:    upBid,
		DownBid:  downBid,
		PeriodTs: st.periodTs,
		Ts:       c.now(),
	}, nil
}

// Tokens returns the outcome token IDs for the asset's active market,
// discovering it if needed.
func (c *CLOBSource) Tokens(ctx context.Context, market string) (up, down string, err error) {
	st, err := c.ensureMarket(ctx, market)
	if err != nil {
		return "", "", err
	}
	return st.upTokenID, st.downTokenID, nil
}

// ensureMarket returns cached market state, rediscovering after rollover.
func (c *CLOBSource) ensureMarket(ctx context.Context, market string) (marketState, error) {
	c.mu.Lock()
	st, ok := c.markets[market]
	if ok && !st.expired(c.now()) {
		out := *st
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	fresh, err := c.discover(ctx, market)
	if err != nil {
		return marketState{}, err
	}

	c.mu.Lock()
	c.markets[market] = fresh
	c.mu.Unlock()
	return *fresh, nil
}

// discover finds the asset's listed market, trying the current period first
// and then a few previous ones. Listings can lag the wall clock slightly.
func (c *CLOBSource) discover(ctx context.Context, market string) (*marketState, error) {
	cur := currentPeriod(c.now())
	var lastErr error
	for offset := int64(0); offset <= discoveryFallbacks; offset++ {
		ts := cur - offset*periodSeconds
		slug := fmt.Sprintf("%s-updown-15m-%d", market, ts)
		st, err := c.lookupSlug(ctx, slug)
		if err != nil {
			lastErr = err
			continue
		}
		st.periodTs = ts
		if offset > 0 {
			c.log.Debug().Str("market", market).Str("slug", slug).
				Int64("offset_periods", offset).Msg("discovered market in a previous period")
		}
		return st, nil
	}
	return nil, fmt.Errorf("discover market for %s: %w", market, lastErr)
}

func (c *CLOBSource) lookupSlug(ctx context.Context, slug string) (*marketState, error) {
	var event gammaEvent
	if err := c.getJSON(ctx, c.gammaURL+"/events/slug/"+slug, &event); err != nil {
		return nil, err
	}
	if len(event.Markets) == 0 {
		return nil, fmt.Errorf("event %s has no markets", slug)
	}
	conditionID := event.Markets[0].ConditionID
	if conditionID == "" {
		return nil, fmt.Errorf("event %s has no condition id", slug)
	}

	var m clobMarket
	if err := c.getJSON(ctx, c.clobURL+"/markets/"+conditionID, &m); err != nil {
		return nil, err
	}
	st := &marketState{slug: slug, conditionID: conditionID}
	for _, tok := range m.Tokens {
		outcome := strings.ToUpper(tok.Outcome)
		switch {
		case strings.Contains(outcome, "UP") || outcome == "1":
			st.upTokenID = tok.TokenID
		case strings.Contains(outcome, "DOWN") || outcome == "0":
			st.downTokenID = tok.TokenID
		}
	}
	if st.upTokenID == "" || st.downTokenID == "" {
		return nil, fmt.Errorf("market %s: could not resolve both outcome tokens", conditionID)
	}
	return st, nil
}

type priceResponse struct {
	Price string `json:"price"`
}

// fetchPrice quotes one token. side "buy" returns the ask, "sell" the bid.
func (c *CLOBSource) fetchPrice(ctx context.Context, tokenID, side string) (float64, error) {
	var resp priceResponse
	url := fmt.Sprintf("%s/price?token_id=%s&side=%s", c.clobURL, tokenID, side)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return 0, err
	}
	p, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", resp.Price, err)
	}
	return p, nil
}

func (c *CLOBSource) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
