package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trendbot-go/internal/dispatch"
	"trendbot-go/internal/signal"
)

// CLOBSubmitter places orders against the CLOB REST API. Token IDs are
// resolved through the shared source so submission always targets the
// asset's currently active market.
type CLOBSubmitter struct {
	http    *http.Client
	clobURL string
	apiKey  string
	source  *CLOBSource
	log     zerolog.Logger
}

// NewCLOBSubmitter builds a live order submitter.
func NewCLOBSubmitter(clobURL, apiKey string, source *CLOBSource, log zerolog.Logger) *CLOBSubmitter {
	return &CLOBSubmitter{
		http:    &http.Client{Timeout: 10 * time.Second},
		clobURL: strings.TrimRight(clobURL, "/"),
		apiKey:  apiKey,
		source:  source,
		log:     log.With().Str("submitter", "clob").Logger(),
	}
}

type orderPayload struct {
	TokenID string `json:"token_id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
}

type orderResponse struct {
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// Submit implements dispatch.OrderSubmitter.
func (s *CLOBSubmitter) Submit(ctx context.Context, req dispatch.OrderRequest) (signal.OrderConfirmation, error) {
	up, down, err := s.source.Tokens(ctx, req.Market)
	if err != nil {
		return signal.OrderConfirmation{}, fmt.Errorf("resolve tokens: %w", err)
	}
	tokenID := up
	if req.Token == signal.SideDown {
		tokenID = down
	}

	payload := orderPayload{
		TokenID: tokenID,
		Side:    req.Direction,
		Price:   req.Price.String(),
		Size:    req.Size.String(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return signal.OrderConfirmation{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.clobURL+"/order", bytes.NewReader(body))
	if err != nil {
		return signal.OrderConfirmation{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return signal.OrderConfirmation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return signal.OrderConfirmation{}, fmt.Errorf("submit order: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return signal.OrderConfirmation{}, fmt.Errorf("decode order response: %w", err)
	}
	if parsed.Error != "" {
		return signal.OrderConfirmation{}, fmt.Errorf("order rejected: %s", parsed.Error)
	}
	s.log.Debug().Str("market", req.Market).Str("order_id", parsed.OrderID).
		Str("side", req.Direction).Msg("order accepted")
	return signal.OrderConfirmation{OrderID: parsed.OrderID, Status: parsed.Status}, nil
}
