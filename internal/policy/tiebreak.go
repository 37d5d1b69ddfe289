package policy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/pkg/httputil"
	"github.com/wonny/aegis-watch/pkg/logger"
)

// PressureClient reads order-book pressure from the internal service
type PressureClient struct {
	httpClient *httputil.Client
	baseURL    string
}

// NewPressureClient creates a pressure client against INTERNAL_BASE_URL
func NewPressureClient(httpClient *httputil.Client, baseURL string) *PressureClient {
	return &PressureClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// pressureResponse accepts {"scores":{SYM:x}} and {"data":[{symbol, pressure}]}
type pressureResponse struct {
	Scores map[string]float64 `json:"scores"`
	Data   []struct {
		Symbol   string   `json:"symbol"`
		Pressure *float64 `json:"pressure"`
	} `json:"data"`
}

// Pressure returns scores keyed by symbol; symbols without a score are absent
func (p *PressureClient) Pressure(ctx context.Context, a, b string) (map[string]float64, error) {
	endpoint := fmt.Sprintf("%s/api/orderbook/pressure?symbols=%s", p.baseURL, url.QueryEscape(a+","+b))

	var resp pressureResponse
	if err := p.httpClient.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("orderbook pressure: %w", err)
	}

	scores := make(map[string]float64, 2)
	for sym, v := range resp.Scores {
		scores[strings.ToUpper(sym)] = v
	}
	for _, d := range resp.Data {
		if d.Pressure != nil {
			scores[strings.ToUpper(d.Symbol)] = *d.Pressure
		}
	}
	return scores, nil
}

// TiebreakResult is the tiebreak diagnostic
type TiebreakResult struct {
	Attempted bool               `json:"attempted"`
	Swapped   bool               `json:"swapped"`
	Scores    map[string]float64 `json:"scores,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Tiebreaker may swap exactly two finalists by order-book pressure
type Tiebreaker struct {
	source  contracts.PressureSource
	timeout time.Duration
	logger  *logger.Logger
}

// NewTiebreaker creates a tiebreaker; a nil source disables it
func NewTiebreaker(source contracts.PressureSource, timeout time.Duration, log *logger.Logger) *Tiebreaker {
	return &Tiebreaker{
		source:  source,
		timeout: timeout,
		logger:  log,
	}
}

// Apply returns slots, swapped when B's pressure exceeds A's.
// Failures keep the existing order.
func (t *Tiebreaker) Apply(ctx context.Context, slots []Slot) ([]Slot, TiebreakResult) {
	if t == nil || t.source == nil || len(slots) != 2 {
		return slots, TiebreakResult{}
	}

	res := TiebreakResult{Attempted: true}
	a, b := slots[0].Ticker, slots[1].Ticker

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	scores, err := t.source.Pressure(callCtx, a, b)
	if err != nil {
		res.Error = err.Error()
		t.logger.WithError(err).Warn("Tiebreak skipped")
		return slots, res
	}
	res.Scores = scores

	sa, okA := scores[a]
	sb, okB := scores[b]
	if !okA || !okB {
		res.Error = "missing pressure score"
		return slots, res
	}

	if sb > sa {
		res.Swapped = true
		t.logger.WithFields(map[string]interface{}{
			"primary":   b,
			"secondary": a,
		}).Info("Tiebreak swapped finalists")
		return []Slot{slots[1], slots[0]}, res
	}
	return slots, res
}
