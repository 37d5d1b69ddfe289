package yahoo

import (
	"context"
	"errors"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/pkg/logger"
)

// ErrNoQuote is returned when Yahoo has no quote for the symbol
var ErrNoQuote = errors.New("yahoo: quote not found")

// Client is the last-resort quote fallback backed by finance-go
type Client struct {
	logger *logger.Logger
	get    func(symbol string) (*finance.Quote, error)
}

// NewClient creates a new Yahoo Finance client
func NewClient(log *logger.Logger) *Client {
	return &Client{logger: log, get: quote.Get}
}

// Quote returns price, volume and 3-month average volume
func (c *Client) Quote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	q, err := c.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	result := &contracts.Quote{}
	if q.RegularMarketPrice > 0 {
		result.Price = contracts.Float64(q.RegularMarketPrice)
	}
	if q.RegularMarketVolume > 0 {
		result.Volume = contracts.Float64(float64(q.RegularMarketVolume))
	}
	if q.AverageDailyVolume3Month > 0 {
		result.AvgVolume = contracts.Float64(float64(q.AverageDailyVolume3Month))
	}
	return result, nil
}

// AvgVolume returns the 3-month average daily volume
func (c *Client) AvgVolume(ctx context.Context, symbol string) (float64, error) {
	q, err := c.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if q.AvgVolume == nil {
		return 0, fmt.Errorf("yahoo avg volume %s: %w", symbol, ErrNoQuote)
	}
	return *q.AvgVolume, nil
}

// Profile returns the name, exchange and ETF flag
func (c *Client) Profile(ctx context.Context, symbol string) (*contracts.Profile, error) {
	q, err := c.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return &contracts.Profile{
		Name:     q.ShortName,
		Exchange: q.FullExchangeName,
		IsETF:    q.QuoteType == finance.QuoteTypeETF,
		IsFund:   q.QuoteType == finance.QuoteTypeMutualFund,
	}, nil
}

// lookup runs the blocking SDK call and honours ctx cancellation
func (c *Client) lookup(ctx context.Context, symbol string) (*finance.Quote, error) {
	type result struct {
		q   *finance.Quote
		err error
	}

	done := make(chan result, 1)
	go func() {
		q, err := c.get(symbol)
		done <- result{q, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("yahoo quote %s: %w", symbol, r.err)
		}
		if r.q == nil {
			return nil, fmt.Errorf("yahoo quote %s: %w", symbol, ErrNoQuote)
		}
		return r.q, nil
	}
}
