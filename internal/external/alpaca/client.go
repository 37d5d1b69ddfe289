package alpaca

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/pkg/config"
	"github.com/wonny/aegis-watch/pkg/logger"
)

// avgVolumeDays is the daily bar lookback used for average volume
const avgVolumeDays = 30

// ErrNoData is returned when Alpaca answers without usable data
var ErrNoData = errors.New("alpaca: no data")

// marketData is the subset of the market data SDK used here
type marketData interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// assets is the subset of the trading SDK used here
type assets interface {
	GetAsset(symbol string) (*alpacaapi.Asset, error)
}

// Client wraps the Alpaca market data and trading SDKs
// ⭐ SSOT: 분봉/일봉/뉴스 조회는 이 클라이언트에서만
type Client struct {
	md     marketData
	trade  assets
	feed   string
	logger *logger.Logger
	now    func() time.Time
}

// NewClient creates a new Alpaca client from configuration
func NewClient(cfg config.AlpacaConfig, log *logger.Logger) *Client {
	mdOpts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		mdOpts.BaseURL = cfg.DataURL
	}

	return &Client{
		md: marketdata.NewClient(mdOpts),
		trade: alpacaapi.NewClient(alpacaapi.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		}),
		feed:   cfg.Feed,
		logger: log,
		now:    time.Now,
	}
}

// MultiBars fetches 1-minute bars for all symbols in [start, end)
// SIP 구독이 없으면 IEX로 한 번 재시도
func (c *Client) MultiBars(ctx context.Context, symbols []string, start, end time.Time) (map[string][]contracts.Bar, error) {
	if len(symbols) == 0 {
		return map[string][]contracts.Bar{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneMin,
		Start:     start,
		End:       end,
		Feed:      marketdata.Feed(c.feed),
	}

	multiBars, err := c.md.GetMultiBars(symbols, req)
	if err != nil && c.feed == "sip" {
		c.logger.WithError(err).Warn("SIP bars unavailable, retrying with IEX feed")
		req.Feed = marketdata.Feed("iex")
		multiBars, err = c.md.GetMultiBars(symbols, req)
	}
	if err != nil {
		return nil, fmt.Errorf("alpaca multi bars: %w", err)
	}

	result := make(map[string][]contracts.Bar, len(multiBars))
	for symbol, bars := range multiBars {
		converted := make([]contracts.Bar, 0, len(bars))
		for _, b := range bars {
			converted = append(converted, contracts.Bar{
				Timestamp: b.Timestamp,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    float64(b.Volume),
				VWAP:      b.VWAP,
			})
		}
		result[strings.ToUpper(symbol)] = converted
	}

	return result, nil
}

// AvgVolume averages completed daily bar volume over the lookback
func (c *Client) AvgVolume(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := c.now()
	bars, err := c.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     now.AddDate(0, 0, -avgVolumeDays*2),
		End:       now,
		Feed:      marketdata.Feed(c.feed),
	})
	if err != nil {
		return 0, fmt.Errorf("alpaca daily bars %s: %w", symbol, err)
	}

	// 당일 미완성 봉 제외
	today := now.Format("2006-01-02")
	var total float64
	var n int
	for i := len(bars) - 1; i >= 0 && n < avgVolumeDays; i-- {
		if bars[i].Timestamp.Format("2006-01-02") == today {
			continue
		}
		total += float64(bars[i].Volume)
		n++
	}
	if n == 0 || total <= 0 {
		return 0, fmt.Errorf("alpaca avg volume %s: %w", symbol, ErrNoData)
	}

	return total / float64(n), nil
}

// Quote returns the latest trade price
func (c *Client) Quote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trade, err := c.md.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return nil, fmt.Errorf("alpaca latest trade %s: %w", symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return nil, fmt.Errorf("alpaca latest trade %s: %w", symbol, ErrNoData)
	}

	return &contracts.Quote{Price: contracts.Float64(trade.Price)}, nil
}

// Headlines returns the most recent news headlines, newest first
func (c *Client) Headlines(ctx context.Context, symbol string, limit int) ([]contracts.Headline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := c.now()
	news, err := c.md.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      now.AddDate(0, 0, -7),
		End:        now,
		TotalLimit: limit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca news %s: %w", symbol, err)
	}

	headlines := make([]contracts.Headline, 0, len(news))
	for _, n := range news {
		if strings.TrimSpace(n.Headline) == "" {
			continue
		}
		headlines = append(headlines, contracts.Headline{Title: n.Headline, PublishedAt: n.CreatedAt})
	}

	return headlines, nil
}

// Profile returns the name and listing venue from the asset endpoint
func (c *Client) Profile(ctx context.Context, symbol string) (*contracts.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	asset, err := c.trade.GetAsset(symbol)
	if err != nil {
		return nil, fmt.Errorf("alpaca asset %s: %w", symbol, err)
	}

	exchange := string(asset.Exchange)
	return &contracts.Profile{
		Name:     asset.Name,
		Exchange: exchange,
	}, nil
}
