package fmp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/pkg/httputil"
	"github.com/wonny/aegis-watch/pkg/logger"
)

// ErrNotFound is returned when FMP answers with an empty array
var ErrNotFound = errors.New("fmp: symbol not found")

// Client handles communication with Financial Modeling Prep
// ⭐ SSOT: FMP API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new FMP client
func NewClient(httpClient *httputil.Client, baseURL, apiKey string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type profileResponse struct {
	Symbol            string      `json:"symbol"`
	CompanyName       string      `json:"companyName"`
	Sector            string      `json:"sector"`
	Industry          string      `json:"industry"`
	Country           string      `json:"country"`
	ExchangeShortName string      `json:"exchangeShortName"`
	IsEtf             bool        `json:"isEtf"`
	IsFund            bool        `json:"isFund"`
	FullTimeEmployees interface{} `json:"fullTimeEmployees"` // string 또는 number
	MktCap            float64     `json:"mktCap"`
}

type ratiosResponse struct {
	NetProfitMarginTTM *float64 `json:"netProfitMarginTTM"`
}

type newsResponse struct {
	Title         string `json:"title"`
	PublishedDate string `json:"publishedDate"`
}

type quoteResponse struct {
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	AvgVolume float64 `json:"avgVolume"`
}

// Profile fetches the company profile
func (c *Client) Profile(ctx context.Context, symbol string) (*contracts.Profile, error) {
	var items []profileResponse
	if err := c.get(ctx, "/profile/"+url.PathEscape(symbol), nil, &items); err != nil {
		return nil, fmt.Errorf("fmp profile %s: %w", symbol, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("fmp profile %s: %w", symbol, ErrNotFound)
	}

	p := items[0]
	profile := &contracts.Profile{
		Name:      p.CompanyName,
		Sector:    p.Sector,
		Industry:  p.Industry,
		Country:   p.Country,
		Exchange:  p.ExchangeShortName,
		IsETF:     p.IsEtf,
		IsFund:    p.IsFund,
		Employees: parseEmployees(p.FullTimeEmployees),
	}
	if p.MktCap > 0 {
		profile.MarketCap = contracts.Float64(p.MktCap)
	}

	return profile, nil
}

// Ratios fetches trailing-twelve-month ratios
func (c *Client) Ratios(ctx context.Context, symbol string) (*contracts.Ratios, error) {
	var items []ratiosResponse
	if err := c.get(ctx, "/ratios-ttm/"+url.PathEscape(symbol), nil, &items); err != nil {
		return nil, fmt.Errorf("fmp ratios %s: %w", symbol, err)
	}
	if len(items) == 0 || items[0].NetProfitMarginTTM == nil {
		return nil, fmt.Errorf("fmp ratios %s: %w", symbol, ErrNotFound)
	}

	return &contracts.Ratios{ProfitMarginTTM: items[0].NetProfitMarginTTM}, nil
}

// Headlines fetches recent news titles, newest first
func (c *Client) Headlines(ctx context.Context, symbol string, limit int) ([]contracts.Headline, error) {
	params := url.Values{}
	params.Set("tickers", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var items []newsResponse
	if err := c.get(ctx, "/stock_news", params, &items); err != nil {
		return nil, fmt.Errorf("fmp news %s: %w", symbol, err)
	}

	headlines := make([]contracts.Headline, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		published, _ := time.Parse("2006-01-02 15:04:05", item.PublishedDate)
		headlines = append(headlines, contracts.Headline{Title: item.Title, PublishedAt: published})
		if len(headlines) == limit {
			break
		}
	}

	return headlines, nil
}

// Quote fetches the latest quote including average volume
func (c *Client) Quote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	var items []quoteResponse
	if err := c.get(ctx, "/quote/"+url.PathEscape(symbol), nil, &items); err != nil {
		return nil, fmt.Errorf("fmp quote %s: %w", symbol, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("fmp quote %s: %w", symbol, ErrNotFound)
	}

	q := items[0]
	quote := &contracts.Quote{}
	if q.Price > 0 {
		quote.Price = contracts.Float64(q.Price)
	}
	if q.Volume > 0 {
		quote.Volume = contracts.Float64(q.Volume)
	}
	if q.AvgVolume > 0 {
		quote.AvgVolume = contracts.Float64(q.AvgVolume)
	}

	return quote, nil
}

// AvgVolume returns the average daily volume from the quote endpoint
func (c *Client) AvgVolume(ctx context.Context, symbol string) (float64, error) {
	q, err := c.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if q.AvgVolume == nil {
		return 0, fmt.Errorf("fmp avg volume %s: %w", symbol, ErrNotFound)
	}
	return *q.AvgVolume, nil
}

// get builds the URL with the API key and decodes the JSON response
func (c *Client) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	return c.httpClient.GetJSON(ctx, fullURL, dest)
}

func parseEmployees(v interface{}) *float64 {
	switch e := v.(type) {
	case float64:
		if e > 0 {
			return contracts.Float64(e)
		}
	case string:
		n, err := strconv.ParseFloat(strings.ReplaceAll(e, ",", ""), 64)
		if err == nil && n > 0 {
			return contracts.Float64(n)
		}
	}
	return nil
}
