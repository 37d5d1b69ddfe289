package finviz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/normalize"
	"github.com/wonny/aegis-watch/pkg/httputil"
	"github.com/wonny/aegis-watch/pkg/logger"
)

// ErrNoSnapshot is returned when the quote page has no snapshot table
var ErrNoSnapshot = errors.New("finviz: snapshot table not found")

// Client scrapes the Finviz quote page
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Finviz scraper
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// QuotePage is the parsed subset of a Finviz quote page
type QuotePage struct {
	Sector    string
	Industry  string
	Country   string
	Exchange  string
	Snapshot  map[string]string
	Headlines []string
}

func (p *QuotePage) number(label string) *float64 {
	v, ok := p.Snapshot[label]
	if !ok {
		return nil
	}
	return normalize.Number(v)
}

// Profile returns sector, industry, country and share counts
func (c *Client) Profile(ctx context.Context, symbol string) (*contracts.Profile, error) {
	page, err := c.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return &contracts.Profile{
		Sector:    page.Sector,
		Industry:  page.Industry,
		Country:   page.Country,
		Exchange:  page.Exchange,
		Employees: page.number("Employees"),
		MarketCap: page.number("Market Cap"),
		Float:     page.number("Shs Float"),
	}, nil
}

// Quote returns price, volume and average volume
func (c *Client) Quote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	page, err := c.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return &contracts.Quote{
		Price:     page.number("Price"),
		Volume:    page.number("Volume"),
		AvgVolume: page.number("Avg Volume"),
	}, nil
}

// AvgVolume returns the "Avg Volume" snapshot value
func (c *Client) AvgVolume(ctx context.Context, symbol string) (float64, error) {
	q, err := c.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if q.AvgVolume == nil || *q.AvgVolume <= 0 {
		return 0, fmt.Errorf("finviz avg volume %s: %w", symbol, ErrNoSnapshot)
	}
	return *q.AvgVolume, nil
}

// Headlines returns news titles from the quote page news table
func (c *Client) Headlines(ctx context.Context, symbol string, limit int) ([]contracts.Headline, error) {
	page, err := c.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	headlines := make([]contracts.Headline, 0, limit)
	for _, title := range page.Headlines {
		if len(headlines) == limit {
			break
		}
		headlines = append(headlines, contracts.Headline{Title: title})
	}
	return headlines, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (*QuotePage, error) {
	pageURL := fmt.Sprintf("%s/quote.ashx?t=%s", c.baseURL, url.QueryEscape(symbol))

	resp, err := c.httpClient.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("finviz %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finviz %s: %w", symbol, &httputil.StatusError{URL: pageURL, StatusCode: resp.StatusCode})
	}

	page, err := ParseQuotePage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("finviz %s: %w", symbol, err)
	}
	return page, nil
}

// ParseQuotePage extracts the snapshot table, quote links and news titles
func ParseQuotePage(r io.Reader) (*QuotePage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &QuotePage{Snapshot: make(map[string]string)}

	// label/value 셀이 번갈아 나옴
	doc.Find("table.snapshot-table2 tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		for j := 0; j+1 < cells.Length(); j += 2 {
			label := strings.TrimSpace(cells.Eq(j).Text())
			value := strings.TrimSpace(cells.Eq(j + 1).Text())
			if label != "" {
				page.Snapshot[label] = value
			}
		}
	})
	if len(page.Snapshot) == 0 {
		return nil, ErrNoSnapshot
	}

	// sector, industry, country, exchange 순서
	var links []string
	doc.Find("div.quote-links a.tab-link").Each(func(i int, a *goquery.Selection) {
		links = append(links, strings.TrimSpace(a.Text()))
	})
	fields := []*string{&page.Sector, &page.Industry, &page.Country, &page.Exchange}
	for i, field := range fields {
		if i < len(links) {
			*field = links[i]
		}
	}

	doc.Find("table#news-table a.tab-link-news").Each(func(i int, a *goquery.Selection) {
		if title := strings.TrimSpace(a.Text()); title != "" {
			page.Headlines = append(page.Headlines, title)
		}
	})

	return page, nil
}
