package contracts

import (
	"context"
	"time"
)

// Profile is the company profile subset used by enrichment
type Profile struct {
	Name      string   `json:"name,omitempty"`
	Sector    string   `json:"sector,omitempty"`
	Industry  string   `json:"industry,omitempty"`
	Country   string   `json:"country,omitempty"`
	Exchange  string   `json:"exchange,omitempty"`
	IsETF     bool     `json:"isEtf"`
	IsFund    bool     `json:"isFund"`
	Employees *float64 `json:"employees,omitempty"`
	MarketCap *float64 `json:"marketCap,omitempty"`
	Float     *float64 `json:"float,omitempty"`
}

// Ratios holds trailing-twelve-month quality ratios
type Ratios struct {
	ProfitMarginTTM *float64 `json:"profitMarginTTM,omitempty"`
}

// Quote is a point-in-time quote
type Quote struct {
	Price     *float64 `json:"price,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
	AvgVolume *float64 `json:"avgVolume,omitempty"`
}

// Headline is one recent news title
type Headline struct {
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
}

// MarketDataGateway resolves per-symbol lookups, one call per symbol per feature
// ⭐ SSOT: 외부 시세/재무 조회 인터페이스
type MarketDataGateway interface {
	Profile(ctx context.Context, symbol string) (*Profile, error)
	Ratios(ctx context.Context, symbol string) (*Ratios, error)
	Headlines(ctx context.Context, symbol string, limit int) ([]Headline, error)
	AvgVolume(ctx context.Context, symbol string) (float64, error)
	Quote(ctx context.Context, symbol string) (*Quote, error)
}

// BarsProvider fetches 1-minute bars for many symbols in [start, end)
type BarsProvider interface {
	MultiBars(ctx context.Context, symbols []string, start, end time.Time) (map[string][]Bar, error)
}

// Advisor is a generative completion service
type Advisor interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// PressureSource returns order-book pressure scores for exactly two symbols
type PressureSource interface {
	Pressure(ctx context.Context, a, b string) (map[string]float64, error)
}

// Notifier informs a downstream tracker of chosen symbols
type Notifier interface {
	NotifyWatch(ctx context.Context, runID string, symbols []string) error
}

// PickRepository persists and lists picks
type PickRepository interface {
	SavePick(ctx context.Context, pick *Pick) error
	LatestPicks(ctx context.Context, limit int) ([]Pick, error)
}
