package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/pkg/logger"
	"github.com/wonny/aegis-watch/pkg/metrics"
	"github.com/wonny/aegis-watch/pkg/redis"
)

// HeadlineFetch fetches up to limit headlines for a symbol
type HeadlineFetch func(ctx context.Context, symbol string, limit int) ([]contracts.Headline, error)

type headlineSource struct {
	name  string
	fetch HeadlineFetch
}

// Gateway implements contracts.MarketDataGateway over ordered provider lists
// ⭐ SSOT: 종목별 외부 조회는 모두 Gateway를 거침
type Gateway struct {
	profile   []Source[*contracts.Profile]
	ratios    []Source[*contracts.Ratios]
	avgVolume []Source[float64]
	quote     []Source[*contracts.Quote]
	headlines []headlineSource

	guards  *guards
	cache   *redis.Cache
	metrics *metrics.Registry
	loc     *time.Location
	now     func() time.Time
	logger  *logger.Logger
}

// New creates an empty gateway; register sources with the With* methods
func New(cache *redis.Cache, reg *metrics.Registry, loc *time.Location, log *logger.Logger) *Gateway {
	if loc == nil {
		loc = time.UTC
	}
	return &Gateway{
		guards:  newGuards(),
		cache:   cache,
		metrics: reg,
		loc:     loc,
		now:     time.Now,
		logger:  log,
	}
}

// WithSourceLimit caps calls to one upstream at rps
func (g *Gateway) WithSourceLimit(name string, rps float64, burst int) *Gateway {
	g.guards.setLimit(name, rps, burst)
	return g
}

// WithProfileSource appends a profile provider
func (g *Gateway) WithProfileSource(name string, fetch func(context.Context, string) (*contracts.Profile, error)) *Gateway {
	g.profile = append(g.profile, guarded(g, name, fetch))
	return g
}

// WithRatiosSource appends a ratios provider
func (g *Gateway) WithRatiosSource(name string, fetch func(context.Context, string) (*contracts.Ratios, error)) *Gateway {
	g.ratios = append(g.ratios, guarded(g, name, fetch))
	return g
}

// WithAvgVolumeSource appends an average volume provider
func (g *Gateway) WithAvgVolumeSource(name string, fetch func(context.Context, string) (float64, error)) *Gateway {
	g.avgVolume = append(g.avgVolume, guarded(g, name, fetch))
	return g
}

// WithQuoteSource appends a quote provider
func (g *Gateway) WithQuoteSource(name string, fetch func(context.Context, string) (*contracts.Quote, error)) *Gateway {
	g.quote = append(g.quote, guarded(g, name, fetch))
	return g
}

// WithHeadlineSource appends a headline provider
func (g *Gateway) WithHeadlineSource(name string, fetch HeadlineFetch) *Gateway {
	g.headlines = append(g.headlines, headlineSource{name: name, fetch: fetch})
	return g
}

// guarded wraps fetch with the per-upstream breaker and limiter
func guarded[T any](g *Gateway, name string, fetch func(context.Context, string) (T, error)) Source[T] {
	return Source[T]{
		Name: name,
		Fetch: func(ctx context.Context, symbol string) (T, error) {
			var zero T
			v, err := g.guards.run(ctx, name, func() (interface{}, error) {
				return fetch(ctx, symbol)
			})
			if err != nil {
				return zero, err
			}
			return v.(T), nil
		},
	}
}

// Profile resolves the company profile, memoized per trading day
func (g *Gateway) Profile(ctx context.Context, symbol string) (*contracts.Profile, error) {
	var profile contracts.Profile
	err := g.memo(ctx, redis.ProfileKey(symbol, g.day()), &profile, func() (interface{}, error) {
		return resolve(ctx, g, "profile", symbol, g.profile, usableProfile)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Ratios resolves TTM ratios, memoized per trading day
func (g *Gateway) Ratios(ctx context.Context, symbol string) (*contracts.Ratios, error) {
	var ratios contracts.Ratios
	err := g.memo(ctx, redis.RatiosKey(symbol, g.day()), &ratios, func() (interface{}, error) {
		return resolve(ctx, g, "ratios", symbol, g.ratios, func(r *contracts.Ratios) bool {
			return r != nil && r.ProfitMarginTTM != nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &ratios, nil
}

// AvgVolume resolves the trailing average volume, memoized per trading day
func (g *Gateway) AvgVolume(ctx context.Context, symbol string) (float64, error) {
	var avg float64
	err := g.memo(ctx, redis.AvgVolumeKey(symbol, g.day()), &avg, func() (interface{}, error) {
		return resolve(ctx, g, "avg_volume", symbol, g.avgVolume, func(v float64) bool { return v > 0 })
	})
	if err != nil {
		return 0, err
	}
	return avg, nil
}

// Quote resolves a live quote (never cached)
func (g *Gateway) Quote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	return resolve(ctx, g, "quote", symbol, g.quote, func(q *contracts.Quote) bool {
		return q != nil && (q.Price != nil || q.Volume != nil)
	})
}

// Headlines resolves recent headline titles
func (g *Gateway) Headlines(ctx context.Context, symbol string, limit int) ([]contracts.Headline, error) {
	sources := make([]Source[[]contracts.Headline], 0, len(g.headlines))
	for _, hs := range g.headlines {
		fetch := hs.fetch
		sources = append(sources, guarded(g, hs.name, func(ctx context.Context, symbol string) ([]contracts.Headline, error) {
			return fetch(ctx, symbol, limit)
		}))
	}
	return resolve(ctx, g, "headlines", symbol, sources, func(h []contracts.Headline) bool { return len(h) > 0 })
}

// resolve runs FirstSuccess and records the outcome
func resolve[T any](ctx context.Context, g *Gateway, feature, symbol string, sources []Source[T], usable func(T) bool) (T, error) {
	v, source, err := FirstSuccess(ctx, symbol, sources, usable)
	if err != nil {
		outcome := "error"
		if isOpen(err) {
			outcome = "breaker_open"
		}
		g.metrics.Lookup(feature, "none", outcome)
		g.logger.WithFields(map[string]interface{}{
			"feature": feature,
			"ticker":  symbol,
		}).WithError(err).Debug("lookup failed on all providers")
		return v, err
	}
	g.metrics.Lookup(feature, source, "ok")
	return v, nil
}

func (g *Gateway) memo(ctx context.Context, key string, dest interface{}, fn func() (interface{}, error)) error {
	if g.cache == nil {
		v, err := fn()
		if err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, dest)
	}
	return g.cache.GetOrSet(ctx, key, dest, redis.TTLDaily, fn)
}

// day is the exchange-local calendar date used in cache keys
func (g *Gateway) day() string {
	return g.now().In(g.loc).Format("2006-01-02")
}

func usableProfile(p *contracts.Profile) bool {
	if p == nil {
		return false
	}
	return p.Sector != "" || p.Industry != "" || p.Country != "" || p.Exchange != "" ||
		p.Employees != nil || p.Float != nil || p.MarketCap != nil || p.IsETF || p.IsFund
}
