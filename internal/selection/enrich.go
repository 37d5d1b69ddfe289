package selection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/normalize"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/logger"
	"github.com/wonny/aegis-watch/pkg/metrics"
)

// Enricher fans out gateway lookups per candidate
// ⭐ SSOT: 후보 보강(enrichment)은 여기서만
type Enricher struct {
	gateway contracts.MarketDataGateway
	config  strategyconfig.Enrich
	logger  *logger.Logger
	metrics *metrics.Registry
}

// NewEnricher creates a new enricher
func NewEnricher(gateway contracts.MarketDataGateway, config strategyconfig.Enrich, log *logger.Logger, reg *metrics.Registry) *Enricher {
	return &Enricher{
		gateway: gateway,
		config:  config,
		logger:  log,
		metrics: reg,
	}
}

// lookups holds the independent per-symbol gateway results
type lookups struct {
	profile   *contracts.Profile
	ratios    *contracts.Ratios
	headlines []contracts.Headline
	avgVolume *float64
	quote     *contracts.Quote
	failed    int
}

// Enrich enriches the dollar-volume sub-pool of raws concurrently.
// Only the sub-pool is returned; all lookups finish before it returns.
func (e *Enricher) Enrich(ctx context.Context, raws []contracts.RawCandidate) []contracts.EnrichedCandidate {
	started := time.Now()
	defer e.metrics.ObserveStage("enrich", started)

	pool := SubPool(raws, e.config.Limit)
	enriched := make([]contracts.EnrichedCandidate, len(pool))

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i := range pool {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l := e.lookup(ctx, pool[i].Ticker)
			enriched[i] = merge(pool[i], l)

			mu.Lock()
			failed += l.failed
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	e.logger.WithFields(map[string]interface{}{
		"input":          len(raws),
		"pool":           len(pool),
		"failed_lookups": failed,
		"duration_ms":    time.Since(started).Milliseconds(),
	}).Info("Enrichment completed")

	return enriched
}

// lookup issues the five independent lookups for one symbol
// 실패한 조회는 nil 필드로 남김
func (e *Enricher) lookup(ctx context.Context, symbol string) lookups {
	var (
		l  lookups
		mu sync.Mutex
		wg sync.WaitGroup
	)

	fail := func(feature string, err error) {
		mu.Lock()
		l.failed++
		mu.Unlock()
		e.logger.WithFields(map[string]interface{}{
			"ticker":  symbol,
			"feature": feature,
		}).WithError(err).Debug("Lookup degraded to null")
	}

	wg.Add(5)
	go func() {
		defer wg.Done()
		if p, err := e.gateway.Profile(ctx, symbol); err != nil {
			fail("profile", err)
		} else {
			l.profile = p
		}
	}()
	go func() {
		defer wg.Done()
		if r, err := e.gateway.Ratios(ctx, symbol); err != nil {
			fail("ratios", err)
		} else {
			l.ratios = r
		}
	}()
	go func() {
		defer wg.Done()
		if e.config.HeadlineLimit == 0 {
			return
		}
		if h, err := e.gateway.Headlines(ctx, symbol, e.config.HeadlineLimit); err != nil {
			fail("headlines", err)
		} else {
			l.headlines = h
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := e.gateway.AvgVolume(ctx, symbol); err != nil {
			fail("avg_volume", err)
		} else if v > 0 {
			l.avgVolume = contracts.Float64(v)
		}
	}()
	go func() {
		defer wg.Done()
		if q, err := e.gateway.Quote(ctx, symbol); err != nil {
			fail("quote", err)
		} else {
			l.quote = q
		}
	}()
	wg.Wait()

	return l
}

// merge fills unknown raw fields from lookups without overwriting known values
func merge(raw contracts.RawCandidate, l lookups) contracts.EnrichedCandidate {
	e := contracts.EnrichedCandidate{RawCandidate: raw}

	if p := l.profile; p != nil {
		e.Sector = p.Sector
		e.Industry = p.Industry
		e.Country = p.Country
		e.Exchange = p.Exchange
		if e.Name == "" {
			e.Name = p.Name
		}
		fill(&e.Float, p.Float)
		fill(&e.Employees, p.Employees)
		fill(&e.MarketCap, p.MarketCap)
	}

	if l.ratios != nil {
		e.ProfitMarginTTM = l.ratios.ProfitMarginTTM
	}

	e.AvgVolume = l.avgVolume
	if q := l.quote; q != nil {
		fill(&e.Price, q.Price)
		fill(&e.Volume, q.Volume)
		fill(&e.AvgVolume, q.AvgVolume)
	}

	if e.MarketCap == nil && e.Price != nil && e.Float != nil {
		e.MarketCap = contracts.Float64(*e.Price * *e.Float)
	}

	normalize.Derive(&e.RawCandidate)
	if e.Volume != nil && e.AvgVolume != nil && *e.AvgVolume > 0 {
		e.RelVol = contracts.Float64(*e.Volume / *e.AvgVolume)
	}

	titles := make([]string, 0, len(l.headlines))
	for _, h := range l.headlines {
		titles = append(titles, h.Title)
	}
	if len(titles) > 0 {
		e.Headlines = titles
	}
	e.HeadlinePos, e.HeadlineNeg = CountSentiment(titles)

	e.IsETF = DetectETF(l.profile, e.Name, e.Industry)
	e.IsOTC = DetectOTC(e.Exchange, e.Ticker)

	return e
}

func fill(dst **float64, src *float64) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

// SubPool returns up to limit candidates ordered by dollar volume desc
// (unknown last, ticker asc on ties)
func SubPool(raws []contracts.RawCandidate, limit int) []contracts.RawCandidate {
	pool := make([]contracts.RawCandidate, len(raws))
	copy(pool, raws)

	sort.SliceStable(pool, func(i, j int) bool {
		if c := compareDesc(pool[i].DollarVolume, pool[j].DollarVolume); c != 0 {
			return c < 0
		}
		return pool[i].Ticker < pool[j].Ticker
	})

	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}
	return pool
}

// compareDesc orders known values high to low with unknown values last
// -1: a first, 1: b first, 0: tie
func compareDesc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	}
	return 0
}
