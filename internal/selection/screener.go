package selection

import (
	"sort"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/logger"
	"github.com/wonny/aegis-watch/pkg/metrics"
)

// Filter tiers, strictest first
const (
	TierStrict     = "strict"
	TierRelaxed    = "relaxed"
	TierLastChance = "last_chance"
	TierEmpty      = "empty"
)

// Screener implements the hard eligibility gate
// ⭐ SSOT: 하드 필터 로직은 여기서만
type Screener struct {
	config  strategyconfig.Filter
	logger  *logger.Logger
	metrics *metrics.Registry
}

// ScreenResult is the admitted pool and why everyone else was excluded
type ScreenResult struct {
	Tier     string                        `json:"tier"`
	Passed   []contracts.EnrichedCandidate `json:"-"`
	Excluded map[string]string             `json:"excluded"`
}

// NewScreener creates a new screener
func NewScreener(config strategyconfig.Filter, log *logger.Logger, reg *metrics.Registry) *Screener {
	return &Screener{
		config:  config,
		logger:  log,
		metrics: reg,
	}
}

// Screen applies the strict gate, falling back to the relaxed then the
// last-chance pool when the stricter pool is empty.
// float/venue 규칙은 어떤 tier에서도 완화하지 않음
func (s *Screener) Screen(candidates []contracts.EnrichedCandidate) ScreenResult {
	started := time.Now()
	defer s.metrics.ObserveStage("filter", started)

	var result ScreenResult
	for _, tier := range []string{TierStrict, TierRelaxed, TierLastChance} {
		result = s.screenTier(candidates, tier)
		if len(result.Passed) > 0 {
			break
		}
	}
	if len(result.Passed) == 0 {
		result.Tier = TierEmpty
	}

	if result.Tier != TierStrict {
		SortByDollarVolume(result.Passed)
	}

	s.metrics.Tier(result.Tier)
	s.logger.WithFields(map[string]interface{}{
		"tier":         result.Tier,
		"total_input":  len(candidates),
		"passed":       len(result.Passed),
		"filtered_out": len(result.Excluded),
	}).Info("Screening completed")

	return result
}

func (s *Screener) screenTier(candidates []contracts.EnrichedCandidate, tier string) ScreenResult {
	result := ScreenResult{
		Tier:     tier,
		Passed:   make([]contracts.EnrichedCandidate, 0, len(candidates)),
		Excluded: make(map[string]string),
	}

	for _, c := range candidates {
		if reason := s.checkConditions(c, tier); reason != "" {
			result.Excluded[c.Ticker] = reason
			continue
		}
		result.Passed = append(result.Passed, c)
	}
	return result
}

// checkConditions returns "" when c passes the tier, otherwise the filter name.
// Unknown values never pass a threshold.
func (s *Screener) checkConditions(c contracts.EnrichedCandidate, tier string) string {
	// Always enforced
	if c.IsETF {
		return "etf"
	}
	if c.IsOTC {
		return "otc"
	}
	if !FloatOK(c, s.config.MinFloat) {
		if c.Float == nil {
			return "float_unknown"
		}
		return "float"
	}

	if tier == TierLastChance {
		return ""
	}

	if !atLeast(s.config.PriceMin, c.Price) || exceeds(s.config.PriceMax, c.Price) {
		return "price_band"
	}

	if tier == TierRelaxed {
		return ""
	}

	if !atLeast(s.config.MinAvgVolume, c.AvgVolume) {
		return "avg_volume"
	}
	if !atLeast(s.config.MinRelVolume, c.RelVol) {
		return "rel_volume"
	}
	if !atLeast(s.config.MinDollarVolume, c.DollarVolume) {
		return "dollar_volume"
	}

	return ""
}

// FloatOK reports whether the float is known and at least minFloat
func FloatOK(c contracts.EnrichedCandidate, minFloat float64) bool {
	return c.Float != nil && *c.Float >= minFloat
}

// atLeast reports v >= min with v known
func atLeast(threshold float64, v *float64) bool {
	return v != nil && *v >= threshold
}

// exceeds reports v > max with v known
func exceeds(ceiling float64, v *float64) bool {
	return v != nil && *v > ceiling
}

// SortByDollarVolume orders candidates by dollar volume desc, ticker asc
func SortByDollarVolume(cands []contracts.EnrichedCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if c := compareDesc(cands[i].DollarVolume, cands[j].DollarVolume); c != 0 {
			return c < 0
		}
		return cands[i].Ticker < cands[j].Ticker
	})
}
