package selection

import (
	"sort"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/logger"
)

// Ranker implements the composite first pass and the policy comparator
// ⭐ SSOT: 랭킹 로직은 여기서만
type Ranker struct {
	pref   strategyconfig.Preference
	tilt   *Tilt
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(pref strategyconfig.Preference, tilt *Tilt, log *logger.Logger) *Ranker {
	return &Ranker{
		pref:   pref,
		tilt:   tilt,
		logger: log,
	}
}

// LowFloat reports a known float at or below the low-float ceiling
func (r *Ranker) LowFloat(c contracts.EnrichedCandidate) bool {
	return c.Float != nil && *c.Float <= r.pref.LowFloatCeiling
}

// SmallCap reports a known market cap at or below the small-cap ceiling
func (r *Ranker) SmallCap(c contracts.EnrichedCandidate) bool {
	return c.MarketCap != nil && *c.MarketCap <= r.pref.SmallCapCeiling
}

// Preferred reports whether c satisfies either preference
func (r *Ranker) Preferred(c contracts.EnrichedCandidate) bool {
	return r.LowFloat(c) || r.SmallCap(c)
}

// Shortlist orders by pmScore, dollar volume, softPrefAdj and returns the top n
func (r *Ranker) Shortlist(scored []contracts.ScoredCandidate, n int) []contracts.ScoredCandidate {
	ordered := make([]contracts.ScoredCandidate, len(scored))
	copy(ordered, scored)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if c := compareDesc(a.PMScore, b.PMScore); c != 0 {
			return c < 0
		}
		if c := compareDesc(a.DollarVolume, b.DollarVolume); c != 0 {
			return c < 0
		}
		if a.SoftPrefAdj != b.SoftPrefAdj {
			return a.SoftPrefAdj > b.SoftPrefAdj
		}
		return a.Ticker < b.Ticker
	})

	if n > 0 && len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}

// Rank orders by the policy comparator and assigns 1-based ranks
func (r *Ranker) Rank(scored []contracts.ScoredCandidate) []contracts.ScoredCandidate {
	ranked := make([]contracts.ScoredCandidate, len(scored))
	copy(ranked, scored)

	sort.SliceStable(ranked, func(i, j int) bool {
		return r.compare(ranked[i], ranked[j]) < 0
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if len(ranked) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"total_stocks": len(ranked),
			"top_code":     ranked[0].Ticker,
			"top_pm_score": ranked[0].PMScore,
		}).Info("Ranking completed")
	}

	return ranked
}

// compare is the policy comparator; negative means a ranks first
func (r *Ranker) compare(a, b contracts.ScoredCandidate) int {
	// 1. low-float 우선
	aLow, bLow := r.LowFloat(a.EnrichedCandidate), r.LowFloat(b.EnrichedCandidate)
	if aLow != bLow {
		return boolFirst(aLow)
	}

	// 2. small-cap 우선
	aSmall, bSmall := r.SmallCap(a.EnrichedCandidate), r.SmallCap(b.EnrichedCandidate)
	if aSmall != bSmall {
		return boolFirst(aSmall)
	}

	// 3. 둘 다 low-float: 직원 수 많은 쪽, 그 다음 float 작은 쪽
	if aLow && bLow {
		if ae, be := employeesOrUnknown(a), employeesOrUnknown(b); ae != be {
			if ae > be {
				return -1
			}
			return 1
		}
		if *a.Float != *b.Float {
			if *a.Float < *b.Float {
				return -1
			}
			return 1
		}
	}

	// 4. tilt match
	if a.TiltMatch != b.TiltMatch {
		return boolFirst(a.TiltMatch)
	}

	// 5. non-flagged geography
	if r.tilt != nil {
		aFlag, bFlag := r.tilt.Flagged(a.Country), r.tilt.Flagged(b.Country)
		if aFlag != bFlag {
			return boolFirst(bFlag)
		}
	}

	if c := compareDesc(a.PMScore, b.PMScore); c != 0 {
		return c
	}
	if c := compareDesc(a.DollarVolume, b.DollarVolume); c != 0 {
		return c
	}
	if a.SoftPrefAdj != b.SoftPrefAdj {
		if a.SoftPrefAdj > b.SoftPrefAdj {
			return -1
		}
		return 1
	}
	if a.Ticker < b.Ticker {
		return -1
	}
	if a.Ticker > b.Ticker {
		return 1
	}
	return 0
}

func boolFirst(aWins bool) int {
	if aWins {
		return -1
	}
	return 1
}

func employeesOrUnknown(c contracts.ScoredCandidate) float64 {
	if c.Employees == nil {
		return -1
	}
	return *c.Employees
}
