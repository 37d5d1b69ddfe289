package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/logger"
)

func newTestRanker() *Ranker {
	cfg := strategyconfig.Default()
	return NewRanker(cfg.Preference, NewTilt(cfg.Tilt), logger.NewNop())
}

func scoredTickers(cands []contracts.ScoredCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Ticker
	}
	return out
}

func scored(c contracts.EnrichedCandidate) contracts.ScoredCandidate {
	return contracts.ScoredCandidate{EnrichedCandidate: c}
}

func TestRanker_ShortlistOrder(t *testing.T) {
	a := scored(candidate("AAAA", 4, 1e6, 5e6))
	a.PMScore = f(0.2)
	b := scored(candidate("BBBB", 4, 2e6, 5e6))
	b.PMScore = f(0.9)
	c := scored(candidate("CCCC", 4, 9e6, 5e6)) // pm 없음
	d := scored(candidate("DDDD", 4, 1e6, 5e6))
	d.PMScore = f(0.2)
	d.SoftPrefAdj = 0.7

	list := newTestRanker().Shortlist([]contracts.ScoredCandidate{a, b, c, d}, 3)
	assert.Equal(t, []string{"BBBB", "DDDD", "AAAA"}, scoredTickers(list))
}

func TestRanker_PolicyComparator(t *testing.T) {
	// low-float(<=20M) + small-cap 먼저
	big := scored(candidate("BIGF", 4, 5e6, 80e6))
	big.PMScore = f(1)

	lowFewStaff := scored(candidate("LOWA", 4, 1e6, 10e6))
	lowFewStaff.Employees = f(20)

	lowManyStaff := scored(candidate("LOWB", 4, 1e6, 15e6))
	lowManyStaff.Employees = f(400)

	lowUnknownStaff := scored(candidate("LOWC", 4, 1e6, 8e6))

	ranked := newTestRanker().Rank([]contracts.ScoredCandidate{big, lowFewStaff, lowUnknownStaff, lowManyStaff})

	assert.Equal(t, []string{"LOWB", "LOWA", "LOWC", "BIGF"}, scoredTickers(ranked))
	for i, c := range ranked {
		assert.Equal(t, i+1, c.Rank)
	}
}

func TestRanker_SmallCapBeforeLargeCap(t *testing.T) {
	small := scored(candidate("SMAL", 4, 1e6, 100e6))
	large := scored(candidate("LARG", 40, 1e6, 100e6)) // 4B cap
	large.PMScore = f(1)

	ranked := newTestRanker().Rank([]contracts.ScoredCandidate{large, small})
	assert.Equal(t, []string{"SMAL", "LARG"}, scoredTickers(ranked))
}

func TestRanker_SoftTiebreaks(t *testing.T) {
	base := func(ticker string) contracts.ScoredCandidate {
		return scored(candidate(ticker, 4, 1e6, 100e6))
	}

	match := base("MTCH")
	match.TiltMatch = true
	flagged := base("FLAG")
	flagged.Country = "China"
	flagged.TiltMatch = true
	plain := base("PLAN")
	plain.PMScore = f(0.9)

	ranked := newTestRanker().Rank([]contracts.ScoredCandidate{plain, flagged, match})
	assert.Equal(t, []string{"MTCH", "FLAG", "PLAN"}, scoredTickers(ranked))
}

func TestRanker_DollarVolumeDominatesWithoutPremarket(t *testing.T) {
	// 프리마켓 데이터 전부 없음
	a := scored(candidate("AAAA", 4, 1e6, 100e6))
	b := scored(candidate("BBBB", 4, 3e6, 100e6))
	c := scored(candidate("CCCC", 4, 2e6, 100e6))
	c.SoftPrefAdj = 1

	r := newTestRanker()
	first := r.Rank([]contracts.ScoredCandidate{a, b, c})
	second := r.Rank([]contracts.ScoredCandidate{c, a, b})

	require.Equal(t, []string{"BBBB", "CCCC", "AAAA"}, scoredTickers(first))
	assert.Equal(t, scoredTickers(first), scoredTickers(second))
}

func TestRanker_Preferences(t *testing.T) {
	r := newTestRanker()

	low := candidate("LOWF", 4, 1e6, 10e6)
	assert.True(t, r.LowFloat(low))
	assert.True(t, r.Preferred(low))

	huge := candidate("HUGE", 100, 1e6, 500e6)
	assert.False(t, r.LowFloat(huge))
	assert.False(t, r.SmallCap(huge))
	assert.False(t, r.Preferred(huge))

	unknown := candidate("UNKN", 4, 1e6, 10e6)
	unknown.Float = nil
	unknown.MarketCap = nil
	assert.False(t, r.Preferred(unknown))
}
