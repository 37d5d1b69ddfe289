package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/logger"
)

func newTestScreener() *Screener {
	return NewScreener(strategyconfig.Default().Filter, logger.NewNop(), nil)
}

func passedTickers(r ScreenResult) []string {
	out := make([]string, len(r.Passed))
	for i, c := range r.Passed {
		out[i] = c.Ticker
	}
	return out
}

func TestScreener_Strict(t *testing.T) {
	ok := candidate("GOOD", 4, 3_000_000, 10_000_000)

	etf := candidate("TQQQ", 4, 3_000_000, 10_000_000)
	etf.IsETF = true

	otc := candidate("ABCDF", 4, 3_000_000, 10_000_000)
	otc.IsOTC = true

	tinyFloat := candidate("TINY", 4, 3_000_000, 1_500_000)

	noFloat := candidate("NOFL", 4, 3_000_000, 10_000_000)
	noFloat.Float = nil

	pricey := candidate("PRCY", 75, 3_000_000, 10_000_000)

	thin := candidate("THIN", 4, 3_000_000, 10_000_000)
	thin.AvgVolume = f(100_000)

	unknownRel := candidate("NREL", 4, 3_000_000, 10_000_000)
	unknownRel.RelVol = nil

	r := newTestScreener().Screen([]contracts.EnrichedCandidate{ok, etf, otc, tinyFloat, noFloat, pricey, thin, unknownRel})

	assert.Equal(t, TierStrict, r.Tier)
	assert.Equal(t, []string{"GOOD"}, passedTickers(r))
	assert.Equal(t, map[string]string{
		"TQQQ":  "etf",
		"ABCDF": "otc",
		"TINY":  "float",
		"NOFL":  "float_unknown",
		"PRCY":  "price_band",
		"THIN":  "avg_volume",
		"NREL":  "rel_volume",
	}, r.Excluded)
}

func TestScreener_RelaxedFallbackSortedByDollarVolume(t *testing.T) {
	// 모두 유동성 미달 -> relaxed
	a := candidate("AAAA", 2, 100_000, 10_000_000)
	b := candidate("BBBB", 3, 200_000, 10_000_000)
	c := candidate("CCCC", 60, 200_000, 10_000_000) // price band 위반
	d := candidate("DDDD", 2, 200_000, 1_000_000)   // float 위반

	r := newTestScreener().Screen([]contracts.EnrichedCandidate{a, b, c, d})

	assert.Equal(t, TierRelaxed, r.Tier)
	assert.Equal(t, []string{"BBBB", "AAAA"}, passedTickers(r))
	assert.Equal(t, "price_band", r.Excluded["CCCC"])
	assert.Equal(t, "float", r.Excluded["DDDD"])
}

func TestScreener_LastChanceKeepsFloatAndVenue(t *testing.T) {
	a := candidate("AAAA", 0.5, 100_000, 10_000_000)
	b := candidate("BBBB", 80, 100_000, 10_000_000)
	etf := candidate("CCCC", 90, 100_000, 10_000_000)
	etf.IsETF = true
	lowFloat := candidate("DDDD", 90, 100_000, 100_000)

	r := newTestScreener().Screen([]contracts.EnrichedCandidate{a, b, etf, lowFloat})

	assert.Equal(t, TierLastChance, r.Tier)
	assert.Equal(t, []string{"BBBB", "AAAA"}, passedTickers(r))
	assert.Equal(t, "etf", r.Excluded["CCCC"])
	assert.Equal(t, "float", r.Excluded["DDDD"])
}

func TestScreener_Empty(t *testing.T) {
	lowFloat := candidate("AAAA", 4, 3_000_000, 100_000)

	r := newTestScreener().Screen([]contracts.EnrichedCandidate{lowFloat})
	assert.Equal(t, TierEmpty, r.Tier)
	assert.Empty(t, r.Passed)
	assert.Equal(t, "float", r.Excluded["AAAA"])

	r = newTestScreener().Screen(nil)
	assert.Equal(t, TierEmpty, r.Tier)
}

func TestScreener_EveryPassedCandidateMeetsMinFloat(t *testing.T) {
	minFloat := strategyconfig.Default().Filter.MinFloat
	floats := []float64{100, 1_999_999, 2_000_000, 50_000_000}

	var cands []contracts.EnrichedCandidate
	for i, fl := range floats {
		c := candidate(string(rune('A'+i))+"XYZ", 4, 10_000, fl)
		cands = append(cands, c)
	}

	r := newTestScreener().Screen(cands)
	require.NotEmpty(t, r.Passed)
	for _, c := range r.Passed {
		assert.GreaterOrEqual(t, *c.Float, minFloat)
	}
}
