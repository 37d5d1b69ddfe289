package premarket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
)

func TestCompute(t *testing.T) {
	start := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	bars := []contracts.Bar{
		{Timestamp: start.Add(-time.Minute), Open: 1, High: 100, Low: 0.5, Close: 1, Volume: 1e6}, // 창 밖
		{Timestamp: start, Open: 2.0, High: 2.4, Low: 1.9, Close: 2.3, Volume: 1000, VWAP: 2.2},
		{Timestamp: start.Add(time.Minute), Open: 2.3, High: 2.6, Low: 2.2, Close: 2.25, Volume: 3000, VWAP: 0},
		{Timestamp: end, Open: 9, High: 9, Low: 9, Close: 9, Volume: 1e6}, // end 미포함
	}

	m := Compute(bars, start, end)
	require.True(t, m.HasData())

	assert.Equal(t, 2.6, *m.PMHigh)
	assert.Equal(t, 1.9, *m.PMLow)
	assert.InDelta(t, (2.6-1.9)/2.25*100, *m.PMRangePct, 1e-9)
	assert.Equal(t, 4000.0, *m.PMVolume)
	typical := (2.6 + 2.2 + 2.25) / 3
	assert.InDelta(t, (2.2*1000+typical*3000)/4000, *m.PMVWAP, 1e-9)
	assert.Equal(t, 50.0, *m.PMUpMinutePct)
	assert.Nil(t, m.PMScore)
}

func TestCompute_NoBars(t *testing.T) {
	m := Compute(nil, time.Now(), time.Now())
	assert.False(t, m.HasData())
	assert.Nil(t, m.PMHigh)
}

func TestScore(t *testing.T) {
	w := strategyconfig.Premarket{VolumeWeight: 0.4, RangeWeight: 0.4, UpMinutesWeight: 0.2}
	batch := map[string]contracts.PremarketMetrics{
		"HIGH": {PMVolume: contracts.Float64(9000), PMRangePct: contracts.Float64(12), PMUpMinutePct: contracts.Float64(60)},
		"LOWW": {PMVolume: contracts.Float64(1000), PMRangePct: contracts.Float64(2), PMUpMinutePct: contracts.Float64(60)},
		"NONE": {},
	}

	scored := Score(batch, w)

	// up-minute 동일 -> 0.5
	assert.InDelta(t, 0.4+0.4+0.2*0.5, *scored["HIGH"].PMScore, 1e-9)
	assert.InDelta(t, 0.2*0.5, *scored["LOWW"].PMScore, 1e-9)
	assert.Nil(t, scored["NONE"].PMScore)
}
