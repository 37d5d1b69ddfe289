package premarket

import (
	"math"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
)

// Compute derives window metrics from 1-minute bars in [start, end).
// pmScore is left nil; it is batch-relative (see Score).
func Compute(bars []contracts.Bar, start, end time.Time) contracts.PremarketMetrics {
	var (
		high, low     float64
		volume        float64
		weightedPrice float64
		upMinutes     int
		n             int
	)

	for _, b := range bars {
		if b.Timestamp.Before(start) || !b.Timestamp.Before(end) {
			continue
		}
		if n == 0 {
			high, low = b.High, b.Low
		} else {
			high = math.Max(high, b.High)
			low = math.Min(low, b.Low)
		}
		n++

		volume += b.Volume
		price := b.VWAP
		if price <= 0 {
			price = (b.High + b.Low + b.Close) / 3
		}
		weightedPrice += price * b.Volume

		if b.Close > b.Open {
			upMinutes++
		}
	}

	if n == 0 {
		return contracts.PremarketMetrics{}
	}

	m := contracts.PremarketMetrics{
		PMHigh:        contracts.Float64(high),
		PMLow:         contracts.Float64(low),
		PMVolume:      contracts.Float64(volume),
		PMUpMinutePct: contracts.Float64(float64(upMinutes) / float64(n) * 100),
	}
	if mid := (high + low) / 2; mid > 0 {
		m.PMRangePct = contracts.Float64((high - low) / mid * 100)
	}
	if volume > 0 {
		m.PMVWAP = contracts.Float64(weightedPrice / volume)
	}
	return m
}

// Score sets the batch-relative pmScore on every symbol with data.
// volume, range% and up-minute% are min-max normalized across the batch.
func Score(batch map[string]contracts.PremarketMetrics, weights strategyconfig.Premarket) map[string]contracts.PremarketMetrics {
	volume := newBounds()
	rangePct := newBounds()
	upMinutes := newBounds()

	for _, m := range batch {
		if !m.HasData() {
			continue
		}
		volume.add(m.PMVolume)
		rangePct.add(m.PMRangePct)
		upMinutes.add(m.PMUpMinutePct)
	}

	scored := make(map[string]contracts.PremarketMetrics, len(batch))
	for symbol, m := range batch {
		m.PMScore = nil
		if m.HasData() {
			score := weights.VolumeWeight*volume.scale(m.PMVolume) +
				weights.RangeWeight*rangePct.scale(m.PMRangePct) +
				weights.UpMinutesWeight*upMinutes.scale(m.PMUpMinutePct)
			m.PMScore = contracts.Float64(score)
		}
		scored[symbol] = m
	}
	return scored
}

type bounds struct {
	min, max float64
	known    bool
}

func newBounds() *bounds {
	return &bounds{}
}

func (b *bounds) add(v *float64) {
	if v == nil {
		return
	}
	if !b.known {
		b.min, b.max, b.known = *v, *v, true
		return
	}
	b.min = math.Min(b.min, *v)
	b.max = math.Max(b.max, *v)
}

// scale: unknown -> 0, degenerate range -> 0.5
func (b *bounds) scale(v *float64) float64 {
	if v == nil || !b.known {
		return 0
	}
	if b.max == b.min {
		return 0.5
	}
	return (*v - b.min) / (b.max - b.min)
}
