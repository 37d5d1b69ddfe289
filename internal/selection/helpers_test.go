package selection

import (
	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/normalize"
)

func f(v float64) *float64 { return contracts.Float64(v) }

// candidate builds a strict-passing enriched candidate that tests then mutate
func candidate(ticker string, price, volume, float float64) contracts.EnrichedCandidate {
	c := contracts.EnrichedCandidate{
		RawCandidate: contracts.RawCandidate{
			Ticker:    ticker,
			Price:     f(price),
			Volume:    f(volume),
			Float:     f(float),
			MarketCap: f(price * float),
		},
		AvgVolume: f(500_000),
		Country:   "US",
		Industry:  "Biotechnology",
	}
	normalize.Derive(&c.RawCandidate)
	c.RelVol = f(volume / 500_000)
	return c
}
