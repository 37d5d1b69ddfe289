package selection

import (
	"math"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
)

// neutralScore is used when every known value in the batch is identical
const neutralScore = 0.5

// SoftScorer computes the batch-relative soft preference score
type SoftScorer struct {
	weights strategyconfig.SoftWeights
}

// NewSoftScorer creates a new soft scorer
func NewSoftScorer(weights strategyconfig.SoftWeights) *SoftScorer {
	return &SoftScorer{weights: weights}
}

type valueRange struct {
	min, max float64
	known    bool
}

func rangeOf(values []*float64) valueRange {
	r := valueRange{}
	for _, v := range values {
		if v == nil {
			continue
		}
		if !r.known {
			r = valueRange{min: *v, max: *v, known: true}
			continue
		}
		r.min = math.Min(r.min, *v)
		r.max = math.Max(r.max, *v)
	}
	return r
}

// scale maps v into [0,1]; unknown contributes 0, degenerate ranges 0.5
func (r valueRange) scale(v *float64, invert bool) float64 {
	if v == nil || !r.known {
		return 0
	}
	if r.max == r.min {
		return neutralScore
	}
	s := (*v - r.min) / (r.max - r.min)
	if invert {
		s = 1 - s
	}
	return Clamp01(s)
}

// Score normalizes float (inverted), log employees and average volume
// across the given batch only
func (s *SoftScorer) Score(cands []contracts.EnrichedCandidate) []contracts.ScoredCandidate {
	floats := make([]*float64, len(cands))
	employees := make([]*float64, len(cands))
	avgVolumes := make([]*float64, len(cands))

	for i, c := range cands {
		floats[i] = c.Float
		avgVolumes[i] = c.AvgVolume
		if c.Employees != nil {
			employees[i] = contracts.Float64(math.Log(math.Max(*c.Employees, 1)))
		}
	}

	floatRange := rangeOf(floats)
	employeeRange := rangeOf(employees)
	avgVolumeRange := rangeOf(avgVolumes)

	scored := make([]contracts.ScoredCandidate, len(cands))
	for i, c := range cands {
		pref := s.weights.Float*floatRange.scale(floats[i], true) +
			s.weights.Employees*employeeRange.scale(employees[i], false) +
			s.weights.AvgVolume*avgVolumeRange.scale(avgVolumes[i], false)

		scored[i] = contracts.ScoredCandidate{
			EnrichedCandidate: c,
			SoftPref:          Clamp01(pref),
		}
		scored[i].SoftPrefAdj = scored[i].SoftPref
	}

	return scored
}

// Clamp01 bounds v to [0,1]
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
