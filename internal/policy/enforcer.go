// Package policy turns untrusted advisor proposals into final picks that obey
// the hard float rule and the low-float/small-cap preference, then applies the
// order-book tiebreak between two finalists.
package policy

import (
	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/selection"
	"github.com/wonny/aegis-watch/pkg/logger"
	"github.com/wonny/aegis-watch/pkg/metrics"
)

// DefaultTopN and MaxTopN bound the number of final picks
const (
	DefaultTopN = 2
	MaxTopN     = 2
)

// Enforcement reasons
const (
	ReasonNotInTable = "not_in_table"
	ReasonFloatBelow = "float_below_min"
	ReasonPreference = "preference"
	ReasonDuplicate  = "duplicate"
	ReasonOverflow   = "over_top_n"
	ReasonKeptAsIs   = "kept_no_alternate"
)

// Slot sources
const (
	SourceAdvisor    = "advisor"
	SourceSubstitute = "substitute"
	SourceBackfill   = "backfill"
)

// Substitution records one advisor ticker replaced by the enforcer
type Substitution struct {
	Proposed    string `json:"proposed"`
	Replacement string `json:"replacement"`
	Reason      string `json:"reason"`
}

// Drop records one advisor ticker rejected without replacement
type Drop struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// Slot is one final pick and how it got there
type Slot struct {
	Candidate contracts.ScoredCandidate `json:"-"`
	Ticker    string                    `json:"ticker"`
	Source    string                    `json:"source"`
}

// Outcome is the enforced selection
type Outcome struct {
	Slots         []Slot         `json:"slots"`
	Substitutions []Substitution `json:"substitutions"`
	Dropped       []Drop         `json:"dropped"`
	Notes         []string       `json:"notes,omitempty"`
}

// Tickers returns the final tickers in order
func (o Outcome) Tickers() []string {
	out := make([]string, len(o.Slots))
	for i, s := range o.Slots {
		out[i] = s.Ticker
	}
	return out
}

// ClampTopN maps a requested count onto [1, maxPicks]; zero means DefaultTopN.
// maxPicks is the policy ceiling (ranking.max_picks), itself capped at MaxTopN.
func ClampTopN(n, maxPicks int) int {
	if maxPicks <= 0 || maxPicks > MaxTopN {
		maxPicks = MaxTopN
	}
	if n <= 0 {
		n = DefaultTopN
	}
	if n > maxPicks {
		return maxPicks
	}
	return n
}

// Enforcer validates advisor picks against the ranked table
// ⭐ SSOT: 최종 선정 규칙(플로트 하한, 선호 정책, 백필)은 여기서만
type Enforcer struct {
	ranker   *selection.Ranker
	minFloat float64
	maxPicks int
	logger   *logger.Logger
	metrics  *metrics.Registry
}

// NewEnforcer creates an enforcer. ranker supplies the preference predicates;
// maxPicks caps every run regardless of the requested count.
func NewEnforcer(ranker *selection.Ranker, minFloat float64, maxPicks int, log *logger.Logger, reg *metrics.Registry) *Enforcer {
	return &Enforcer{
		ranker:   ranker,
		minFloat: minFloat,
		maxPicks: maxPicks,
		logger:   log,
		metrics:  reg,
	}
}

// Enforce builds at most topN unique, float-compliant picks.
// table must be in ranked order; proposed is the advisor's ticker list.
// pool (optional) is the wider enriched set, used to recognise proposals that
// the hard filter removed for their float.
func (e *Enforcer) Enforce(proposed []string, table []contracts.ScoredCandidate, pool []contracts.EnrichedCandidate, topN int) Outcome {
	topN = e.TopN(topN)
	out := Outcome{
		Slots:         make([]Slot, 0, topN),
		Substitutions: []Substitution{},
		Dropped:       []Drop{},
	}

	lowFloat := make(map[string]bool)
	byTicker := make(map[string]int, len(table))
	for i, c := range table {
		byTicker[c.Ticker] = i
	}

	for _, c := range pool {
		if _, ok := byTicker[c.Ticker]; !ok && !selection.FloatOK(c, e.minFloat) {
			lowFloat[c.Ticker] = true
		}
	}

	used := make(map[string]bool, topN)

	// 유효한 advisor 제안은 대체 후보에서 제외 (자기 슬롯 유지)
	reserved := make(map[string]bool, len(proposed))
	for _, t := range proposed {
		if i, ok := byTicker[t]; ok && e.floatOK(table[i]) {
			reserved[t] = true
		}
	}

	for _, t := range proposed {
		if used[t] {
			out.Dropped = append(out.Dropped, Drop{Ticker: t, Reason: ReasonDuplicate})
			continue
		}
		if len(out.Slots) >= topN {
			out.Dropped = append(out.Dropped, Drop{Ticker: t, Reason: ReasonOverflow})
			continue
		}

		i, ok := byTicker[t]
		if !ok && !lowFloat[t] {
			out.Dropped = append(out.Dropped, Drop{Ticker: t, Reason: ReasonNotInTable})
			continue
		}

		if !ok || !e.floatOK(table[i]) {
			if alt, ok := e.alternate(table, used, reserved); ok {
				e.take(&out, used, alt, SourceSubstitute)
				out.Substitutions = append(out.Substitutions, Substitution{Proposed: t, Replacement: alt.Ticker, Reason: ReasonFloatBelow})
			} else {
				out.Dropped = append(out.Dropped, Drop{Ticker: t, Reason: ReasonFloatBelow})
			}
			continue
		}
		c := table[i]
		if e.ranker.Preferred(c.EnrichedCandidate) {
			e.take(&out, used, c, SourceAdvisor)
			continue
		}

		// low-float도 small-cap도 아님: 선호 후보로 대체, 없으면 유지
		if alt, ok := e.alternate(table, used, reserved); ok {
			e.take(&out, used, alt, SourceSubstitute)
			out.Substitutions = append(out.Substitutions, Substitution{Proposed: t, Replacement: alt.Ticker, Reason: ReasonPreference})
		} else {
			e.take(&out, used, c, SourceAdvisor)
			out.Notes = append(out.Notes, t+": "+ReasonKeptAsIs)
		}
	}

	// 남은 슬롯은 랭킹 순서대로 (플로트 조건 유지)
	for _, c := range table {
		if len(out.Slots) >= topN {
			break
		}
		if used[c.Ticker] || !e.floatOK(c) {
			continue
		}
		e.take(&out, used, c, SourceBackfill)
	}

	e.metrics.Policy("substituted", len(out.Substitutions))
	e.metrics.Policy("dropped", len(out.Dropped))
	e.metrics.Policy("backfilled", countSource(out.Slots, SourceBackfill))

	e.logger.WithFields(map[string]interface{}{
		"proposed":      proposed,
		"final":         out.Tickers(),
		"substitutions": len(out.Substitutions),
		"dropped":       len(out.Dropped),
	}).Info("Policy enforced")

	return out
}

// TopN clamps a requested count to the policy ceiling
func (e *Enforcer) TopN(requested int) int {
	return ClampTopN(requested, e.maxPicks)
}

func (e *Enforcer) floatOK(c contracts.ScoredCandidate) bool {
	return selection.FloatOK(c.EnrichedCandidate, e.minFloat)
}

// alternate is the highest-ranked unused, unreserved, float-compliant preferred entry
func (e *Enforcer) alternate(table []contracts.ScoredCandidate, used, reserved map[string]bool) (contracts.ScoredCandidate, bool) {
	for _, c := range table {
		if used[c.Ticker] || reserved[c.Ticker] {
			continue
		}
		if e.floatOK(c) && e.ranker.Preferred(c.EnrichedCandidate) {
			return c, true
		}
	}
	return contracts.ScoredCandidate{}, false
}

func (e *Enforcer) take(out *Outcome, used map[string]bool, c contracts.ScoredCandidate, source string) {
	used[c.Ticker] = true
	out.Slots = append(out.Slots, Slot{Candidate: c, Ticker: c.Ticker, Source: source})
}

func countSource(slots []Slot, source string) int {
	n := 0
	for _, s := range slots {
		if s.Source == source {
			n++
		}
	}
	return n
}
