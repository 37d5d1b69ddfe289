// Package brain coordinates one watchlist selection run end to end.
package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wonny/aegis-watch/internal/advisor"
	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/normalize"
	"github.com/wonny/aegis-watch/internal/policy"
	"github.com/wonny/aegis-watch/internal/premarket"
	"github.com/wonny/aegis-watch/internal/selection"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/logger"
	"github.com/wonny/aegis-watch/pkg/metrics"
)

// Orchestrator coordinates the selection pipeline
// normalize → enrich → filter → score/tilt → shortlist → premarket → rank → advisor → enforce → tiebreak → persist
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	// Policy
	policy     *strategyconfig.Config
	policyHash string

	// Stage components
	enricher   *selection.Enricher
	screener   *selection.Screener
	softScorer *selection.SoftScorer
	tilt       *selection.Tilt
	ranker     *selection.Ranker
	premarket  *premarket.Service
	advisor    *advisor.Service
	enforcer   *policy.Enforcer
	tiebreaker *policy.Tiebreaker

	// Outputs
	repo     contracts.PickRepository
	notifier contracts.Notifier

	logger  *logger.Logger
	metrics *metrics.Registry
	now     func() time.Time
	newID   func() string
}

// Deps bundles the orchestrator collaborators
type Deps struct {
	Policy     *strategyconfig.Config
	Gateway    contracts.MarketDataGateway
	Premarket  *premarket.Service
	Advisor    *advisor.Service
	Pressure   contracts.PressureSource
	Repository contracts.PickRepository
	Notifier   contracts.Notifier // nil disables tracker notification

	TiebreakTimeout time.Duration
}

// NewOrchestrator wires the stage components from the policy
func NewOrchestrator(deps Deps, log *logger.Logger, reg *metrics.Registry) (*Orchestrator, error) {
	hash, err := strategyconfig.Hash(deps.Policy)
	if err != nil {
		return nil, fmt.Errorf("hash policy: %w", err)
	}

	p := deps.Policy
	tilt := selection.NewTilt(p.Tilt)
	ranker := selection.NewRanker(p.Preference, tilt, log)

	var tiebreaker *policy.Tiebreaker
	if deps.Pressure != nil {
		tiebreaker = policy.NewTiebreaker(deps.Pressure, deps.TiebreakTimeout, log)
	}

	return &Orchestrator{
		policy:     p,
		policyHash: hash,
		enricher:   selection.NewEnricher(deps.Gateway, p.Enrich, log, reg),
		screener:   selection.NewScreener(p.Filter, log, reg),
		softScorer: selection.NewSoftScorer(p.Preference.Weights),
		tilt:       tilt,
		ranker:     ranker,
		premarket:  deps.Premarket,
		advisor:    deps.Advisor,
		enforcer:   policy.NewEnforcer(ranker, p.Filter.MinFloat, p.Ranking.MaxPicks, log, reg),
		tiebreaker: tiebreaker,
		repo:       deps.Repository,
		notifier:   deps.Notifier,
		logger:     log,
		metrics:    reg,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// statusSkipped reports a run that never reached the premarket stage
const statusSkipped = "skipped"

// Request is one selection invocation
type Request struct {
	Rows []map[string]interface{}
	TopN int
}

// Response is the selection endpoint payload
type Response struct {
	Picks        []string            `json:"picks"`
	Primary      string              `json:"primary"`
	Secondary    string              `json:"secondary"`
	Reasons      map[string][]string `json:"reasons"`
	Risk         string              `json:"risk"`
	SavedCount   int                 `json:"savedCount"`
	Saved        []contracts.Pick    `json:"saved"`
	Raw          string              `json:"raw"`
	Context      RunContext          `json:"context"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
}

// RunContext is the diagnostic section of the response
type RunContext struct {
	RunID          string                      `json:"runId"`
	TopN           int                         `json:"topN"`
	Normalized     int                         `json:"normalized"`
	Skipped        int                         `json:"skipped"`
	Enriched       int                         `json:"enriched"`
	Tier           string                      `json:"tier"`
	Excluded       map[string]string           `json:"excluded"`
	IndustryWinner contracts.IndustryWinner    `json:"industryWinner"`
	Candidates     []contracts.ScoredCandidate `json:"candidates"`
	Premarket      premarket.Result            `json:"premarket"`
	Policy         PolicyContext               `json:"policy"`
	Advisor        AdvisorContext              `json:"advisor"`
	Enforcement    *policy.Outcome             `json:"enforcement,omitempty"`
	Tiebreak       policy.TiebreakResult       `json:"tiebreak"`
	DurationMs     int64                       `json:"durationMs"`
}

// PolicyContext reports the active thresholds
type PolicyContext struct {
	Hash       string                 `json:"hash"`
	Thresholds *strategyconfig.Config `json:"thresholds"`
}

// AdvisorContext reports how the advisor reply was interpreted
type AdvisorContext struct {
	Provider   string             `json:"provider"`
	Provenance advisor.Provenance `json:"provenance"`
	Stage      string             `json:"stage"`
	Proposed   []string           `json:"proposed"`
	Error      string             `json:"error,omitempty"`
}

// Run executes one selection. The only errors returned are ConfigMissingError
// (before any external call) and ErrNoCandidates; every other failure degrades
// into the response.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	started := o.now()

	if err := o.advisor.Ready(); err != nil {
		return nil, err
	}

	runID := o.newID()
	topN := o.enforcer.TopN(req.TopN)
	log := o.logger.WithField("run_id", runID)

	resp := &Response{
		Picks:   []string{},
		Reasons: map[string][]string{},
		Saved:   []contracts.Pick{},
		Context: RunContext{
			RunID:    runID,
			TopN:     topN,
			Excluded: map[string]string{},
			Policy:   PolicyContext{Hash: o.policyHash, Thresholds: o.policy},
		},
	}

	// 1. Normalize
	norm := normalize.Normalize(req.Rows, o.policy.Normalize.MaxRows)
	resp.Context.Normalized = len(norm.Candidates)
	resp.Context.Skipped = norm.Skipped
	if len(norm.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no usable rows among %d", contracts.ErrNoCandidates, len(req.Rows))
	}

	log.WithFields(map[string]interface{}{
		"rows":      len(req.Rows),
		"accepted":  len(norm.Candidates),
		"skipped":   norm.Skipped,
		"truncated": norm.Truncated,
		"top_n":     topN,
	}).Info("Starting selection run")

	// 2. Enrich + industry winner over the enriched pool
	enriched := o.enricher.Enrich(ctx, norm.Candidates)
	resp.Context.Enriched = len(enriched)
	winner := selection.IndustryWinnerOf(enriched)
	resp.Context.IndustryWinner = winner

	// 3. Hard filter
	screen := o.screener.Screen(enriched)
	resp.Context.Tier = screen.Tier
	if screen.Excluded != nil {
		resp.Context.Excluded = screen.Excluded
	}
	if len(screen.Passed) == 0 {
		resp.Context.Premarket = o.premarketStatus()
		resp.ErrorMessage = "no candidates passed the hard filters"
		o.finish(resp, log, started)
		return resp, nil
	}

	// 4. Soft score + tilt, shortlist, premarket merge, policy rank
	table := o.rank(ctx, screen.Passed, winner, resp)
	resp.Context.Candidates = table

	// 5. Advisor
	adv := o.advisor.Advise(ctx, advisor.Request{
		Table:  table,
		Winner: winner,
		Policy: o.policy,
		TopN:   topN,
	})
	resp.Raw = adv.Raw
	resp.Risk = adv.Risk
	resp.Context.Advisor = AdvisorContext{
		Provider:   adv.Provider,
		Provenance: adv.Provenance,
		Stage:      adv.Stage,
		Proposed:   adv.Picks,
		Error:      adv.Error,
	}

	// 6. Enforce + tiebreak
	outcome := o.enforcer.Enforce(adv.Picks, table, enriched, topN)
	slots, tb := o.tiebreaker.Apply(ctx, outcome.Slots)
	outcome.Slots = slots
	resp.Context.Enforcement = &outcome
	resp.Context.Tiebreak = tb

	substitutedFor := make(map[string]string, len(outcome.Substitutions))
	for _, s := range outcome.Substitutions {
		substitutedFor[s.Replacement] = s.Proposed
	}

	// 7. Persist sequentially; one failed row never aborts the rest
	for i, slot := range slots {
		bullets := pickBullets(slot, adv.Recommendation, substitutedFor[slot.Ticker])
		resp.Picks = append(resp.Picks, slot.Ticker)
		resp.Reasons[slot.Ticker] = bullets

		pick := &contracts.Pick{
			ID:               o.newID(),
			RunID:            runID,
			Ticker:           slot.Ticker,
			Rank:             i + 1,
			Reasons:          bullets,
			ExplanationText:  explanation(slot, bullets, adv.Risk, winner),
			PriceAtSelection: priceOf(slot.Candidate),
			Timestamp:        o.now(),
		}
		o.save(ctx, pick, resp, log)
	}
	o.metrics.Saved(resp.SavedCount, len(slots)-resp.SavedCount)

	if len(resp.Picks) > 0 {
		resp.Primary = resp.Picks[0]
	}
	if len(resp.Picks) > 1 {
		resp.Secondary = resp.Picks[1]
	}

	// 8. Tracker notification, fire-and-forget
	o.notify(runID, resp.Picks, log)

	o.finish(resp, log, started)
	return resp, nil
}

// rank runs scoring, the first-pass shortlist, the premarket merge and the policy comparator
func (o *Orchestrator) rank(ctx context.Context, passed []contracts.EnrichedCandidate, winner contracts.IndustryWinner, resp *Response) []contracts.ScoredCandidate {
	started := time.Now()
	defer o.metrics.ObserveStage("rank", started)

	scored := o.softScorer.Score(passed)
	o.tilt.Apply(scored, winner)

	shortlist := o.ranker.Shortlist(scored, o.policy.Ranking.ShortlistSize)

	symbols := make([]string, len(shortlist))
	for i, c := range shortlist {
		symbols[i] = c.Ticker
	}

	if o.premarket != nil {
		pm := o.premarket.Metrics(ctx, symbols)
		resp.Context.Premarket = pm
		for i := range shortlist {
			if m, ok := pm.Metrics[shortlist[i].Ticker]; ok {
				shortlist[i].PremarketMetrics = m
			}
		}
	} else {
		resp.Context.Premarket = o.premarketStatus()
	}

	return o.ranker.Rank(shortlist)
}

func (o *Orchestrator) premarketStatus() premarket.Result {
	if o.premarket == nil {
		return premarket.Result{Status: premarket.StatusDisabled}
	}
	// 필터 통과 종목 없음: 조회 없이 캐시 상태만 보고
	st := o.premarket.Status()
	return premarket.Result{Status: statusSkipped, Day: st.Day, LastFetch: st.LastFetch, WindowEnd: st.WindowEnd}
}

func (o *Orchestrator) save(ctx context.Context, pick *contracts.Pick, resp *Response, log *logger.Logger) {
	if o.repo == nil {
		return
	}
	if err := o.repo.SavePick(ctx, pick); err != nil {
		log.WithError(err).WithField("ticker", pick.Ticker).Warn("Failed to save pick, skipping")
		return
	}
	resp.SavedCount++
	resp.Saved = append(resp.Saved, *pick)
}

func (o *Orchestrator) notify(runID string, symbols []string, log *logger.Logger) {
	if o.notifier == nil || len(symbols) == 0 {
		return
	}
	go func() {
		// 요청 컨텍스트와 분리 (응답 후에도 전송)
		if err := o.notifier.NotifyWatch(context.Background(), runID, symbols); err != nil {
			log.WithError(err).Debug("Tracker notification failed")
		}
	}()
}

func (o *Orchestrator) finish(resp *Response, log *logger.Logger, started time.Time) {
	resp.Context.DurationMs = o.now().Sub(started).Milliseconds()

	log.WithFields(map[string]interface{}{
		"tier":        resp.Context.Tier,
		"picks":       resp.Picks,
		"provenance":  resp.Context.Advisor.Provenance,
		"saved":       resp.SavedCount,
		"premarket":   resp.Context.Premarket.Status,
		"duration_ms": resp.Context.DurationMs,
	}).Info("Selection run completed")
}

func priceOf(c contracts.ScoredCandidate) decimal.Decimal {
	if c.Price == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*c.Price).Round(4)
}

// IsClientError reports errors caused by the request itself
func IsClientError(err error) bool {
	return errors.Is(err, contracts.ErrNoCandidates)
}
