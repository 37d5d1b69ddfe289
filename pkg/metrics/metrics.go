package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the selection service
// ⭐ SSOT: 메트릭 정의는 여기서만
// nil *Registry is valid and records nothing (tests, CLI one-shot runs)
type Registry struct {
	reg *prometheus.Registry

	StageDuration     *prometheus.HistogramVec
	Lookups           *prometheus.CounterVec
	PremarketStatus   *prometheus.CounterVec
	AdvisorProvenance *prometheus.CounterVec
	PolicyActions     *prometheus.CounterVec
	FilterTier        *prometheus.CounterVec
	PicksSaved        *prometheus.CounterVec
}

// New creates a registry with process and Go collectors plus the service metrics
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watch_stage_duration_seconds",
				Help:    "Duration of each selection pipeline stage in seconds",
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),

		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watch_upstream_lookups_total",
				Help: "Market data lookups by feature, source and outcome",
			},
			[]string{"feature", "source", "outcome"},
		),

		PremarketStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watch_premarket_cache_total",
				Help: "Premarket cache invocations by resulting status",
			},
			[]string{"status"},
		),

		AdvisorProvenance: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watch_advisor_parse_total",
				Help: "Advisor output parse results by provider and provenance",
			},
			[]string{"provider", "provenance"},
		),

		PolicyActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watch_policy_actions_total",
				Help: "Policy enforcer actions (accepted, substituted, dropped, backfilled)",
			},
			[]string{"action"},
		),

		FilterTier: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watch_filter_tier_total",
				Help: "Hard filter tier used per selection run",
			},
			[]string{"tier"},
		),

		PicksSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watch_picks_persisted_total",
				Help: "Pick rows written by result",
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.StageDuration,
		r.Lookups,
		r.PremarketStatus,
		r.AdvisorProvenance,
		r.PolicyActions,
		r.FilterTier,
		r.PicksSaved,
	)

	return r
}

// Handler exposes the registry for scraping
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveStage records how long a pipeline stage took
func (r *Registry) ObserveStage(stage string, started time.Time) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// Lookup counts one upstream lookup
func (r *Registry) Lookup(feature, source, outcome string) {
	if r == nil {
		return
	}
	r.Lookups.WithLabelValues(feature, source, outcome).Inc()
}

// Premarket counts one premarket cache invocation
func (r *Registry) Premarket(status string) {
	if r == nil {
		return
	}
	r.PremarketStatus.WithLabelValues(status).Inc()
}

// Advisor counts one advisor parse result
func (r *Registry) Advisor(provider, provenance string) {
	if r == nil {
		return
	}
	r.AdvisorProvenance.WithLabelValues(provider, provenance).Inc()
}

// Policy counts enforcer actions
func (r *Registry) Policy(action string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.PolicyActions.WithLabelValues(action).Add(float64(n))
}

// Tier counts the filter tier used
func (r *Registry) Tier(tier string) {
	if r == nil {
		return
	}
	r.FilterTier.WithLabelValues(tier).Inc()
}

// Saved counts persisted and failed pick writes
func (r *Registry) Saved(ok, failed int) {
	if r == nil {
		return
	}
	r.PicksSaved.WithLabelValues("ok").Add(float64(ok))
	r.PicksSaved.WithLabelValues("failed").Add(float64(failed))
}
