package premarket

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/config"
	"github.com/wonny/aegis-watch/pkg/logger"
	"github.com/wonny/aegis-watch/pkg/metrics"
)

// Cache statuses reported to callers
const (
	StatusDisabled = "disabled"
	StatusTooEarly = "too_early"
	StatusFetched  = "fetched"
	StatusCached   = "cached"
	StatusFrozen   = "frozen"
	StatusError    = "error"
)

// Result is the premarket view for one invocation
type Result struct {
	Status    string                                `json:"status"`
	Day       string                                `json:"day"`
	LastFetch time.Time                             `json:"lastFetch"`
	WindowEnd time.Time                             `json:"windowEnd"`
	Metrics   map[string]contracts.PremarketMetrics `json:"-"`
	Error     string                                `json:"error,omitempty"`
}

// Service serves premarket metrics through the day cache
// ⭐ SSOT: 프리마켓 조회/스로틀/동결 상태 전이는 여기서만
type Service struct {
	cache    *Cache
	bars     contracts.BarsProvider
	enabled  bool
	start    time.Duration // offset from local midnight
	end      time.Duration
	throttle time.Duration
	weights  strategyconfig.Premarket
	loc      *time.Location
	now      func() time.Time
	logger   *logger.Logger
	metrics  *metrics.Registry

	mu          sync.Mutex
	lastSymbols []string
}

// NewService creates a premarket service from configuration
func NewService(cache *Cache, bars contracts.BarsProvider, cfg config.PremarketConfig, weights strategyconfig.Premarket, log *logger.Logger, reg *metrics.Registry) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	start, err := parseClock(cfg.WindowStart)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(cfg.WindowEnd)
	if err != nil {
		return nil, err
	}

	return &Service{
		cache:    cache,
		bars:     bars,
		enabled:  cfg.Enabled,
		start:    start,
		end:      end,
		throttle: cfg.Throttle,
		weights:  weights,
		loc:      loc,
		now:      time.Now,
		logger:   log,
		metrics:  reg,
	}, nil
}

// WithClock replaces the wall clock
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func parseClock(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid window time %q: %w", hhmm, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// window returns the exchange-local window bounds for the day of now
func (s *Service) window(now time.Time) (time.Time, time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return midnight.Add(s.start), midnight.Add(s.end)
}

// Metrics returns scored premarket metrics for symbols.
// Every symbol appears in the result; symbols without data have nil fields.
func (s *Service) Metrics(ctx context.Context, symbols []string) Result {
	started := time.Now()
	defer s.metrics.ObserveStage("premarket", started)

	s.remember(symbols)

	now := s.now().In(s.loc)
	day := now.Format("2006-01-02")
	if s.cache.Roll(day) {
		s.logger.WithField("day", day).Info("Premarket cache reset for new day")
	}

	result := s.serve(ctx, now, day, symbols)

	state := s.cache.State()
	result.Day = day
	result.LastFetch = state.LastFetch
	result.WindowEnd = state.WindowEnd

	batch := make(map[string]contracts.PremarketMetrics, len(symbols))
	for _, sym := range symbols {
		m, _ := s.cache.Get(day, sym)
		batch[sym] = m
	}
	result.Metrics = Score(batch, s.weights)

	s.metrics.Premarket(result.Status)
	s.logger.WithFields(map[string]interface{}{
		"status":  result.Status,
		"symbols": len(symbols),
		"day":     day,
	}).Info("Premarket metrics served")

	return result
}

// serve runs the state machine and fills the cache as needed.
//
// A frozen snapshot is served without any network call; symbols it does not
// hold come back null. While the window is open and the last fetch is inside
// the throttle, only symbols new to the shortlist are fetched. A failed fetch
// starts the same throttle, so a down provider is retried at most once per
// throttle period while the cache keeps serving what it already holds.
func (s *Service) serve(ctx context.Context, now time.Time, day string, symbols []string) Result {
	if !s.enabled {
		return Result{Status: StatusDisabled}
	}

	start, end := s.window(now)
	if now.Before(start) {
		return Result{Status: StatusTooEarly}
	}

	state := s.cache.State()
	closed := !now.Before(end)

	switch {
	case closed && state.Frozen:
		return Result{Status: StatusFrozen}

	case state.LastError != "" && now.Sub(state.LastAttempt) < s.throttle:
		// 직전 조회 실패: throttle 동안 재시도 없음
		return Result{Status: StatusError, Error: state.LastError}

	case !closed && !state.LastFetch.IsZero() && now.Sub(state.LastFetch) < s.throttle:
		s.fillMissing(ctx, day, symbols, start, state.WindowEnd)
		return Result{Status: StatusCached}
	}

	windowEnd := end
	if now.Before(end) {
		windowEnd = now
	}

	// 당일 캐시된 종목까지 함께 갱신
	if err := s.fetch(ctx, day, union(s.cache.Symbols(day), symbols), start, windowEnd); err != nil {
		s.logger.WithError(err).Warn("Premarket fetch failed, metrics degrade to cached or null")
		s.cache.MarkAttempted(day, now, err.Error())
		return Result{Status: StatusError, Error: err.Error()}
	}

	s.cache.MarkFetched(day, now, windowEnd, closed)
	return Result{Status: StatusFetched}
}

// fetch pulls bars for symbols and overwrites their cache entries
func (s *Service) fetch(ctx context.Context, day string, symbols []string, start, end time.Time) error {
	if len(symbols) == 0 {
		return nil
	}

	bars, err := s.bars.MultiBars(ctx, symbols, start, end)
	if err != nil {
		return fmt.Errorf("%w: premarket bars: %w", contracts.ErrUpstreamUnavailable, err)
	}

	for _, sym := range symbols {
		s.cache.Put(day, sym, Compute(bars[sym], start, end))
	}
	return nil
}

// fillMissing fetches only symbols not cached yet. A failure starts the retry throttle.
func (s *Service) fillMissing(ctx context.Context, day string, symbols []string, start, end time.Time) {
	missing := make([]string, 0)
	for _, sym := range symbols {
		if _, ok := s.cache.Get(day, sym); !ok {
			missing = append(missing, sym)
		}
	}
	if len(missing) == 0 {
		return
	}

	if err := s.fetch(ctx, day, missing, start, end); err != nil {
		s.logger.WithError(err).WithField("symbols", missing).Warn("Premarket fill for new symbols failed")
		s.cache.MarkAttempted(day, s.now(), err.Error())
	}
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, sym := range list {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (s *Service) remember(symbols []string) {
	if len(symbols) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSymbols = append([]string(nil), symbols...)
}

// LastSymbols returns the most recently requested shortlist
func (s *Service) LastSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lastSymbols...)
}

// Warm refreshes the cache for the last shortlist; used by the scheduler
func (s *Service) Warm(ctx context.Context) Result {
	symbols := s.LastSymbols()
	sort.Strings(symbols)
	return s.Metrics(ctx, symbols)
}

// Status reports the cache state without fetching
func (s *Service) Status() CacheState {
	return s.cache.State()
}

// InWindow reports whether now falls inside the configured window
func (s *Service) InWindow() bool {
	now := s.now().In(s.loc)
	start, end := s.window(now)
	return !now.Before(start) && now.Before(end)
}
