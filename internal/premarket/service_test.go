package premarket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/config"
	"github.com/wonny/aegis-watch/pkg/logger"
)

type barsCall struct {
	symbols    []string
	start, end time.Time
}

type fakeBars struct {
	mu    sync.Mutex
	calls []barsCall
	err   error
}

func (f *fakeBars) MultiBars(ctx context.Context, symbols []string, start, end time.Time) (map[string][]contracts.Bar, error) {
	f.mu.Lock()
	f.calls = append(f.calls, barsCall{symbols: append([]string(nil), symbols...), start: start, end: end})
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	out := make(map[string][]contracts.Bar)
	for i, sym := range symbols {
		base := float64(i + 2)
		out[sym] = []contracts.Bar{
			{Timestamp: start, Open: base, High: base + 0.2, Low: base - 0.1, Close: base + 0.1, Volume: 1000 * base, VWAP: base},
			{Timestamp: start.Add(time.Minute), Open: base + 0.1, High: base + 0.3, Low: base, Close: base, Volume: 500, VWAP: base + 0.1},
		}
	}
	return out, nil
}

func (f *fakeBars) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, bars *fakeBars, at time.Time) (*Service, *clock) {
	t.Helper()

	cfg := config.PremarketConfig{
		Enabled:     true,
		WindowStart: "08:00",
		WindowEnd:   "09:30",
		Throttle:    2 * time.Minute,
		Timezone:    "America/New_York",
	}
	svc, err := NewService(NewCache(), bars, cfg, strategyconfig.Default().Premarket, logger.NewNop(), nil)
	require.NoError(t, err)

	c := &clock{t: at}
	svc.now = c.now
	return svc, c
}

func ny(t *testing.T, day, hhmm string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04", day+" "+hhmm, loc)
	require.NoError(t, err)
	return ts
}

func TestService_ThrottleServesIdenticalCache(t *testing.T) {
	bars := &fakeBars{}
	svc, clk := newTestService(t, bars, ny(t, "2026-10-16", "08:10"))
	symbols := []string{"AAAA", "BBBB"}

	first := svc.Metrics(context.Background(), symbols)
	assert.Equal(t, StatusFetched, first.Status)
	require.Equal(t, 1, bars.count())
	assert.True(t, bars.calls[0].end.Equal(ny(t, "2026-10-16", "08:10")), "window end capped at now")

	clk.t = clk.t.Add(90 * time.Second)
	second := svc.Metrics(context.Background(), symbols)
	assert.Equal(t, StatusCached, second.Status)
	assert.Equal(t, 1, bars.count())

	a, _ := json.Marshal(first.Metrics)
	b, _ := json.Marshal(second.Metrics)
	assert.Equal(t, string(a), string(b))

	clk.t = clk.t.Add(time.Minute)
	third := svc.Metrics(context.Background(), symbols)
	assert.Equal(t, StatusFetched, third.Status)
	assert.Equal(t, 2, bars.count())
}

func TestService_TooEarly(t *testing.T) {
	bars := &fakeBars{}
	svc, _ := newTestService(t, bars, ny(t, "2026-10-16", "07:59"))

	res := svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, StatusTooEarly, res.Status)
	assert.Zero(t, bars.count())
	assert.False(t, res.Metrics["AAAA"].HasData())
	assert.Nil(t, res.Metrics["AAAA"].PMScore)
}

func TestService_FrozenAfterWindow(t *testing.T) {
	bars := &fakeBars{}
	svc, clk := newTestService(t, bars, ny(t, "2026-10-16", "09:45"))

	res := svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, StatusFetched, res.Status)
	assert.True(t, res.WindowEnd.Equal(ny(t, "2026-10-16", "09:30")))
	assert.True(t, svc.Status().Frozen)

	clk.t = ny(t, "2026-10-16", "15:00")
	res = svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, StatusFrozen, res.Status)
	assert.Equal(t, 1, bars.count())
	assert.True(t, res.Metrics["AAAA"].HasData())

	// 동결 이후 새 종목은 네트워크 조회 없이 null
	res = svc.Metrics(context.Background(), []string{"AAAA", "CCCC"})
	assert.Equal(t, StatusFrozen, res.Status)
	assert.Equal(t, 1, bars.count())
	assert.False(t, res.Metrics["CCCC"].HasData())
	assert.Nil(t, res.Metrics["CCCC"].PMScore)
}

func TestService_WindowCloseTriggersFinalFetch(t *testing.T) {
	bars := &fakeBars{}
	svc, clk := newTestService(t, bars, ny(t, "2026-10-16", "09:29"))

	svc.Metrics(context.Background(), []string{"AAAA"})
	assert.False(t, svc.Status().Frozen)

	// throttle 안이지만 창이 닫혔으므로 최종 조회
	clk.t = ny(t, "2026-10-16", "09:30")
	res := svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, StatusFetched, res.Status)
	assert.Equal(t, 2, bars.count())
	assert.True(t, svc.Status().Frozen)
}

func TestService_DayRollover(t *testing.T) {
	bars := &fakeBars{}
	svc, clk := newTestService(t, bars, ny(t, "2026-10-15", "10:00"))

	svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, "2026-10-15", svc.Status().Day)

	clk.t = ny(t, "2026-10-16", "07:00")
	res := svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, StatusTooEarly, res.Status)
	assert.Equal(t, "2026-10-16", res.Day)
	assert.False(t, res.Metrics["AAAA"].HasData(), "previous day must never be served")
	assert.Zero(t, svc.Status().Symbols)
}

func TestService_ProviderUnreachable(t *testing.T) {
	bars := &fakeBars{err: errors.New("dial tcp: connection refused")}
	svc, _ := newTestService(t, bars, ny(t, "2026-10-16", "08:30"))

	res := svc.Metrics(context.Background(), []string{"AAAA", "BBBB"})
	assert.Equal(t, StatusError, res.Status)
	assert.NotEmpty(t, res.Error)
	require.Len(t, res.Metrics, 2)
	for _, m := range res.Metrics {
		assert.Equal(t, contracts.PremarketMetrics{}, m)
	}
	assert.True(t, svc.Status().LastFetch.IsZero())
	assert.NotEmpty(t, svc.Status().LastError)
}

func TestService_FailedFetchIsThrottled(t *testing.T) {
	bars := &fakeBars{err: errors.New("dial tcp: connection refused")}
	svc, clk := newTestService(t, bars, ny(t, "2026-10-16", "08:30"))
	symbols := []string{"AAAA", "BBBB"}

	for i := 0; i < 5; i++ {
		res := svc.Metrics(context.Background(), symbols)
		assert.Equal(t, StatusError, res.Status)
		assert.NotEmpty(t, res.Error)
		clk.t = clk.t.Add(10 * time.Second)
	}
	assert.Equal(t, 1, bars.count(), "one fetch per throttle period while the provider is down")

	// throttle 경과 후 재시도, 복구되면 정상 조회
	bars.mu.Lock()
	bars.err = nil
	bars.mu.Unlock()
	clk.t = ny(t, "2026-10-16", "08:33")

	res := svc.Metrics(context.Background(), symbols)
	assert.Equal(t, StatusFetched, res.Status)
	assert.Equal(t, 2, bars.count())
	assert.Empty(t, svc.Status().LastError)
	assert.True(t, res.Metrics["AAAA"].HasData())
}

func TestService_FailedRefreshKeepsCachedSnapshot(t *testing.T) {
	bars := &fakeBars{}
	svc, clk := newTestService(t, bars, ny(t, "2026-10-16", "08:10"))

	svc.Metrics(context.Background(), []string{"AAAA"})
	fetchedAt := svc.Status().LastFetch

	bars.mu.Lock()
	bars.err = errors.New("503 service unavailable")
	bars.mu.Unlock()
	clk.t = clk.t.Add(3 * time.Minute)

	res := svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, StatusError, res.Status)
	assert.True(t, res.Metrics["AAAA"].HasData(), "earlier snapshot still served")
	assert.True(t, svc.Status().LastFetch.Equal(fetchedAt))

	clk.t = clk.t.Add(30 * time.Second)
	svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, 2, bars.count())
}

func TestService_FillsNewSymbolsWhileCached(t *testing.T) {
	bars := &fakeBars{}
	svc, clk := newTestService(t, bars, ny(t, "2026-10-16", "08:10"))

	svc.Metrics(context.Background(), []string{"AAAA"})
	clk.t = clk.t.Add(30 * time.Second)

	res := svc.Metrics(context.Background(), []string{"AAAA", "BBBB"})
	assert.Equal(t, StatusCached, res.Status)
	require.Equal(t, 2, bars.count())
	assert.Equal(t, []string{"BBBB"}, bars.calls[1].symbols)
	assert.True(t, res.Metrics["BBBB"].HasData())
}

func TestService_Disabled(t *testing.T) {
	bars := &fakeBars{}
	svc, _ := newTestService(t, bars, ny(t, "2026-10-16", "08:10"))
	svc.enabled = false

	res := svc.Metrics(context.Background(), []string{"AAAA"})
	assert.Equal(t, StatusDisabled, res.Status)
	assert.Zero(t, bars.count())
}

func TestService_WarmUsesLastShortlist(t *testing.T) {
	bars := &fakeBars{}
	svc, clk := newTestService(t, bars, ny(t, "2026-10-16", "08:10"))

	svc.Metrics(context.Background(), []string{"BBBB", "AAAA"})
	clk.t = clk.t.Add(3 * time.Minute)

	res := svc.Warm(context.Background())
	assert.Equal(t, StatusFetched, res.Status)
	assert.Equal(t, []string{"AAAA", "BBBB"}, bars.calls[1].symbols)
	assert.True(t, svc.InWindow())
}
