// Package premarket keeps the day-scoped, throttled morning bar snapshot.
package premarket

import (
	"sync"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
)

// Cache holds one trading day of premarket metrics
// 날짜가 바뀌면 전체 초기화 (전일 데이터 절대 서빙 금지)
type Cache struct {
	mu        sync.Mutex
	day       string
	metrics   map[string]contracts.PremarketMetrics
	lastFetch time.Time
	windowEnd time.Time
	frozen    bool

	// 마지막 시도 (실패 포함), throttle 기준
	lastAttempt time.Time
	lastError   string
}

// CacheState is a point-in-time view of the cache bookkeeping
type CacheState struct {
	Day         string    `json:"day"`
	LastFetch   time.Time `json:"lastFetch"`
	LastAttempt time.Time `json:"lastAttempt"`
	LastError   string    `json:"lastError,omitempty"`
	WindowEnd   time.Time `json:"windowEnd"`
	Frozen      bool      `json:"frozen"`
	Symbols     int       `json:"symbols"`
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{metrics: make(map[string]contracts.PremarketMetrics)}
}

// Roll resets the cache when day differs from the cached day
func (c *Cache) Roll(day string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollLocked(day)
}

func (c *Cache) rollLocked(day string) bool {
	if c.day == day {
		return false
	}
	c.day = day
	c.metrics = make(map[string]contracts.PremarketMetrics)
	c.lastFetch = time.Time{}
	c.windowEnd = time.Time{}
	c.frozen = false
	c.lastAttempt = time.Time{}
	c.lastError = ""
	return true
}

// Get returns the metrics for symbol on day
func (c *Cache) Get(day, symbol string) (contracts.PremarketMetrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.day != day {
		return contracts.PremarketMetrics{}, false
	}
	m, ok := c.metrics[symbol]
	return m, ok
}

// Put stores metrics for symbol on day, rolling over if needed
func (c *Cache) Put(day, symbol string, m contracts.PremarketMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollLocked(day)
	c.metrics[symbol] = m
}

// Symbols lists the symbols cached for day
func (c *Cache) Symbols(day string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.day != day {
		return nil
	}
	symbols := make([]string, 0, len(c.metrics))
	for sym := range c.metrics {
		symbols = append(symbols, sym)
	}
	return symbols
}

// MarkFetched records a full fetch for day
func (c *Cache) MarkFetched(day string, at, windowEnd time.Time, frozen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollLocked(day)
	c.lastFetch = at
	c.lastAttempt = at
	c.lastError = ""
	c.windowEnd = windowEnd
	c.frozen = frozen
}

// MarkAttempted records a failed fetch for day.
// Snapshot bookkeeping (lastFetch, windowEnd, frozen) is left untouched.
func (c *Cache) MarkAttempted(day string, at time.Time, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollLocked(day)
	c.lastAttempt = at
	c.lastError = errMsg
}

// State returns the bookkeeping for the cached day
func (c *Cache) State() CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheState{
		Day:         c.day,
		LastFetch:   c.lastFetch,
		LastAttempt: c.lastAttempt,
		LastError:   c.lastError,
		WindowEnd:   c.windowEnd,
		Frozen:      c.frozen,
		Symbols:     len(c.metrics),
	}
}
