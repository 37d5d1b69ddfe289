package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

// guards holds one circuit breaker and optional limiter per upstream
type guards struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	limiters map[string]*rate.Limiter
}

func newGuards() *guards {
	return &guards{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (g *guards) setLimit(name string, rps float64, burst int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiters[name] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (g *guards) breaker(name string) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// 호출자 취소는 업스트림 장애가 아님
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	g.breakers[name] = cb
	return cb
}

func (g *guards) limiter(name string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limiters[name]
}

// run waits on the source limiter and executes fn behind its breaker
func (g *guards) run(ctx context.Context, name string, fn func() (interface{}, error)) (interface{}, error) {
	if lim := g.limiter(name); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return g.breaker(name).Execute(fn)
}

func isOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
