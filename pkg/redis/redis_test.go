package redis

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/aegis-watch/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on disabled client error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), FMPRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != FMPRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", FMPRateLimit.Limit, remaining)
	}

	if err := limiter.Wait(context.Background(), FinvizRateLimit); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	calls := 0
	var out map[string]float64
	err = cache.GetOrSet(ctx, "k", &out, time.Minute, func() (interface{}, error) {
		calls++
		return map[string]float64{"avgVolume": 1500000}, nil
	})
	if err != nil {
		t.Fatalf("GetOrSet() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected loader to run once, got %d", calls)
	}
	if out["avgVolume"] != 1500000 {
		t.Errorf("Expected loader value to be decoded, got %v", out)
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"ProfileKey", ProfileKey("ABCD", "2026-10-16"), "profile:ABCD:2026-10-16"},
		{"RatiosKey", RatiosKey("ABCD", "2026-10-16"), "ratios:ABCD:2026-10-16"},
		{"AvgVolumeKey", AvgVolumeKey("ABCD", "2026-10-16"), "avgvol:ABCD:2026-10-16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}
