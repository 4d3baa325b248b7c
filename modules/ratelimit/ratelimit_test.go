package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

func TestMapLimiter_NilAllowsEverything(t *testing.T) {
	var l *MapLimiter
	for i := 0; i < 100; i++ {
		if !l.Allow("conn", time.Now()) {
			t.Fatal("nil limiter must allow")
		}
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestNewMapLimiter_InvalidArgs(t *testing.T) {
	if NewMapLimiter(0, 5, time.Minute) != nil {
		t.Error("expected nil limiter for zero rps")
	}
	if NewMapLimiter(5, 0, time.Minute) != nil {
		t.Error("expected nil limiter for zero burst")
	}
}

func TestMapLimiter_BurstThenDeny(t *testing.T) {
	l := NewMapLimiter(1, 3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.Allow("c1", now) {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if l.Allow("c1", now) {
		t.Error("request beyond burst should be denied")
	}
	if !l.Allow("c2", now) {
		t.Error("other keys have their own bucket")
	}
	if !l.Allow("c1", now.Add(1100*time.Millisecond)) {
		t.Error("token should refill after one second")
	}
}

func TestMapLimiter_EmptyKeyAllowed(t *testing.T) {
	l := NewMapLimiter(1, 1, time.Minute)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !l.Allow("  ", now) {
			t.Fatal("blank key must not be limited")
		}
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestMapLimiter_ForgetAndEvict(t *testing.T) {
	l := NewMapLimiter(100, 100, time.Second)
	start := time.Now()

	l.Allow("old", start)
	l.Forget("old")
	if l.Len() != 0 {
		t.Fatalf("Len() after Forget = %d, want 0", l.Len())
	}

	l.Allow("idle", start)
	later := start.Add(time.Minute)
	for i := 0; i < evictEvery; i++ {
		l.Allow(fmt.Sprintf("k%d", i%10), later)
	}
	if l.Len() != 10 {
		t.Errorf("Len() after eviction = %d, want 10", l.Len())
	}
}

func setupTestLimiter(t *testing.T, cfg Config) *SlidingWindowLimiter {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	prefix := fmt.Sprintf("test:chat:send:%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return NewSlidingWindowLimiter(client, cfg, prefix)
}

func TestSlidingWindowLimiter_Allow(t *testing.T) {
	limiter := setupTestLimiter(t, Config{RequestsPerWindow: 3, WindowSize: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "user-1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if res.Remaining != 2-i {
			t.Errorf("Remaining = %d, want %d", res.Remaining, 2-i)
		}
	}

	res, err := limiter.Allow(ctx, "user-1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if res.Allowed {
		t.Error("fourth request should be denied")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0", res.RetryAfter)
	}

	res, err = limiter.Allow(ctx, "user-2")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !res.Allowed {
		t.Error("separate key should be allowed")
	}
}

func TestDefaultSendConfig(t *testing.T) {
	cfg := DefaultSendConfig()
	if cfg.RequestsPerWindow != 30 {
		t.Errorf("RequestsPerWindow = %d, want 30", cfg.RequestsPerWindow)
	}
	if cfg.WindowSize != time.Minute {
		t.Errorf("WindowSize = %v, want 1m", cfg.WindowSize)
	}
}

func TestModule_DisabledWithoutRedis(t *testing.T) {
	m := NewModule("", DefaultSendConfig())
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.Enabled() {
		t.Error("module should be disabled when Redis is not configured")
	}
	if res, err := m.Allow(context.Background(), "k"); res != nil || err != nil {
		t.Errorf("Allow() = %v, %v, want nil, nil", res, err)
	}
	if h := m.Health(context.Background()); !h.Healthy {
		t.Errorf("Health() = %+v, want healthy", h)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestModule_UnreachableRedisFailsOpen(t *testing.T) {
	// Nothing listens on port 1.
	m := NewModule("127.0.0.1:1", DefaultSendConfig())
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.Enabled() {
		t.Error("module should be disabled when Redis is unreachable")
	}
	if m.Limit() != 30 {
		t.Errorf("Limit() = %d, want 30", m.Limit())
	}
}
