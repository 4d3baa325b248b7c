package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 3 * time.Second

// Module owns the Redis connection backing the message send limit. When Redis
// is unreachable at start the module runs disabled and sends are unlimited.
type Module struct {
	redisAddr string
	config    Config
	limiter   *SlidingWindowLimiter
}

var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)
var _ Limiter = (*Module)(nil)

// NewModule creates a rate limiting module. An empty redisAddr disables it.
func NewModule(redisAddr string, config Config) *Module {
	return &Module{
		redisAddr: redisAddr,
		config:    config,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rate-limiter"
}

// Start connects to Redis.
func (m *Module) Start(ctx context.Context) error {
	if m.redisAddr == "" || m.config.RequestsPerWindow <= 0 {
		log.Println("[rate-limiter] Disabled, message sends are not limited")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: m.redisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Printf("[rate-limiter] Warning: Redis at %s unavailable, message sends are not limited: %v", m.redisAddr, err)
		return nil
	}

	m.limiter = NewSlidingWindowLimiter(client, m.config, "chat:ratelimit:")
	log.Printf("[rate-limiter] Connected to Redis at %s (%d per %s)", m.redisAddr, m.config.RequestsPerWindow, m.config.WindowSize)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.limiter != nil {
		if err := m.limiter.Close(); err != nil {
			log.Printf("[rate-limiter] Error closing Redis connection: %v", err)
		}
	}
	log.Println("[rate-limiter] Module stopped")
	return nil
}

// Health reports the Redis connection state. A disabled limiter is healthy.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.limiter == nil {
		return mono.HealthStatus{Healthy: true, Message: "disabled"}
	}
	if err := m.limiter.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"limit":  m.config.RequestsPerWindow,
			"window": m.config.WindowSize.String(),
		},
	}
}

// Allow checks the send limit for key. It returns a nil result when the
// module is disabled, which PerKey treats as unlimited.
func (m *Module) Allow(ctx context.Context, key string) (*Result, error) {
	if m.limiter == nil {
		return nil, nil
	}
	return m.limiter.Allow(ctx, key)
}

// Enabled reports whether sends are being limited.
func (m *Module) Enabled() bool {
	return m.limiter != nil
}

// Limit returns the configured requests per window.
func (m *Module) Limit() int {
	return m.config.RequestsPerWindow
}
