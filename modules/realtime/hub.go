package realtime

import (
	"time"

	"github.com/tomershatz123/chat123/modules/presence"
	"github.com/tomershatz123/chat123/modules/ratelimit"
)

// HubConfig configures the live channel.
type HubConfig struct {
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
	// EventsPerSecond and EventBurst bound inbound frames per connection.
	// Zero disables the limit.
	EventsPerSecond float64
	EventBurst      int
	// RequireAuth refuses upgrades without a valid token.
	RequireAuth bool
}

// DefaultHubConfig returns the production defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:      256,
		EventsPerSecond: 20,
		EventBurst:      40,
	}
}

// Hub wires the presence registry, router, relays and lifecycle together.
type Hub struct {
	Registry  *presence.Registry
	Router    *Router
	Typing    *TypingRelay
	Delivery  *DeliveryRelay
	Lifecycle *Lifecycle
	Metrics   *Metrics

	config HubConfig
}

// NewHub creates a Hub.
func NewHub(cfg HubConfig) *Hub {
	registry := presence.NewRegistry()
	lifecycle := &Lifecycle{
		registry:   registry,
		limiter:    ratelimit.NewMapLimiter(cfg.EventsPerSecond, cfg.EventBurst, 10*time.Minute),
		sendBuffer: cfg.SendBuffer,
		now:        time.Now,
		conns:      make(map[string]*Connection),
	}
	metrics := NewMetrics("chat_realtime", lifecycle.Count, registry.RoomCount)
	router := NewRouter(registry, lifecycle, metrics)
	router.onSlow = lifecycle.Disconnect

	lifecycle.router = router
	lifecycle.metrics = metrics
	lifecycle.typing = NewTypingRelay(router)

	return &Hub{
		Registry:  registry,
		Router:    router,
		Typing:    lifecycle.typing,
		Delivery:  NewDeliveryRelay(router),
		Lifecycle: lifecycle,
		Metrics:   metrics,
		config:    cfg,
	}
}

// RequireAuth reports whether upgrades must carry a valid token.
func (h *Hub) RequireAuth() bool {
	return h.config.RequireAuth
}
