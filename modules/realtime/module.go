package realtime

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/tomershatz123/chat123/events"
)

// Module is an EventConsumerModule that pushes persisted messages to live connections.
type Module struct {
	hub *Hub
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new realtime Module.
func NewModule(cfg HubConfig) *Module {
	return &Module{
		hub: NewHub(cfg),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "realtime"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[realtime] Module started")
	return nil
}

// Stop closes every live connection.
func (m *Module) Stop(_ context.Context) error {
	count := m.hub.Lifecycle.Count()
	m.hub.Lifecycle.Shutdown()
	log.Printf("[realtime] Module stopped - %d connections were open", count)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections": m.hub.Lifecycle.Count(),
			"rooms":       m.hub.Registry.RoomCount(),
		},
	}
}

// GetHub returns the hub for the transport layer.
func (m *Module) GetHub() *Hub {
	return m.hub
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageCreatedV1, m.handleMessageCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageCreated consumer: %w", err)
	}

	log.Println("[realtime] Registered event consumers: MessageCreated")
	return nil
}

func (m *Module) handleMessageCreated(_ context.Context, event events.MessageCreatedEvent, _ *mono.Msg) error {
	m.hub.Delivery.OnMessagePersisted(event.Message())
	return nil
}
