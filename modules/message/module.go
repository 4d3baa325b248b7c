// Package message stores direct messages and announces them after commit.
package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/tomershatz123/chat123/events"
	"github.com/tomershatz123/chat123/modules/storage"
)

// Module provides the send-message and get-conversation services.
type Module struct {
	store    storage.Store
	service  *Service
	eventBus mono.EventBus
}

var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new message Module on the shared store.
func NewModule(store storage.Store) *Module {
	m := &Module{store: store}
	m.service = NewService(store, m)
	return m
}

func (m *Module) Name() string {
	return "message"
}

func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageCreatedV1.ToBase(),
	}
}

// PublishMessageCreated publishes on the module's event bus.
func (m *Module) PublishMessageCreated(event events.MessageCreatedEvent) error {
	if m.eventBus == nil {
		return errors.New("event bus not set")
	}
	return events.MessageCreatedV1.Publish(m.eventBus, event, nil)
}

func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "send-message", json.Unmarshal, json.Marshal, m.sendMessage,
	); err != nil {
		return fmt.Errorf("failed to register send-message service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-conversation", json.Unmarshal, json.Marshal, m.getConversation,
	); err != nil {
		return fmt.Errorf("failed to register get-conversation service: %w", err)
	}

	log.Printf("[message] Registered services: send-message, get-conversation")
	return nil
}

func (m *Module) Start(_ context.Context) error {
	if m.eventBus == nil {
		log.Println("[message] Warning: eventBus not set, messages will not be relayed")
	}
	log.Println("[message] Module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	log.Println("[message] Module stopped")
	return nil
}

func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := m.store.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"event_bus": m.eventBus != nil,
		},
	}
}

func (m *Module) sendMessage(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (SendMessageResponse, error) {
	msg, err := m.service.Send(ctx, req.SenderID, req.RecipientID, req.Text)
	if err != nil {
		return SendMessageResponse{}, err
	}
	log.Printf("[message] Stored message %d from %s to %s", msg.ID, msg.SenderID, msg.RecipientID)
	return SendMessageResponse{Message: *msg}, nil
}

func (m *Module) getConversation(ctx context.Context, req GetConversationRequest, _ *mono.Msg) (GetConversationResponse, error) {
	messages, err := m.service.Conversation(ctx, req.UserID, req.OtherID)
	if err != nil {
		return GetConversationResponse{}, err
	}
	return GetConversationResponse{Messages: messages}, nil
}
