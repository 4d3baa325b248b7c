package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
	"github.com/tomershatz123/chat123/domain/chat"
)

// MessageCreatedEvent is emitted once a message has been durably stored.
type MessageCreatedEvent struct {
	MessageID   uint64      `json:"message_id"`
	SenderID    chat.UserID `json:"sender_id"`
	SenderName  string      `json:"sender_name"`
	RecipientID chat.UserID `json:"recipient_id"`
	Text        string      `json:"text"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Message rebuilds the persisted record carried by the event.
func (e MessageCreatedEvent) Message() chat.Message {
	msg := chat.Message{
		ID:          e.MessageID,
		Text:        e.Text,
		SenderID:    e.SenderID,
		RecipientID: e.RecipientID,
		CreatedAt:   e.CreatedAt,
	}
	if e.SenderName != "" {
		msg.Sender = &chat.Sender{Name: e.SenderName}
	}
	return msg
}

// NewMessageCreatedEvent builds the event for a persisted message.
func NewMessageCreatedEvent(msg chat.Message) MessageCreatedEvent {
	event := MessageCreatedEvent{
		MessageID:   msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Text:        msg.Text,
		CreatedAt:   msg.CreatedAt,
	}
	if msg.Sender != nil {
		event.SenderName = msg.Sender.Name
	}
	return event
}

// MessageCreatedV1 is the typed event definition for persisted messages.
// Subject: events.message.v1.message-created
var MessageCreatedV1 = helper.EventDefinition[MessageCreatedEvent](
	"message", "MessageCreated", "v1",
)
