package message

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tomershatz123/chat123/domain/chat"
	"github.com/tomershatz123/chat123/events"
	"github.com/tomershatz123/chat123/modules/storage"
)

var (
	// ErrMissingFields is returned when text or recipient is absent.
	ErrMissingFields = errors.New("text and recipientId are required")
	// ErrRecipientNotFound is returned when the recipient does not exist.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrSenderNotFound is returned when the sending account no longer exists.
	ErrSenderNotFound = errors.New("sender not found")
	// ErrInvalidParticipant is returned when a conversation peer is missing.
	ErrInvalidParticipant = errors.New("invalid conversation participant")
)

// MessageStore is the subset of storage the message service needs.
type MessageStore interface {
	FindUserByID(ctx context.Context, id chat.UserID) (*chat.User, error)
	CreateMessage(ctx context.Context, msg *chat.Message) error
	Conversation(ctx context.Context, a, b chat.UserID) ([]chat.Message, error)
}

// Publisher announces messages that are durably stored.
type Publisher interface {
	PublishMessageCreated(event events.MessageCreatedEvent) error
}

// Service stores messages and announces them once committed.
type Service struct {
	store     MessageStore
	publisher Publisher
}

// NewService creates a Service. A nil publisher disables announcements.
func NewService(store MessageStore, publisher Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
	}
}

// Send persists a message from sender to recipient. The MessageCreated event
// is published only after the store reports success.
func (s *Service) Send(ctx context.Context, sender, recipient chat.UserID, text string) (*chat.Message, error) {
	if strings.TrimSpace(text) == "" || recipient.IsZero() {
		return nil, ErrMissingFields
	}

	if _, err := s.store.FindUserByID(ctx, recipient); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to look up recipient: %w", err)
	}

	msg := &chat.Message{
		Text:        text,
		SenderID:    sender,
		RecipientID: recipient,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		// The recipient was found above, so a missing user here is the sender.
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMessageCreated(events.NewMessageCreatedEvent(*msg)); err != nil {
			// Publishing is best-effort; the message is already stored.
			log.Printf("[message] Warning: failed to publish MessageCreated for message %d: %v", msg.ID, err)
		}
	}

	return msg, nil
}

// Conversation returns the messages between me and other, oldest first.
func (s *Service) Conversation(ctx context.Context, me, other chat.UserID) ([]chat.Message, error) {
	if me.IsZero() || other.IsZero() {
		return nil, ErrInvalidParticipant
	}
	messages, err := s.store.Conversation(ctx, me, other)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}
