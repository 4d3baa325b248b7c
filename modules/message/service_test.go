package message

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomershatz123/chat123/domain/chat"
	"github.com/tomershatz123/chat123/events"
	"github.com/tomershatz123/chat123/modules/storage"
)

type recordingPublisher struct {
	events []events.MessageCreatedEvent
	err    error
}

func (p *recordingPublisher) PublishMessageCreated(event events.MessageCreatedEvent) error {
	p.events = append(p.events, event)
	return p.err
}

// failingStore wraps a store and fails CreateMessage.
type failingStore struct {
	MessageStore
	err error
}

func (s *failingStore) CreateMessage(context.Context, *chat.Message) error {
	return s.err
}

func setupStore(t *testing.T) (*storage.GormStore, chat.User, chat.User) {
	t.Helper()

	store, err := storage.OpenGormStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	alice := chat.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x"}
	bob := chat.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(context.Background(), &alice))
	require.NoError(t, store.CreateUser(context.Background(), &bob))
	return store, alice, bob
}

func TestService_SendPublishesAfterCommit(t *testing.T) {
	store, alice, bob := setupStore(t)
	pub := &recordingPublisher{}
	svc := NewService(store, pub)

	msg, err := svc.Send(context.Background(), alice.ID, bob.ID, "hi bob")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "Alice", msg.Sender.Name)

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	assert.Equal(t, msg.ID, event.MessageID)
	assert.Equal(t, bob.ID, event.RecipientID)
	assert.Equal(t, "Alice", event.SenderName)

	stored, err := store.Conversation(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, msg.ID, stored[0].ID)
}

func TestService_SendValidation(t *testing.T) {
	store, alice, bob := setupStore(t)

	tests := []struct {
		name      string
		recipient chat.UserID
		text      string
		wantErr   error
	}{
		{"empty text", bob.ID, "", ErrMissingFields},
		{"blank text", bob.ID, "   ", ErrMissingFields},
		{"missing recipient", 0, "hello", ErrMissingFields},
		{"unknown recipient", 9999, "hello", ErrRecipientNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			svc := NewService(store, pub)

			_, err := svc.Send(context.Background(), alice.ID, tt.recipient, tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, pub.events, "nothing should be published for a rejected send")
		})
	}
}

func TestService_SendFromMissingSender(t *testing.T) {
	store, _, bob := setupStore(t)
	pub := &recordingPublisher{}
	svc := NewService(store, pub)

	_, err := svc.Send(context.Background(), 9999, bob.ID, "ghost")
	assert.ErrorIs(t, err, ErrSenderNotFound)
	assert.NotErrorIs(t, err, ErrRecipientNotFound)
	assert.Empty(t, pub.events)
}

func TestService_SendStoreFailureDoesNotPublish(t *testing.T) {
	store, alice, bob := setupStore(t)
	pub := &recordingPublisher{}
	storeErr := errors.New("disk full")
	svc := NewService(&failingStore{MessageStore: store, err: storeErr}, pub)

	_, err := svc.Send(context.Background(), alice.ID, bob.ID, "lost")
	require.ErrorIs(t, err, storeErr)
	assert.Empty(t, pub.events)
}

func TestService_SendPublishFailureStillStores(t *testing.T) {
	store, alice, bob := setupStore(t)
	pub := &recordingPublisher{err: errors.New("bus closed")}
	svc := NewService(store, pub)

	msg, err := svc.Send(context.Background(), alice.ID, bob.ID, "kept")
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)

	stored, err := store.Conversation(context.Background(), bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, msg.ID, stored[0].ID)
}

func TestService_Conversation(t *testing.T) {
	store, alice, bob := setupStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, alice.ID, bob.ID, "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob.ID, alice.ID, "two")
	require.NoError(t, err)
	_, err = svc.Send(ctx, alice.ID, bob.ID, "three")
	require.NoError(t, err)

	messages, err := svc.Conversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{messages[0].Text, messages[1].Text, messages[2].Text})

	empty, err := svc.Conversation(ctx, alice.ID, 4242)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.Conversation(ctx, alice.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidParticipant)
}
