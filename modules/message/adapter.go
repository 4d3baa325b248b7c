package message

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/tomershatz123/chat123/domain/chat"
)

// MessagePort defines the messaging operations other modules use.
type MessagePort interface {
	Send(ctx context.Context, sender, recipient chat.UserID, text string) (*chat.Message, error)
	Conversation(ctx context.Context, me, other chat.UserID) ([]chat.Message, error)
}

// messageAdapter wraps ServiceContainer for type-safe cross-module calls.
type messageAdapter struct {
	container mono.ServiceContainer
}

// NewMessageAdapter creates a MessagePort backed by the message module's services.
func NewMessageAdapter(container mono.ServiceContainer) MessagePort {
	if container == nil {
		panic("message adapter requires non-nil ServiceContainer")
	}
	return &messageAdapter{container: container}
}

func (a *messageAdapter) Send(ctx context.Context, sender, recipient chat.UserID, text string) (*chat.Message, error) {
	req := SendMessageRequest{SenderID: sender, RecipientID: recipient, Text: text}
	var resp SendMessageResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"send-message",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("send-message service call failed: %w", err)
	}
	return &resp.Message, nil
}

func (a *messageAdapter) Conversation(ctx context.Context, me, other chat.UserID) ([]chat.Message, error) {
	req := GetConversationRequest{UserID: me, OtherID: other}
	var resp GetConversationResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-conversation",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-conversation service call failed: %w", err)
	}
	if resp.Messages == nil {
		resp.Messages = []chat.Message{}
	}
	return resp.Messages, nil
}
