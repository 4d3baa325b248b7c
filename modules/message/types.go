package message

import "github.com/tomershatz123/chat123/domain/chat"

// SendMessageRequest is the send-message service request.
type SendMessageRequest struct {
	SenderID    chat.UserID `json:"sender_id"`
	RecipientID chat.UserID `json:"recipient_id"`
	Text        string      `json:"text"`
}

// SendMessageResponse carries the stored message.
type SendMessageResponse struct {
	Message chat.Message `json:"message"`
}

// GetConversationRequest is the get-conversation service request.
type GetConversationRequest struct {
	UserID  chat.UserID `json:"user_id"`
	OtherID chat.UserID `json:"other_id"`
}

// GetConversationResponse carries the conversation, oldest first.
type GetConversationResponse struct {
	Messages []chat.Message `json:"messages"`
}
