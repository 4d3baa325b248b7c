// Package protocol defines the live channel wire format shared by the server
// and the Go client. Frames are JSON text frames of the form
// {"event": <name>, "data": <payload>}.
package protocol

import (
	"encoding/json"

	"github.com/tomershatz123/chat123/domain/chat"
)

// Event names.
const (
	EventJoin           = "join"
	EventTyping         = "typing"
	EventStopTyping     = "stop_typing"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventReceiveMessage = "receive_message"
	EventError          = "error"
)

// Envelope is a frame as read from the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound is an envelope whose payload has not been encoded yet.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// TypingPayload is the body of typing and stop_typing frames.
type TypingPayload struct {
	SenderID   chat.UserID `json:"senderId"`
	ReceiverID chat.UserID `json:"receiverId"`
}

// TypingNotice is relayed to the peer of a typing user.
type TypingNotice struct {
	SenderID chat.UserID `json:"senderId"`
}

// ErrorPayload is the body of error frames.
type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeFrame encodes an event and its payload as a single text frame.
func EncodeFrame(event string, payload any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: payload})
}
