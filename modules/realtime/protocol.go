package realtime

import (
	"github.com/tomershatz123/chat123/domain/chat"
	"github.com/tomershatz123/chat123/protocol"
)

// Live-channel event names.
const (
	EventJoin           = protocol.EventJoin
	EventTyping         = protocol.EventTyping
	EventStopTyping     = protocol.EventStopTyping
	EventUserTyping     = protocol.EventUserTyping
	EventUserStopTyping = protocol.EventUserStopTyping
	EventReceiveMessage = protocol.EventReceiveMessage
	EventError          = protocol.EventError
)

// Wire types shared with the client.
type (
	Envelope      = protocol.Envelope
	TypingPayload = protocol.TypingPayload
	TypingNotice  = protocol.TypingNotice
	ErrorPayload  = protocol.ErrorPayload
)

// EncodeFrame encodes an event and its payload as a single text frame.
func EncodeFrame(event string, payload any) ([]byte, error) {
	return protocol.EncodeFrame(event, payload)
}

func eventForKind(kind chat.TypingKind) string {
	if kind == chat.TypingStop {
		return EventUserStopTyping
	}
	return EventUserTyping
}
