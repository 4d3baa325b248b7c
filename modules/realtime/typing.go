package realtime

import (
	"errors"
	"fmt"

	"github.com/tomershatz123/chat123/domain/chat"
)

var (
	// ErrMalformedTyping is returned when a typing payload lacks either party.
	ErrMalformedTyping = errors.New("malformed typing payload")
	// ErrSenderMismatch is returned when the declared sender is not the authenticated user.
	ErrSenderMismatch = errors.New("typing sender does not match connection identity")
)

// TypingRelay forwards typing signals to the receiver's room.
// It keeps no state: each signal is relayed once or dropped.
type TypingRelay struct {
	router *Router
}

// NewTypingRelay creates a TypingRelay.
func NewTypingRelay(router *Router) *TypingRelay {
	return &TypingRelay{router: router}
}

// Relay emits user_typing or user_stop_typing with the sender id to every
// connection in the receiver's room except the originating one.
func (t *TypingRelay) Relay(kind chat.TypingKind, from *Connection, payload TypingPayload) (int, error) {
	if payload.SenderID.IsZero() || payload.ReceiverID.IsZero() {
		return 0, ErrMalformedTyping
	}
	if kind != chat.TypingStart && kind != chat.TypingStop {
		return 0, fmt.Errorf("%w: unknown kind %d", ErrMalformedTyping, kind)
	}

	exceptConnID := ""
	if from != nil {
		if auth := from.AuthUser(); !auth.IsZero() && auth != payload.SenderID {
			return 0, ErrSenderMismatch
		}
		exceptConnID = from.ID()
	}

	notice := TypingNotice{SenderID: payload.SenderID}
	return t.router.EmitToRoomExcept(payload.ReceiverID, eventForKind(kind), notice, exceptConnID), nil
}
