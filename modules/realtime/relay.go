package realtime

import (
	"log"

	"github.com/tomershatz123/chat123/domain/chat"
)

// DeliveryRelay pushes persisted messages to the recipient's live connections.
type DeliveryRelay struct {
	router *Router
}

// NewDeliveryRelay creates a DeliveryRelay.
func NewDeliveryRelay(router *Router) *DeliveryRelay {
	return &DeliveryRelay{router: router}
}

// OnMessagePersisted must only be called after the message is durably stored.
// The sender's own connections are not addressed.
func (d *DeliveryRelay) OnMessagePersisted(msg chat.Message) int {
	n := d.router.EmitToRoom(msg.RecipientID, EventReceiveMessage, msg)
	if n == 0 {
		log.Printf("[realtime] Message %d: recipient %s is offline", msg.ID, msg.RecipientID)
	}
	return n
}
