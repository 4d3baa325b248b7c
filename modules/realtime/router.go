package realtime

import (
	"log"

	"github.com/tomershatz123/chat123/domain/chat"
	"github.com/tomershatz123/chat123/modules/presence"
)

// Directory resolves connection ids to live connections.
type Directory interface {
	Lookup(connID string) (*Connection, bool)
}

// Router addresses events to rooms. It does not own membership; it reads it
// from the presence registry at emit time.
type Router struct {
	registry *presence.Registry
	conns    Directory
	metrics  *Metrics

	// onSlow is called for a member whose queue is full.
	onSlow func(*Connection)
}

// NewRouter creates a Router over the registry and connection directory.
func NewRouter(registry *presence.Registry, conns Directory, metrics *Metrics) *Router {
	return &Router{
		registry: registry,
		conns:    conns,
		metrics:  metrics,
	}
}

// Join binds connID to the room of userID.
func (r *Router) Join(connID string, userID chat.UserID) bool {
	return r.registry.Bind(connID, userID)
}

// EmitToRoom enqueues event on every connection joined to the room of userID
// and returns the number of connections it reached. An empty room is not an error.
func (r *Router) EmitToRoom(userID chat.UserID, event string, payload any) int {
	return r.EmitToRoomExcept(userID, event, payload, "")
}

// EmitToRoomExcept is EmitToRoom skipping the connection exceptConnID.
func (r *Router) EmitToRoomExcept(userID chat.UserID, event string, payload any, exceptConnID string) int {
	members := r.registry.MembersOf(userID)
	if len(members) == 0 {
		return 0
	}

	frame, err := EncodeFrame(event, payload)
	if err != nil {
		log.Printf("[realtime] Failed to encode %s for room %s: %v", event, userID.Room(), err)
		return 0
	}

	delivered := 0
	for _, connID := range members {
		if connID == exceptConnID {
			continue
		}
		conn, ok := r.conns.Lookup(connID)
		if !ok {
			continue
		}
		if conn.enqueue(frame) {
			delivered++
			continue
		}
		r.metrics.dropped(DropSlowConsumer)
		log.Printf("[realtime] Dropped %s for connection %s: send queue full", event, connID)
		if r.onSlow != nil {
			r.onSlow(conn)
		}
	}
	r.metrics.delivered(event, delivered)
	return delivered
}

// send enqueues a frame on a single connection.
func (r *Router) send(conn *Connection, event string, payload any) bool {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		log.Printf("[realtime] Failed to encode %s: %v", event, err)
		return false
	}
	if !conn.enqueue(frame) {
		return false
	}
	r.metrics.delivered(event, 1)
	return true
}
