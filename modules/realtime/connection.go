package realtime

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/tomershatz123/chat123/domain/chat"
)

// writeWait bounds a single frame write to the peer.
const writeWait = 10 * time.Second

// Transport is the write side of a live connection.
// Both the Fiber and the gorilla websocket connections satisfy it.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type deadlineSetter interface {
	SetWriteDeadline(t time.Time) error
}

// State is the lifecycle state of a connection.
type State int

const (
	StateConnected State = iota
	StateBound
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateBound:
		return "bound"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Connection is one live channel from a client. Outbound frames go through a
// bounded FIFO queue drained by a single write pump, so frames reach the peer
// in the order they were enqueued.
type Connection struct {
	id        string
	authUser  chat.UserID
	transport Transport
	send      chan []byte
	done      chan struct{}

	mu        sync.Mutex
	state     State
	boundUser chat.UserID
	closed    bool
}

func newConnection(transport Transport, authUser chat.UserID, buffer int) *Connection {
	if buffer <= 0 {
		buffer = 256
	}
	return &Connection{
		id:        uuid.New().String(),
		authUser:  authUser,
		transport: transport,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		state:     StateConnected,
	}
}

// ID returns the process-assigned connection id.
func (c *Connection) ID() string {
	return c.id
}

// AuthUser returns the identity proven at upgrade time, zero if none.
func (c *Connection) AuthUser() chat.UserID {
	return c.authUser
}

// BoundUser returns the room the connection joined, zero before join.
func (c *Connection) BoundUser() chat.UserID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boundUser
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the write pump has exited and the transport is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) markBound(userID chat.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTerminated {
		return
	}
	c.state = StateBound
	c.boundUser = userID
}

// enqueue never blocks. It returns false when the queue is full or closed.
func (c *Connection) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// terminate closes the queue; the write pump flushes what is queued and then
// closes the transport. It reports whether this call did the transition.
func (c *Connection) terminate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	c.state = StateTerminated
	close(c.send)
	return true
}

func (c *Connection) writePump() {
	defer func() {
		if err := c.transport.Close(); err != nil {
			log.Printf("[realtime] Close connection %s: %v", c.id, err)
		}
		close(c.done)
	}()

	for frame := range c.send {
		if ds, ok := c.transport.(deadlineSetter); ok {
			_ = ds.SetWriteDeadline(time.Now().Add(writeWait))
		}
		if err := c.transport.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("[realtime] Write to connection %s failed: %v", c.id, err)
			// Keep draining so enqueue never sees a full queue from a dead peer.
			for range c.send {
			}
			return
		}
	}
	_ = c.transport.WriteMessage(websocket.CloseMessage, []byte{})
}
