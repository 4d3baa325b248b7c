package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tomershatz123/chat123/domain/chat"
	"github.com/tomershatz123/chat123/modules/presence"
	"github.com/tomershatz123/chat123/modules/ratelimit"
)

// ErrJoinMismatch is returned when a connection authenticated as one user
// tries to join another user's room.
var ErrJoinMismatch = errors.New("join identity does not match connection identity")

// Lifecycle owns every live connection from accept to termination:
// connected -> (join) -> bound -> (disconnect) -> terminated.
type Lifecycle struct {
	registry   *presence.Registry
	router     *Router
	typing     *TypingRelay
	limiter    *ratelimit.MapLimiter
	metrics    *Metrics
	sendBuffer int
	now        func() time.Time

	mu    sync.RWMutex
	conns map[string]*Connection
}

// Lookup returns the live connection with the given id.
func (l *Lifecycle) Lookup(connID string) (*Connection, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	conn, ok := l.conns[connID]
	return conn, ok
}

// Count returns the number of live connections.
func (l *Lifecycle) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.conns)
}

// Connect registers a new connection and starts its write pump.
// authUser is the identity proven by the transport, zero when anonymous.
func (l *Lifecycle) Connect(transport Transport, authUser chat.UserID) *Connection {
	conn := newConnection(transport, authUser, l.sendBuffer)

	l.mu.Lock()
	l.conns[conn.ID()] = conn
	l.mu.Unlock()

	l.registry.Register(conn.ID())
	l.metrics.opened()
	go conn.writePump()

	if authUser.IsZero() {
		log.Printf("[realtime] Connection %s opened", conn.ID())
	} else {
		log.Printf("[realtime] Connection %s opened for user %s", conn.ID(), authUser)
	}
	return conn
}

// Disconnect removes every membership of conn and closes it. It is safe to
// call from any state and more than once.
func (l *Lifecycle) Disconnect(conn *Connection) {
	if conn == nil {
		return
	}

	l.registry.Unregister(conn.ID())
	l.limiter.Forget(conn.ID())

	l.mu.Lock()
	delete(l.conns, conn.ID())
	l.mu.Unlock()

	if conn.terminate() {
		l.metrics.closed()
		log.Printf("[realtime] Connection %s closed", conn.ID())
	}
}

// Shutdown terminates every live connection.
func (l *Lifecycle) Shutdown() {
	l.mu.RLock()
	conns := make([]*Connection, 0, len(l.conns))
	for _, conn := range l.conns {
		conns = append(conns, conn)
	}
	l.mu.RUnlock()

	for _, conn := range conns {
		l.Disconnect(conn)
	}
}

// HandleFrame processes one inbound frame. Errors are reported to the client
// as error frames and never tear the connection down; a panic while handling
// is confined to this frame.
func (l *Lifecycle) HandleFrame(conn *Connection, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[realtime] Recovered while handling frame on %s: %v", conn.ID(), r)
			l.sendError(conn, "internal error")
		}
	}()

	if conn.State() == StateTerminated {
		return
	}

	if !l.limiter.Allow(conn.ID(), l.now()) {
		l.metrics.dropped(DropRateLimited)
		l.sendError(conn, "rate limit exceeded, please slow down")
		return
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		l.metrics.dropped(DropMalformed)
		l.sendError(conn, "invalid frame format")
		return
	}
	l.metrics.received(frameLabel(env.Event))

	switch env.Event {
	case EventJoin:
		l.handleJoin(conn, env.Data)
	case EventTyping:
		l.handleTyping(conn, chat.TypingStart, env.Data)
	case EventStopTyping:
		l.handleTyping(conn, chat.TypingStop, env.Data)
	default:
		l.metrics.dropped(DropMalformed)
		l.sendError(conn, "unknown event: "+env.Event)
	}
}

func (l *Lifecycle) handleJoin(conn *Connection, data json.RawMessage) {
	userID, err := decodeJoin(data)
	if err != nil {
		log.Printf("[realtime] Invalid join on %s: %v", conn.ID(), err)
		l.metrics.dropped(DropMalformed)
		l.sendError(conn, "invalid join payload")
		return
	}

	if auth := conn.AuthUser(); !auth.IsZero() && auth != userID {
		log.Printf("[realtime] Join rejected on %s: %v (%s != %s)", conn.ID(), ErrJoinMismatch, userID, auth)
		l.metrics.dropped(DropRejected)
		l.sendError(conn, "join rejected")
		return
	}

	if !l.router.Join(conn.ID(), userID) {
		return
	}
	conn.markBound(userID)
	log.Printf("[realtime] Connection %s joined room %s", conn.ID(), userID.Room())
}

func (l *Lifecycle) handleTyping(conn *Connection, kind chat.TypingKind, data json.RawMessage) {
	var payload TypingPayload
	if len(data) == 0 {
		l.rejectTyping(conn, kind, ErrMalformedTyping)
		return
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		l.rejectTyping(conn, kind, fmt.Errorf("%w: %v", ErrMalformedTyping, err))
		return
	}
	if _, err := l.typing.Relay(kind, conn, payload); err != nil {
		l.rejectTyping(conn, kind, err)
	}
}

func (l *Lifecycle) rejectTyping(conn *Connection, kind chat.TypingKind, err error) {
	log.Printf("[realtime] Dropped %s from %s: %v", kind, conn.ID(), err)
	if errors.Is(err, ErrSenderMismatch) {
		l.metrics.dropped(DropRejected)
	} else {
		l.metrics.dropped(DropMalformed)
	}
	l.sendError(conn, err.Error())
}

func (l *Lifecycle) sendError(conn *Connection, message string) {
	l.router.send(conn, EventError, ErrorPayload{Message: message})
}

// frameLabel bounds the metrics label to the events the channel accepts.
func frameLabel(event string) string {
	switch event {
	case EventJoin, EventTyping, EventStopTyping:
		return event
	}
	return "unknown"
}

func decodeJoin(data json.RawMessage) (chat.UserID, error) {
	if len(data) == 0 {
		return 0, chat.ErrInvalidUserID
	}
	var userID chat.UserID
	if err := json.Unmarshal(data, &userID); err != nil {
		return 0, err
	}
	if userID.IsZero() {
		return 0, chat.ErrInvalidUserID
	}
	return userID, nil
}
