// Package client is a Go client for the live channel.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomershatz123/chat123/domain/chat"
	"github.com/tomershatz123/chat123/protocol"
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("client closed")

const (
	writeTimeout = 10 * time.Second
	eventBuffer  = 64
)

// Event is one server frame.
type Event struct {
	Name string
	Data json.RawMessage
}

// Client is a live channel connection.
type Client struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// Dial connects to the live channel at rawURL. A non-empty token is sent as
// the token query parameter.
func Dial(ctx context.Context, rawURL, token string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u.Redacted(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events returns server events in arrival order. The channel is closed when
// the connection ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send writes one event frame.
func (c *Client) Send(event string, payload any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	frame, err := protocol.EncodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Join binds this connection to userID's room.
func (c *Client) Join(userID chat.UserID) error {
	return c.Send(protocol.EventJoin, userID.String())
}

// Typing tells receiver that sender started typing.
func (c *Client) Typing(sender, receiver chat.UserID) error {
	return c.Send(protocol.EventTyping, protocol.TypingPayload{SenderID: sender, ReceiverID: receiver})
}

// StopTyping tells receiver that sender stopped typing.
func (c *Client) StopTyping(sender, receiver chat.UserID) error {
	return c.Send(protocol.EventStopTyping, protocol.TypingPayload{SenderID: sender, ReceiverID: receiver})
}

// Notifier returns a TypingNotifier that emits typing signals from sender to
// receiver on this connection.
func (c *Client) Notifier(clock Clock, sender, receiver chat.UserID) *TypingNotifier {
	return NewTypingNotifier(clock, DefaultTypingTimeout,
		func() {
			if err := c.Typing(sender, receiver); err != nil {
				log.Printf("[client] typing signal failed: %v", err)
			}
		},
		func() {
			if err := c.StopTyping(sender, receiver); err != nil {
				log.Printf("[client] stop_typing signal failed: %v", err)
			}
		},
	)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)

	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[client] dropping malformed frame: %v", err)
			continue
		}

		select {
		case c.events <- Event{Name: env.Event, Data: env.Data}:
		case <-c.done:
			return
		}
	}
}
