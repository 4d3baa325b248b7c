package api

import (
	"log"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/tomershatz123/chat123/domain/chat"
	"github.com/tomershatz123/chat123/modules/auth"
	"github.com/tomershatz123/chat123/modules/realtime"
)

// wsAuthUserKey carries the identity proven at upgrade time into the
// websocket handler.
const wsAuthUserKey = "ws_auth_user"

// LiveChannel serves the /ws endpoint.
type LiveChannel struct {
	hub      *realtime.Hub
	authPort auth.AuthPort
}

// NewLiveChannel creates the live channel handlers for hub.
func NewLiveChannel(hub *realtime.Hub, authPort auth.AuthPort) *LiveChannel {
	return &LiveChannel{hub: hub, authPort: authPort}
}

// Upgrade admits websocket upgrades. A token may be passed as the "token"
// query parameter or a bearer header; when present it must be valid, and the
// resulting identity constrains which room the connection may join.
func (lc *LiveChannel) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	}

	if token == "" {
		if lc.hub.RequireAuth() {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}
		return c.Next()
	}

	claims, err := lc.authPort.ValidateToken(c.UserContext(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	}
	c.Locals(wsAuthUserKey, claims.UserID)
	return c.Next()
}

// Handle runs the read loop of one live connection.
func (lc *LiveChannel) Handle(c *websocket.Conn) {
	authUser, _ := c.Locals(wsAuthUserKey).(chat.UserID)
	conn := lc.hub.Lifecycle.Connect(c, authUser)
	defer func() {
		lc.hub.Lifecycle.Disconnect(conn)
		// The underlying conn is released when Handle returns.
		<-conn.Done()
	}()

	for {
		messageType, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[api] Connection %s read error: %v", conn.ID(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		lc.hub.Lifecycle.HandleFrame(conn, frame)
	}
}
