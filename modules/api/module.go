// Package api serves the HTTP API and the live channel endpoint.
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/tomershatz123/chat123/modules/auth"
	"github.com/tomershatz123/chat123/modules/message"
	"github.com/tomershatz123/chat123/modules/ratelimit"
	"github.com/tomershatz123/chat123/modules/realtime"
)

// Config configures the HTTP server.
type Config struct {
	Addr        string
	CORSOrigins string
	// SendLimiter guards POST /api/messages. Nil disables the limit.
	SendLimiter ratelimit.Limiter
	// SendLimit is reported in the X-RateLimit-Limit header.
	SendLimit int
}

// APIModule is the HTTP API module.
type APIModule struct {
	config      Config
	app         *fiber.App
	hub         *realtime.Hub
	authPort    auth.AuthPort
	messagePort message.MessagePort
	rateLimit   *ratelimit.Module
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config Config) *APIModule {
	if config.Addr == "" {
		config.Addr = ":5001"
	}
	return &APIModule{config: config}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "message"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authPort = auth.NewAuthAdapter(container)
	case "message":
		m.messagePort = message.NewMessageAdapter(container)
	}
}

// SetHub attaches the live channel hub served on /ws.
func (m *APIModule) SetHub(hub *realtime.Hub) {
	m.hub = hub
}

// SetRateLimitModule sets the module providing the message send limiter.
func (m *APIModule) SetRateLimitModule(rl *ratelimit.Module) {
	m.rateLimit = rl
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authPort == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.messagePort == nil {
		return fmt.Errorf("message dependency not set")
	}
	if m.hub == nil {
		return fmt.Errorf("realtime hub not set")
	}

	if m.rateLimit != nil {
		m.config.SendLimiter = m.rateLimit
		m.config.SendLimit = m.rateLimit.Limit()
	}

	m.app = newApp(m.config, m.authPort, m.messagePort, m.hub)

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.config.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on %s", m.config.Addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.config.Addr,
		},
	}
}

// newApp builds the Fiber app with every route mounted.
func newApp(config Config, authPort auth.AuthPort, messagePort message.MessagePort, hub *realtime.Hub) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chat123",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	corsConfig := cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}
	if config.CORSOrigins != "" {
		corsConfig.AllowOrigins = config.CORSOrigins
	}
	app.Use(cors.New(corsConfig))

	handlers := NewHandlers(authPort, messagePort)
	live := NewLiveChannel(hub, authPort)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "healthy",
			"module":      "api",
			"connections": hub.Lifecycle.Count(),
			"rooms":       hub.Registry.RoomCount(),
		})
	})

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(hub.Metrics.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	app.Use("/ws", live.Upgrade)
	app.Get("/ws", websocket.New(live.Handle))

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/refresh", handlers.Refresh)

	requireAuth := AuthMiddleware(authPort)

	users := api.Group("/users", requireAuth)
	users.Get("/me", handlers.Me)
	users.Get("/", handlers.Users)

	messages := api.Group("/messages", requireAuth)
	messages.Post("/", ratelimit.PerKey(config.SendLimiter, config.SendLimit, senderKey), handlers.SendMessage)
	messages.Get("/:otherUserId", handlers.Conversation)

	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
