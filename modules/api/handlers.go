package api

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tomershatz123/chat123/domain/chat"
	"github.com/tomershatz123/chat123/modules/auth"
	"github.com/tomershatz123/chat123/modules/message"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authPort    auth.AuthPort
	messagePort message.MessagePort
	validate    *validator.Validate
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authPort auth.AuthPort, messagePort message.MessagePort) *Handlers {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handlers{
		authPort:    authPort,
		messagePort: messagePort,
		validate:    validate,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	user, err := h.authPort.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return h.handleError(c, err, "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Email and password are required")
	}

	tokens, user, err := h.authPort.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.handleError(c, err, "Login failed")
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		Message:      "Login successful",
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
		User:         toUserResponse(user),
	})
}

// Refresh handles token refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Refresh token is required")
	}

	tokens, err := h.authPort.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// Me returns the authenticated user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	user, err := h.authPort.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return h.handleError(c, err, "Failed to retrieve user")
	}
	return c.JSON(ContactResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

// Users returns the contact list.
func (h *Handlers) Users(c *fiber.Ctx) error {
	users, err := h.authPort.ListUsers(c.UserContext())
	if err != nil {
		return h.handleError(c, err, "Error fetching users")
	}

	contacts := make([]ContactResponse, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, ContactResponse{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return c.JSON(contacts)
}

// SendMessage persists a message from the authenticated user. Live delivery
// to the recipient happens once the message module reports it stored.
func (h *Handlers) SendMessage(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "text and recipientId are required")
	}

	msg, err := h.messagePort.Send(c.UserContext(), claims.UserID, req.RecipientID, req.Text)
	if err != nil {
		return h.handleError(c, err, "Failed to send message")
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// Conversation returns the messages between the authenticated user and
// :otherUserId, oldest first.
func (h *Handlers) Conversation(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	other, err := chat.ParseUserID(c.Params("otherUserId"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	messages, err := h.messagePort.Conversation(c.UserContext(), claims.UserID, other)
	if err != nil {
		return h.handleError(c, err, "Could not fetch conversation")
	}
	return c.JSON(messages)
}

// handleError maps service errors to HTTP responses. Errors cross module
// boundaries as strings, so known messages are matched by content.
func (h *Handlers) handleError(c *fiber.Ctx, err error, fallback string) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid email or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	case strings.Contains(errStr, "user with this email already exists"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User already exists",
		})
	case strings.Contains(errStr, "invalid email format"):
		return badRequest(c, "Invalid email format")
	case strings.Contains(errStr, "name is required"):
		return badRequest(c, "Name is required")
	case strings.Contains(errStr, "password must be at least"):
		return badRequest(c, "Password must be at least 8 characters")
	case strings.Contains(errStr, "password must be at most"):
		return badRequest(c, "Password must be at most 72 characters")
	case strings.Contains(errStr, "text and recipientId are required"):
		return badRequest(c, "text and recipientId are required")
	case strings.Contains(errStr, "invalid conversation participant"):
		return badRequest(c, "Invalid user id")
	case strings.Contains(errStr, "sender not found"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Sender account no longer exists",
		})
	case strings.Contains(errStr, "recipient not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Recipient not found",
		})
	case strings.Contains(errStr, "user not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "User not found",
		})
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: fallback,
		})
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}
