package api

import (
	"time"

	"github.com/tomershatz123/chat123/domain/chat"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SendMessageRequest represents a new direct message.
type SendMessageRequest struct {
	Text        string      `json:"text" validate:"required"`
	RecipientID chat.UserID `json:"recipientId" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        chat.UserID `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	CreatedAt time.Time   `json:"createdAt,omitempty"`
}

// ContactResponse is one entry of the contact list.
type ContactResponse struct {
	ID    chat.UserID `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

// LoginResponse carries the issued tokens and the signed-in user.
type LoginResponse struct {
	Message      string       `json:"message"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
	User         UserResponse `json:"user"`
}

// TokenResponse represents an authentication token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toUserResponse(u *chat.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
