package auth

import (
	"time"

	"github.com/tomershatz123/chat123/domain/chat"
)

// UserInfo is the public part of a user carried across module boundaries.
type UserInfo struct {
	ID        chat.UserID `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	CreatedAt time.Time   `json:"created_at"`
}

func toUserInfo(u *chat.User) UserInfo {
	return UserInfo{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// User converts the info back to a domain user without credentials.
func (u UserInfo) User() *chat.User {
	return &chat.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse represents a user registration response.
type RegisterResponse struct {
	User UserInfo `json:"user"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a user login response with tokens.
type LoginResponse struct {
	Tokens chat.TokenPair `json:"tokens"`
	User   UserInfo       `json:"user"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse represents a token refresh response.
type RefreshResponse struct {
	Tokens chat.TokenPair `json:"tokens"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid  bool        `json:"valid"`
	UserID chat.UserID `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID chat.UserID `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	User UserInfo `json:"user"`
}

// ListUsersRequest represents a contact list request.
type ListUsersRequest struct{}

// ListUsersResponse represents the contact list.
type ListUsersResponse struct {
	Users []UserInfo `json:"users"`
}
