package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/tomershatz123/chat123/domain/chat"
)

// AuthPort defines the authentication operations other modules use.
type AuthPort interface {
	Register(ctx context.Context, name, email, password string) (*chat.User, error)
	Login(ctx context.Context, email, password string) (*chat.TokenPair, *chat.User, error)
	Refresh(ctx context.Context, refreshToken string) (*chat.TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*chat.Claims, error)
	GetUser(ctx context.Context, userID chat.UserID) (*chat.User, error)
	ListUsers(ctx context.Context) ([]chat.User, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	if container == nil {
		panic("auth adapter requires non-nil ServiceContainer")
	}
	return &AuthAdapter{
		container: container,
	}
}

func (a *AuthAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// Register creates an account.
func (a *AuthAdapter) Register(ctx context.Context, name, email, password string) (*chat.User, error) {
	req := RegisterRequest{Name: name, Email: email, Password: password}
	var resp RegisterResponse
	if err := a.call(ctx, "register", &req, &resp); err != nil {
		return nil, err
	}
	return resp.User.User(), nil
}

// Login authenticates and returns a token pair and the user.
func (a *AuthAdapter) Login(ctx context.Context, email, password string) (*chat.TokenPair, *chat.User, error) {
	req := LoginRequest{Email: email, Password: password}
	var resp LoginResponse
	if err := a.call(ctx, "login", &req, &resp); err != nil {
		return nil, nil, err
	}
	return &resp.Tokens, resp.User.User(), nil
}

// Refresh exchanges a refresh token for a new pair.
func (a *AuthAdapter) Refresh(ctx context.Context, refreshToken string) (*chat.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp RefreshResponse
	if err := a.call(ctx, "refresh-token", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Tokens, nil
}

// ValidateToken validates an access token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*chat.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := a.call(ctx, "validate-token", &req, &resp); err != nil {
		return nil, err
	}

	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %s", resp.Error)
	}

	return &chat.Claims{
		UserID: resp.UserID,
		Email:  resp.Email,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID chat.UserID) (*chat.User, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := a.call(ctx, "get-user", &req, &resp); err != nil {
		return nil, err
	}
	return resp.User.User(), nil
}

// ListUsers returns every registered user.
func (a *AuthAdapter) ListUsers(ctx context.Context) ([]chat.User, error) {
	var resp ListUsersResponse
	if err := a.call(ctx, "list-users", &ListUsersRequest{}, &resp); err != nil {
		return nil, err
	}
	users := make([]chat.User, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, *u.User())
	}
	return users, nil
}
