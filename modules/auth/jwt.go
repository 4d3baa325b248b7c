package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomershatz123/chat123/domain/chat"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenKind separates short-lived access tokens from refresh tokens. A token
// of one kind is never accepted where the other is expected.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// JWTClaims is the payload of every chat token. Subject carries the user id
// in decimal form and ID is unique per token.
type JWTClaims struct {
	UserID chat.UserID `json:"user_id"`
	Email  string      `json:"email"`
	Kind   TokenKind   `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 tokens bound to one issuer.
type JWTManager struct {
	secret []byte
	config JWTConfig
	now    func() time.Time
}

func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{
		secret: []byte(config.SecretKey),
		config: config,
		now:    time.Now,
	}
}

// IssuePair signs a fresh access and refresh token for the user.
func (m *JWTManager) IssuePair(userID chat.UserID, email string) (*chat.TokenPair, error) {
	access, err := m.Issue(userID, email, KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := m.Issue(userID, email, KindRefresh)
	if err != nil {
		return nil, err
	}
	return &chat.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    m.ExpiresIn(),
		TokenType:    "Bearer",
	}, nil
}

// Issue signs a single token of the given kind.
func (m *JWTManager) Issue(userID chat.UserID, email string, kind TokenKind) (string, error) {
	ttl := m.config.AccessTokenDuration
	if kind == KindRefresh {
		ttl = m.config.RefreshTokenDuration
	}

	issuedAt := m.now()
	claims := JWTClaims{
		UserID: userID,
		Email:  email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses a token and checks signature, issuer, expiry and kind.
// Expired tokens report ErrExpiredToken; every other failure is ErrInvalidToken.
func (m *JWTManager) Verify(raw string, kind TokenKind) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.UserID.IsZero() || claims.Kind != kind:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExpiresIn is the access token lifetime in seconds.
func (m *JWTManager) ExpiresIn() int64 {
	return int64(m.config.AccessTokenDuration / time.Second)
}
