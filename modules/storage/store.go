// Package storage persists users and messages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomershatz123/chat123/domain/chat"
)

var (
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("user with this email already exists")
)

// Store is the persistence contract used by the auth and message modules.
type Store interface {
	CreateUser(ctx context.Context, user *chat.User) error
	FindUserByID(ctx context.Context, id chat.UserID) (*chat.User, error)
	FindUserByEmail(ctx context.Context, email string) (*chat.User, error)
	ListUsers(ctx context.Context) ([]chat.User, error)

	// CreateMessage stores msg and fills its ID, CreatedAt and Sender.
	// The write is committed when it returns nil.
	CreateMessage(ctx context.Context, msg *chat.Message) error
	// Conversation returns the messages exchanged between a and b, oldest first.
	Conversation(ctx context.Context, a, b chat.UserID) ([]chat.Message, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Driver string
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string
	// MaxConns caps the postgres pool; zero keeps the pgx default.
	MaxConns int32
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "":
		return OpenGormStore(cfg.DSN)
	case DriverPostgres, "postgresql", "pgx":
		return OpenPostgresStore(ctx, cfg.DSN, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
