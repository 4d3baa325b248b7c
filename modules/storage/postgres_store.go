package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomershatz123/chat123/domain/chat"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id           BIGSERIAL PRIMARY KEY,
	text         TEXT NOT NULL,
	sender_id    BIGINT NOT NULL REFERENCES users (id),
	recipient_id BIGINT NOT NULL REFERENCES users (id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversation ON messages (sender_id, recipient_id);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at);
`

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgresStore connects a pgx pool to databaseURL.
func OpenPostgresStore(ctx context.Context, databaseURL string, maxConns int32) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// CreateUser inserts a new user and fills its ID and CreatedAt.
func (s *PostgresStore) CreateUser(ctx context.Context, user *chat.User) error {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`,
		user.Name, user.Email, user.PasswordHash,
	).Scan(&id, &user.CreatedAt)
	if err != nil {
		if isPgError(err, "23505") {
			return ErrUserExists
		}
		return err
	}
	user.ID = chat.UserID(id)
	return nil
}

// FindUserByID finds a user by ID.
func (s *PostgresStore) FindUserByID(ctx context.Context, id chat.UserID) (*chat.User, error) {
	return s.findUser(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`, int64(id))
}

// FindUserByEmail finds a user by email.
func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*chat.User, error) {
	return s.findUser(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) findUser(ctx context.Context, query string, arg any) (*chat.User, error) {
	var (
		user chat.User
		id   int64
	)
	err := s.pool.QueryRow(ctx, query, arg).Scan(&id, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.ID = chat.UserID(id)
	return &user, nil
}

// ListUsers returns every user ordered by ID.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]chat.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []chat.User
	for rows.Next() {
		var (
			user chat.User
			id   int64
		)
		if err := rows.Scan(&id, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.ID = chat.UserID(id)
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateMessage inserts msg and returns it with the sender name attached.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *chat.Message) error {
	var (
		id         int64
		createdAt  time.Time
		senderName string
	)
	err := s.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO messages (text, sender_id, recipient_id)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, sender_id
		)
		SELECT i.id, i.created_at, u.name
		FROM inserted i JOIN users u ON u.id = i.sender_id`,
		msg.Text, int64(msg.SenderID), int64(msg.RecipientID),
	).Scan(&id, &createdAt, &senderName)
	if err != nil {
		if isPgError(err, "23503") {
			return ErrUserNotFound
		}
		return err
	}

	msg.ID = uint64(id)
	msg.CreatedAt = createdAt
	msg.Sender = &chat.Sender{Name: senderName}
	return nil
}

// Conversation returns the messages exchanged between a and b, oldest first.
func (s *PostgresStore) Conversation(ctx context.Context, a, b chat.UserID) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, text, sender_id, recipient_id, created_at
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at ASC, id ASC`,
		int64(a), int64(b),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var (
			msg                   chat.Message
			id, sender, recipient int64
		)
		if err := rows.Scan(&id, &msg.Text, &sender, &recipient, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.ID = uint64(id)
		msg.SenderID = chat.UserID(sender)
		msg.RecipientID = chat.UserID(recipient)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// isPgError reports whether err is a PostgreSQL error with the given code.
func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
