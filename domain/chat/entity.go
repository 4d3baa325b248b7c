package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidUserID is returned when a user identity cannot be parsed.
var ErrInvalidUserID = errors.New("invalid user id")

// UserID identifies a user. It is assigned by storage and never changes.
type UserID uint64

// ParseUserID parses the decimal form of a user identity.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidUserID
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, s)
	}
	return UserID(n), nil
}

// String returns the decimal form of the identity.
func (id UserID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Room returns the name of the room addressed by this identity.
func (id UserID) Room() string {
	return id.String()
}

// IsZero reports whether the identity is unset.
func (id UserID) IsZero() bool {
	return id == 0
}

// UnmarshalJSON accepts both numeric and string encodings.
func (id *UserID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseUserID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUserID, raw)
	}
	*id = UserID(n)
	return nil
}

// User is a registered account.
type User struct {
	ID           UserID    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string    `json:"name" gorm:"not null;type:text"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string    `json:"-" gorm:"not null;type:text"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Message is a persisted direct message between two users.
type Message struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Text        string    `json:"text" gorm:"not null;type:text"`
	SenderID    UserID    `json:"senderId" gorm:"not null;index:idx_conversation,priority:1"`
	RecipientID UserID    `json:"recipientId" gorm:"not null;index:idx_conversation,priority:2"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	Sender      *Sender   `json:"sender,omitempty" gorm:"-"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// Sender is the public part of the sending user attached to a message.
type Sender struct {
	Name string `json:"name"`
}

// TypingKind distinguishes the two typing-presence signals.
type TypingKind int

const (
	TypingStart TypingKind = iota + 1
	TypingStop
)

func (k TypingKind) String() string {
	switch k {
	case TypingStart:
		return "typing-start"
	case TypingStop:
		return "typing-stop"
	default:
		return "unknown"
	}
}
