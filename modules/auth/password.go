package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12

	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

var (
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrPasswordTooLong = fmt.Errorf("password must be at most %d characters", maxPasswordLen)
)

// PasswordHasher enforces the account password policy and stores passwords
// as bcrypt hashes.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher falls back to DefaultBcryptCost for a cost bcrypt rejects.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// CheckPolicy reports whether password may be used for an account.
func CheckPolicy(password string) error {
	switch {
	case len(password) < minPasswordLen:
		return ErrWeakPassword
	case len(password) > maxPasswordLen:
		return ErrPasswordTooLong
	}
	return nil
}

// Hash checks the policy and returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if err := CheckPolicy(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash never matches.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
