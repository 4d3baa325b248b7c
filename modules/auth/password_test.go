package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct-horse" {
		t.Fatal("Hash() returned the plain password")
	}

	if !hasher.Verify("correct-horse", hash) {
		t.Error("Verify() should accept the right password")
	}
	if hasher.Verify("wrong-horse", hash) {
		t.Error("Verify() should reject a wrong password")
	}
	if hasher.Verify("correct-horse", "not-a-hash") {
		t.Error("Verify() should reject a malformed hash")
	}
}

func TestPasswordHasher_HashEnforcesPolicy(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"too short", "short", ErrWeakPassword},
		{"minimum length", "12345678", nil},
		{"maximum length", strings.Repeat("a", 72), nil},
		{"too long", strings.Repeat("a", 73), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckPolicy(tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckPolicy() error = %v, want %v", err, tt.wantErr)
			}
			if _, err := hasher.Hash(tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("Hash() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"zero falls back", 0, DefaultBcryptCost},
		{"too high falls back", bcrypt.MaxCost + 1, DefaultBcryptCost},
		{"min cost kept", bcrypt.MinCost, bcrypt.MinCost},
		{"custom kept", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPasswordHasher(tt.cost).cost; got != tt.want {
				t.Errorf("cost = %d, want %d", got, tt.want)
			}
		})
	}
}
