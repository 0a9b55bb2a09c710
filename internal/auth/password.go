// Package auth hashes employee passwords and issues session tokens.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Sentinel kinds for authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// HasherOption applies a configuration option to the Hasher.
type HasherOption func(*Hasher)

// WithCost sets the bcrypt cost. Out-of-range values are ignored.
func WithCost(cost int) HasherOption {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// NewHasher creates a Hasher using bcrypt.DefaultCost unless overridden.
func NewHasher(opts ...HasherOption) *Hasher {
	h := &Hasher{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the bcrypt hash of pw.
func (h *Hasher) Hash(pw string) (string, error) {
	if pw == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether pw matches storedHash. An empty hash never matches.
func (h *Hasher) Verify(pw, storedHash string) error {
	if storedHash == "" || pw == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(pw)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
