package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// MaxPasswordBytes is the longest input bcrypt reads. Longer passwords are
// truncated to this length before hashing and verification.
const MaxPasswordBytes = 72

// Credentials hashes and verifies admin passwords with bcrypt.
type Credentials struct {
	cost int
}

// NewCredentials returns a Credentials using the given bcrypt cost. Costs
// outside bcrypt's accepted range fall back to DefaultBcryptCost.
func NewCredentials(cost int) *Credentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Credentials{cost: cost}
}

// Hash returns a salted bcrypt hash of password.
func (c *Credentials) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(passwordBytes(password), c.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether password matches hash. A mismatch is not an error;
// only a malformed hash is.
func (c *Credentials) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), passwordBytes(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}

func passwordBytes(password string) []byte {
	b := []byte(password)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}
	return b
}
