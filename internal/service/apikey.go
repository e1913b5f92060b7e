package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/keydesk/keydesk/internal/model"
)

const (
	keyBytes = 32

	// KeyValidityDays is how long an issued key stays active.
	KeyValidityDays = 30
)

// GenerateKey returns 32 bytes from the system CSPRNG, hex encoded to 64
// characters.
func GenerateKey() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ComputeExpiry returns now plus KeyValidityDays calendar days. AddDate
// normalizes across month boundaries, so Jan 31 + 30 days is Mar 2 (or
// Mar 1 in a leap year).
func ComputeExpiry(now time.Time) time.Time {
	return now.AddDate(0, 0, KeyValidityDays)
}

// NewAPIKey returns an unsaved active key created at now. Timestamps are
// UTC and truncated to whole seconds to match what DATETIME columns hold, so
// the record equals what a later listing returns.
func NewAPIKey(now time.Time) (*model.APIKey, error) {
	value, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	created := now.UTC().Truncate(time.Second)
	return &model.APIKey{
		KeyValue:  value,
		CreatedAt: created,
		ExpiresAt: ComputeExpiry(created),
		Status:    model.KeyActive,
	}, nil
}
