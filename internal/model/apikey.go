package model

import "time"

// KeyStatus is the cached validity state of an API key. The authoritative
// answer is ExpiresAt compared against the current time; Status is only
// brought in line with it when keys are listed.
type KeyStatus string

const (
	KeyActive   KeyStatus = "active"
	KeyInactive KeyStatus = "inactive"
)

// APIKey is a generated token record with a fixed validity window.
type APIKey struct {
	ID        int64     `json:"id" db:"id"`
	KeyValue  string    `json:"key_value" db:"key_value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Status    KeyStatus `json:"status" db:"status"`
}

// Expired reports whether the key's validity window has closed at now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt.Before(now)
}
