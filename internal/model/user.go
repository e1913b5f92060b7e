package model

import "time"

// User is a person registered against an existing API key.
type User struct {
	ID        int64  `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
	APIKeyID  int64  `json:"apikey_id" db:"apikey_id"`
}

// UserWithKey is a User row joined with the API key it was registered
// against, as returned by the admin listing.
type UserWithKey struct {
	ID        int64     `json:"id" db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	APIKeyID  int64     `json:"apikey_id" db:"apikey_id"`
	KeyValue  string    `json:"key_value" db:"key_value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Status    KeyStatus `json:"status" db:"status"`
}
