package model

// Admin is an operator with dashboard access. Passwords are stored as bcrypt
// hashes and never serialized.
type Admin struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password"` // bcrypt hash, never expose
}
