// Package session binds a cookie-delivered token to a server-side record of
// the authenticated admin. Records expire a fixed time after creation.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned when a request carries no valid session.
var ErrNoSession = errors.New("no session")

// Session is the server-side state kept for a logged-in admin.
type Session struct {
	ID        string    `json:"id"`
	AdminID   int64     `json:"admin_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiresAt returns the absolute expiry for a session with the given TTL.
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

// Store is a keyed session store. Implementations must treat records past
// their TTL as absent.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, sess *Session, ttl time.Duration) error
	Destroy(ctx context.Context, id string) error
	// Sweep drops records that expired before now and reports how many
	// were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
