package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/session"
)

const (
	// SessionKey is the context key for the resolved admin session.
	SessionKey contextKey = "session"

	// SessionErrorKey holds the error from a failed session backend lookup.
	SessionErrorKey contextKey = "session_error"
)

// SessionLoader resolves the session attached to a request.
type SessionLoader interface {
	Load(r *http.Request) (*session.Session, error)
}

// LoadSession resolves the caller's session, if any, and stores it in the
// request context. Requests without a valid session pass through as
// anonymous; use RequireSession to reject them. A backend failure is
// recorded in the context so RequireSession can answer 500 instead of 401.
func LoadSession(loader SessionLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := loader.Load(r)
			if err != nil {
				if errors.Is(err, session.ErrNoSession) {
					next.ServeHTTP(w, r)
					return
				}
				logger.Warn("session lookup failed",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), SessionErrorKey, err)))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireSession rejects requests that carry no session with 401, or with
// 500 when the session backend could not be reached. It must run after
// LoadSession.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := GetSessionError(r.Context()); err != nil {
				writeEnvelope(w, http.StatusInternalServerError, model.ErrorResponse{
					Message: "Server error",
					Error:   err.Error(),
				})
				return
			}
			if GetSession(r.Context()) == nil {
				writeEnvelope(w, http.StatusUnauthorized, model.MessageResponse{Message: "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeEnvelope mirrors handler.writeJSON, which middleware cannot import.
func writeEnvelope(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// GetSession returns the session stored by LoadSession, or nil.
func GetSession(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(SessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

// GetSessionError returns the backend error recorded by LoadSession, or nil.
func GetSessionError(ctx context.Context) error {
	if err, ok := ctx.Value(SessionErrorKey).(error); ok {
		return err
	}
	return nil
}
