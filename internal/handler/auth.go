package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/server/middleware"
	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/session"
)

// Authenticator registers admins and checks their credentials.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*model.Admin, error)
	Authenticate(ctx context.Context, email, password string) (*model.Admin, error)
}

// SessionIssuer starts and ends admin sessions on a response.
type SessionIssuer interface {
	Create(ctx context.Context, w http.ResponseWriter, admin *model.Admin) (*session.Session, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// AuthHandler serves admin registration, login and logout.
type AuthHandler struct {
	auth     Authenticator
	sessions SessionIssuer
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator, sessions SessionIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, logger: logger}
}

// credentialsRequest is the payload for Register and Login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an admin account. It does not log the caller in.
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Email and password required")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password required")
		return
	}

	if _, err := h.auth.Register(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			writeMessage(w, http.StatusBadRequest, "Email already exists")
			return
		}
		writeServerError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "Register successful")
}

// Login verifies credentials and starts a session. Unknown email and wrong
// password produce the same response.
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Email and password required")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password required")
		return
	}

	admin, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeServerError(w, r, h.logger, err)
		return
	}

	if _, err := h.sessions.Create(r.Context(), w, admin); err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}

	h.logger.Info("admin logged in", "admin_id", admin.ID, "request_id", middleware.GetRequestID(r.Context()))
	writeMessage(w, http.StatusOK, "Login successful")
}

// Logout ends the caller's session, if any. It always succeeds.
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		h.logger.Warn("session destroy failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	writeMessage(w, http.StatusOK, "Logout successful")
}

// CheckAuth reports whether the caller holds a live session.
// GET /api/check-auth
func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusOK, model.AuthStatus{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, model.AuthStatus{Authenticated: true, Email: sess.Email})
}
