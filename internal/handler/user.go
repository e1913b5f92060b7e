package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/keydesk/keydesk/internal/model"
)

// UserStore is the persistence the user endpoints need.
type UserStore interface {
	APIKeyExists(ctx context.Context, id int64) (bool, error)
	CreateUser(ctx context.Context, user *model.User) error
	ListUsersWithKeys(ctx context.Context) ([]model.UserWithKey, error)
}

// UserHandler registers users against API keys and lists them.
type UserHandler struct {
	store  UserStore
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{store: store, logger: logger}
}

type createUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	APIKeyID  keyRef `json:"apikey_id"`
}

// Create registers a user bound to an existing key. No session needed.
// POST /api/create-user
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "All fields required")
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.APIKeyID.empty() {
		writeMessage(w, http.StatusBadRequest, "All fields required")
		return
	}

	keyID, ok := req.APIKeyID.id()
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid API key")
		return
	}
	exists, err := h.store.APIKeyExists(r.Context(), keyID)
	if err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}
	if !exists {
		writeMessage(w, http.StatusBadRequest, "Invalid API key")
		return
	}

	// Keys are never deleted, so the check above cannot go stale before
	// the insert.
	user := &model.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		APIKeyID:  keyID,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "User created successfully")
}

// List returns every user joined with its key, newest key first.
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsersWithKeys(r.Context())
	if err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
