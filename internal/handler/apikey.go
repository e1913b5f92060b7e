package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/service"
)

// KeyStore is the persistence the key endpoints need.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	ExpireAPIKeys(ctx context.Context, now time.Time) (int64, error)
	ListAPIKeys(ctx context.Context) ([]model.APIKey, error)
}

// KeyHandler issues and lists API keys.
type KeyHandler struct {
	store  KeyStore
	now    func() time.Time
	newKey func(now time.Time) (*model.APIKey, error)
	logger *slog.Logger
}

// NewKeyHandler creates a new KeyHandler using the wall clock and
// service.NewAPIKey.
func NewKeyHandler(store KeyStore, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		store:  store,
		now:    time.Now,
		newKey: service.NewAPIKey,
		logger: logger,
	}
}

// generateResponse is returned by Generate. The raw key is only ever shown
// here and in the admin listings.
type generateResponse struct {
	ID        int64           `json:"id"`
	Key       string          `json:"key"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Status    model.KeyStatus `json:"status"`
}

// Generate creates a new active key valid for 30 days. No session needed.
// POST /api/generate-apikey
func (h *KeyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	key, err := h.newKey(h.now())
	if err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}
	if err := h.store.CreateAPIKey(r.Context(), key); err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		ID:        key.ID,
		Key:       key.KeyValue,
		CreatedAt: key.CreatedAt,
		ExpiresAt: key.ExpiresAt,
		Status:    key.Status,
	})
}

// List marks lapsed keys inactive, then returns every key newest first.
// GET /api/apikeys
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.ExpireAPIKeys(r.Context(), h.now().UTC())
	if err != nil {
		writeServerError(w, r, h.logger, fmt.Errorf("expire keys: %w", err))
		return
	}
	if n > 0 {
		h.logger.Debug("marked keys inactive", "count", n)
	}

	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}
