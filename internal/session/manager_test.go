package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keydesk/keydesk/internal/model"
)

const testSecret = "test-session-secret"

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	cfg := DefaultConfig()
	cfg.Secret = testSecret
	m, err := NewManager(store, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, store
}

// login creates a session and returns the cookie the client would send back.
func login(t *testing.T, m *Manager) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	if _, err := m.Create(context.Background(), rr, &model.Admin{ID: 7, Email: "a@x.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(NewMemoryStore(), Config{}, slog.Default())
	if err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestCreateSetsHardenedCookie(t *testing.T) {
	m, _ := newTestManager(t)
	c := login(t, m)

	if c.Name != "keydesk_session" {
		t.Errorf("cookie name = %q", c.Name)
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if !c.Secure {
		t.Error("expected Secure cookie by default")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
	if c.MaxAge != 86400 {
		t.Errorf("MaxAge = %d, want 86400", c.MaxAge)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	c := login(t, m)

	sess, err := m.Load(requestWith(c))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.AdminID != 7 || sess.Email != "a@x.com" {
		t.Errorf("Load = %+v, want admin 7 a@x.com", sess)
	}
}

func TestLoadWithoutCookie(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Load(requestWith(nil)); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestLoadRejectsTamperedToken(t *testing.T) {
	m, _ := newTestManager(t)
	c := login(t, m)

	tampered := *c
	tampered.Value = c.Value[:len(c.Value)-2] + "xx"
	if _, err := m.Load(requestWith(&tampered)); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for tampered token, got %v", err)
	}

	garbage := *c
	garbage.Value = "not.a.token"
	if _, err := m.Load(requestWith(&garbage)); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for garbage token, got %v", err)
	}
}

func TestLoadRejectsOtherSecret(t *testing.T) {
	m, _ := newTestManager(t)
	c := login(t, m)

	cfg := DefaultConfig()
	cfg.Secret = "a-different-secret"
	other, err := NewManager(m.Store(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := other.Load(requestWith(c)); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession with wrong secret, got %v", err)
	}
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	m, store := newTestManager(t)
	start := time.Now()
	clock := start
	m.now = func() time.Time { return clock }
	store.now = func() time.Time { return clock }

	c := login(t, m)

	clock = start.Add(23 * time.Hour)
	if _, err := m.Load(requestWith(c)); err != nil {
		t.Fatalf("Load before expiry: %v", err)
	}

	clock = start.Add(24*time.Hour + time.Second)
	if _, err := m.Load(requestWith(c)); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after 24h, got %v", err)
	}
}

func TestDestroy(t *testing.T) {
	m, store := newTestManager(t)
	c := login(t, m)

	rr := httptest.NewRecorder()
	if err := m.Destroy(context.Background(), rr, requestWith(c)); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected store to be empty, have %d", store.Len())
	}
	if _, err := m.Load(requestWith(c)); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after destroy, got %v", err)
	}

	cleared := rr.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cleared)
	}
}

func TestDestroyWithoutSession(t *testing.T) {
	m, _ := newTestManager(t)
	rr := httptest.NewRecorder()
	if err := m.Destroy(context.Background(), rr, requestWith(nil)); err != nil {
		t.Fatalf("Destroy without session: %v", err)
	}
	if !strings.Contains(rr.Header().Get("Set-Cookie"), "keydesk_session=") {
		t.Error("expected cookie to be cleared")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m, store := newTestManager(t)
	m.cfg.SweepInterval = 5 * time.Millisecond
	base := time.Now().Add(-48 * time.Hour)
	store.Set(context.Background(), &Session{ID: "stale", CreatedAt: base}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not remove stale session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// brokenDestroyStore fails every Destroy.
type brokenDestroyStore struct {
	*MemoryStore
}

func (brokenDestroyStore) Destroy(context.Context, string) error {
	return errors.New("connection reset")
}

func TestCreateDiscardsSessionWhenSigningFails(t *testing.T) {
	m, store := newTestManager(t)
	m.issue = func(*Session) (string, error) { return "", errors.New("sign failed") }

	rr := httptest.NewRecorder()
	if _, err := m.Create(context.Background(), rr, &model.Admin{ID: 1, Email: "a@x.com"}); err == nil {
		t.Fatal("expected error when signing fails")
	}
	if n := store.Len(); n != 0 {
		t.Errorf("store holds %d sessions, want 0", n)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("no cookie should be set when signing fails")
	}
}

func TestCreateLogsFailedDiscard(t *testing.T) {
	var logs bytes.Buffer
	cfg := DefaultConfig()
	cfg.Secret = testSecret
	m, err := NewManager(brokenDestroyStore{NewMemoryStore()}, cfg, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.issue = func(*Session) (string, error) { return "", errors.New("sign failed") }

	if _, err := m.Create(context.Background(), httptest.NewRecorder(), &model.Admin{ID: 1}); err == nil {
		t.Fatal("expected error when signing fails")
	}
	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "connection reset") {
		t.Errorf("expected a warning with the destroy error, got %q", out)
	}
}
