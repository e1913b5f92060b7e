package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/keydesk/keydesk/internal/server/middleware"
	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/session"
	"github.com/keydesk/keydesk/internal/store"
	"github.com/keydesk/keydesk/internal/ui"
)

const (
	testSecret   = "test-secret-for-handler-tests"
	testEmail    = "admin@example.com"
	testPassword = "supersecretpassword"
)

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store    *store.Store
	sessions *session.Manager
	keys     *KeyHandler
	router   chi.Router
	cookies  []*http.Cookie
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires every handler against an in-memory SQLite store and an
// in-memory session store, mounted the way the server mounts them.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(context.Background(), store.Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := discardLogger()
	cfg := session.DefaultConfig()
	cfg.Secret = testSecret
	mgr, err := session.NewManager(session.NewMemoryStore(), cfg, logger)
	if err != nil {
		t.Fatalf("session.NewManager: %v", err)
	}

	authSvc := service.NewAuthService(st, service.NewCredentials(bcrypt.MinCost))
	authH := NewAuthHandler(authSvc, mgr, logger)
	keyH := NewKeyHandler(st, logger)
	userH := NewUserHandler(st, logger)
	pageH := NewPageHandler(ui.Pages())

	r := chi.NewRouter()
	r.Use(middleware.LoadSession(mgr, logger))
	r.Post("/api/register", authH.Register)
	r.Post("/api/login", authH.Login)
	r.Post("/api/logout", authH.Logout)
	r.Get("/api/check-auth", authH.CheckAuth)
	r.Post("/api/generate-apikey", keyH.Generate)
	r.Post("/api/create-user", userH.Create)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession())
		r.Get("/api/users", userH.List)
		r.Get("/api/apikeys", keyH.List)
	})
	r.Get("/", pageH.Index)
	r.Get("/dashboard", pageH.Dashboard)
	r.Get("/create-user", pageH.CreateUser)

	return &testEnv{store: st, sessions: mgr, keys: keyH, router: r}
}

// do executes an HTTP request against the test router, replaying any
// cookies collected from earlier responses.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req)
}

func (e *testEnv) doForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req)
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		e.keepCookie(c)
	}
	return rr
}

func (e *testEnv) keepCookie(c *http.Cookie) {
	kept := e.cookies[:0]
	for _, old := range e.cookies {
		if old.Name != c.Name {
			kept = append(kept, old)
		}
	}
	if c.MaxAge >= 0 && c.Value != "" {
		kept = append(kept, c)
	}
	e.cookies = kept
}

// login registers the default admin and logs in, keeping the session cookie.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	creds := map[string]string{"email": testEmail, "password": testPassword}
	assertStatus(t, e.do(t, "POST", "/api/register", toJSON(t, creds)), http.StatusOK)
	assertStatus(t, e.do(t, "POST", "/api/login", toJSON(t, creds)), http.StatusOK)
	if len(e.cookies) == 0 {
		t.Fatal("login: no session cookie")
	}
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func assertMessage(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
}

// fixedClock pins the key handler's clock and returns a setter.
func (e *testEnv) fixedClock(start time.Time) func(time.Time) {
	now := start
	e.keys.now = func() time.Time { return now }
	return func(t time.Time) { now = t }
}
