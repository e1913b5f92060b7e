package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/keydesk/keydesk/internal/model"
)

const tokenIssuer = "keydesk"

// Config controls session lifetime and the cookie that carries it.
type Config struct {
	Secret        string
	TTL           time.Duration
	CookieName    string
	CookieSecure  bool
	SweepInterval time.Duration
}

// DefaultConfig returns a 24 hour absolute lifetime with a secure cookie.
func DefaultConfig() Config {
	return Config{
		TTL:           24 * time.Hour,
		CookieName:    "keydesk_session",
		CookieSecure:  true,
		SweepInterval: 10 * time.Minute,
	}
}

// Manager issues, resolves and destroys admin sessions. The cookie holds an
// HS256-signed token wrapping the opaque session id; the session record
// itself lives in the Store.
type Manager struct {
	store  Store
	cfg    Config
	secret []byte
	now    func() time.Time
	issue  func(*Session) (string, error)
	logger *slog.Logger
}

func NewManager(store Store, cfg Config, logger *slog.Logger) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	m := &Manager{
		store:  store,
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		now:    time.Now,
		logger: logger,
	}
	m.issue = m.issueToken
	return m, nil
}

// Create starts a session for admin and sets the session cookie on w.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, admin *model.Admin) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		AdminID:   admin.ID,
		Email:     admin.Email,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Set(ctx, sess, m.cfg.TTL); err != nil {
		return nil, err
	}

	token, err := m.issue(sess)
	if err != nil {
		if derr := m.store.Destroy(ctx, sess.ID); derr != nil {
			m.logger.Warn("discard unsigned session failed", "error", derr)
		}
		return nil, err
	}

	http.SetCookie(w, m.cookie(token, int(m.cfg.TTL.Seconds())))
	return sess, nil
}

// Load resolves the session attached to r. It returns ErrNoSession when the
// cookie is missing, tampered with, past its lifetime, or refers to a
// destroyed session.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}

	id, err := m.parseToken(c.Value)
	if err != nil {
		return nil, ErrNoSession
	}

	sess, err := m.store.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !m.now().Before(sess.ExpiresAt(m.cfg.TTL)) {
		m.store.Destroy(r.Context(), id)
		return nil, ErrNoSession
	}
	return sess, nil
}

// Destroy removes the session attached to r, if any, and clears the cookie.
// It succeeds when there is no session.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer http.SetCookie(w, m.cookie("", -1))

	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	id, err := m.parseToken(c.Value)
	if err != nil {
		return nil
	}
	return m.store.Destroy(ctx, id)
}

// Run sweeps expired sessions from the store every SweepInterval until ctx
// is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.store.Sweep(ctx, m.now())
			if err != nil {
				m.logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				m.logger.Debug("swept expired sessions", "count", n)
			}
		}
	}
}

// Store returns the backing session store.
func (m *Manager) Store() Store { return m.store }

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.cfg.CookieName }

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) issueToken(sess *Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt(m.cfg.TTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", err
	}
	if claims.ID == "" {
		return "", errors.New("session token has no id")
	}
	return claims.ID, nil
}
