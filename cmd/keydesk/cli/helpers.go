package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keydesk/keydesk/internal/config"
	"github.com/keydesk/keydesk/internal/session"
	"github.com/keydesk/keydesk/internal/store"
)

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, s config.LogSettings) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if s.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context, s *config.Settings) (*store.Store, error) {
	st, err := store.Open(ctx, s.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// newSessionStore builds the configured session backend. Redis is pinged
// up front so a bad address fails at startup rather than on first login.
func newSessionStore(ctx context.Context, s config.SessionSettings) (session.Store, error) {
	switch s.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		rs := session.NewRedisStore(client)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect session redis %s: %w", s.RedisAddr, err)
		}
		return rs, nil
	case "memory", "":
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", s.Store)
	}
}
