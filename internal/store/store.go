package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/keydesk/keydesk/internal/model"
)

// Store is the persistence gateway for admins, API keys and users. Every
// method takes the caller's context, borrows one pooled connection per
// statement and returns it on every exit path.
type Store struct {
	db *sqlx.DB
	d  dialect
}

// Open connects to the database described by cfg, sizes the pool and
// applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	dsn, err := cfg.dataSourceName()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", d.name, err)
	}

	if d.name == "sqlite" {
		// SQLite doesn't support concurrent writes, and an in-memory
		// database only exists on the connection that created it.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	s := &Store{db: db, d: d}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Migrate creates any missing tables. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// Driver returns the dialect name the store was opened with.
func (s *Store) Driver() string { return s.d.name }

// Ping verifies a connection can be acquired and used.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// insert executes an INSERT and returns the generated id, using RETURNING on
// dialects whose drivers don't implement LastInsertId.
func (s *Store) insert(ctx context.Context, q string, args ...interface{}) (int64, error) {
	if s.d.returning {
		var id int64
		if err := s.db.QueryRowxContext(ctx, s.db.Rebind(q+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ---------------------------------------------------------------------------
// Admins
// ---------------------------------------------------------------------------

// CreateAdmin inserts a new admin account and populates admin.ID. A second
// account with the same email fails with ErrDuplicate.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	id, err := s.insert(ctx, "INSERT INTO admin (email, password) VALUES (?, ?)",
		admin.Email, admin.PasswordHash)
	if err != nil {
		if err = mapError(err); errors.Is(err, ErrDuplicate) {
			return err
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdminByEmail returns the admin registered under email.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	err := s.db.GetContext(ctx, &admin,
		s.db.Rebind("SELECT id, email, password FROM admin WHERE email = ?"), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts ordered by email.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	admins := []model.Admin{}
	if err := s.db.SelectContext(ctx, &admins, "SELECT id, email, password FROM admin ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// CreateAPIKey inserts a key record and populates key.ID. CreatedAt and
// ExpiresAt must already be set by the caller.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	id, err := s.insert(ctx,
		"INSERT INTO apikey (key_value, created_at, expires_at, status) VALUES (?, ?, ?, ?)",
		key.KeyValue, key.CreatedAt.UTC(), key.ExpiresAt.UTC(), string(key.Status))
	if err != nil {
		return fmt.Errorf("insert api key: %w", mapError(err))
	}
	key.ID = id
	return nil
}

// APIKeyExists reports whether a key with the given id has been issued.
func (s *Store) APIKeyExists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := s.db.GetContext(ctx, &found, s.db.Rebind("SELECT id FROM apikey WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup api key: %w", err)
	}
	return true, nil
}

// ExpireAPIKeys flips every active key whose expiry is before now to
// inactive and returns how many rows changed.
func (s *Store) ExpireAPIKeys(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE apikey SET status = ? WHERE expires_at < ? AND status = ?"),
		string(model.KeyInactive), now.UTC(), string(model.KeyActive))
	if err != nil {
		return 0, fmt.Errorf("expire api keys: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire api keys rows affected: %w", err)
	}
	return n, nil
}

// ListAPIKeys returns every key, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	keys := []model.APIKey{}
	const q = `SELECT id, key_value, created_at, expires_at, status
		FROM apikey
		ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &keys, q); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUser inserts a user row and populates user.ID. Callers are expected
// to have verified that user.APIKeyID exists.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	q := fmt.Sprintf("INSERT INTO %s (first_name, last_name, email, apikey_id) VALUES (?, ?, ?, ?)",
		s.d.quote("user"))
	id, err := s.insert(ctx, q, user.FirstName, user.LastName, user.Email, user.APIKeyID)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapError(err))
	}
	user.ID = id
	return nil
}

// ListUsersWithKeys returns every user joined with its API key, ordered by
// key creation time, newest first.
func (s *Store) ListUsersWithKeys(ctx context.Context) ([]model.UserWithKey, error) {
	rows := []model.UserWithKey{}
	q := fmt.Sprintf(`SELECT u.id, u.first_name, u.last_name, u.email,
			a.id AS apikey_id, a.key_value, a.created_at, a.expires_at, a.status
		FROM %s u
		JOIN apikey a ON u.apikey_id = a.id
		ORDER BY a.created_at DESC, u.id DESC`, s.d.quote("user"))
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return rows, nil
}
