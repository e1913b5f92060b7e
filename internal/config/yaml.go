package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of keydesk.yaml. Durations are written as
// strings such as "30s" so the file stays readable.
type File struct {
	Server   ServerFile   `yaml:"server"`
	Database DatabaseFile `yaml:"database"`
	Session  SessionFile  `yaml:"session"`
	Auth     AuthFile     `yaml:"auth"`
	Log      LogFile      `yaml:"log"`
}

type ServerFile struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	RequestTimeout  string   `yaml:"request_timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins"`
	BaseURL         string   `yaml:"base_url,omitempty"`
}

type DatabaseFile struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn,omitempty"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type SessionFile struct {
	Secret        string `yaml:"secret"`
	TTL           string `yaml:"ttl"`
	CookieName    string `yaml:"cookie_name"`
	CookieSecure  bool   `yaml:"cookie_secure"`
	SweepInterval string `yaml:"sweep_interval"`
	Store         string `yaml:"store"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type AuthFile struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type LogFile struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// File converts s to its on-disk layout.
func (s Settings) File() File {
	return File{
		Server: ServerFile{
			Host:            s.Server.Host,
			Port:            s.Server.Port,
			RequestTimeout:  s.Server.RequestTimeout.String(),
			ShutdownTimeout: s.Server.ShutdownTimeout.String(),
			CORSOrigins:     s.Server.CORSOrigins,
			BaseURL:         s.Server.BaseURL,
		},
		Database: DatabaseFile{
			Driver:          s.Database.Driver,
			DSN:             s.Database.DSN,
			Host:            s.Database.Host,
			Port:            s.Database.Port,
			User:            s.Database.User,
			Password:        s.Database.Password,
			Name:            s.Database.Name,
			MaxOpenConns:    s.Database.MaxOpenConns,
			MaxIdleConns:    s.Database.MaxIdleConns,
			ConnMaxLifetime: s.Database.ConnMaxLifetime.String(),
		},
		Session: SessionFile{
			Secret:        s.Session.Secret,
			TTL:           s.Session.TTL.String(),
			CookieName:    s.Session.CookieName,
			CookieSecure:  s.Session.CookieSecure,
			SweepInterval: s.Session.SweepInterval.String(),
			Store:         s.Session.Store,
			RedisAddr:     s.Session.RedisAddr,
			RedisPassword: s.Session.RedisPassword,
			RedisDB:       s.Session.RedisDB,
		},
		Auth: AuthFile{BcryptCost: s.Auth.BcryptCost},
		Log:  LogFile{Level: s.Log.Level, Format: s.Log.Format},
	}
}

// flatten lists every setting under its dotted viper key.
func (s Settings) flatten() map[string]interface{} {
	return map[string]interface{}{
		"server.host":                s.Server.Host,
		"server.port":                s.Server.Port,
		"server.request_timeout":     s.Server.RequestTimeout,
		"server.shutdown_timeout":    s.Server.ShutdownTimeout,
		"server.cors_origins":        s.Server.CORSOrigins,
		"server.base_url":            s.Server.BaseURL,
		"database.driver":            s.Database.Driver,
		"database.dsn":               s.Database.DSN,
		"database.host":              s.Database.Host,
		"database.port":              s.Database.Port,
		"database.user":              s.Database.User,
		"database.password":          s.Database.Password,
		"database.name":              s.Database.Name,
		"database.max_open_conns":    s.Database.MaxOpenConns,
		"database.max_idle_conns":    s.Database.MaxIdleConns,
		"database.conn_max_lifetime": s.Database.ConnMaxLifetime,
		"session.secret":             s.Session.Secret,
		"session.ttl":                s.Session.TTL,
		"session.cookie_name":        s.Session.CookieName,
		"session.cookie_secure":      s.Session.CookieSecure,
		"session.sweep_interval":     s.Session.SweepInterval,
		"session.store":              s.Session.Store,
		"session.redis_addr":         s.Session.RedisAddr,
		"session.redis_password":     s.Session.RedisPassword,
		"session.redis_db":           s.Session.RedisDB,
		"auth.bcrypt_cost":           s.Auth.BcryptCost,
		"log.level":                  s.Log.Level,
		"log.format":                 s.Log.Format,
	}
}

const masked = "********"

// Masked returns a copy of s with credentials replaced, for display.
func (s Settings) Masked() Settings {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return masked
	}
	s.Database.Password = mask(s.Database.Password)
	s.Database.DSN = mask(s.Database.DSN)
	s.Session.Secret = mask(s.Session.Secret)
	s.Session.RedisPassword = mask(s.Session.RedisPassword)
	return s
}

// Marshal renders s as keydesk.yaml.
func (s Settings) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s.File())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

const fileHeader = `# keydesk configuration
#
# Every key can be overridden with an environment variable named
# KEYDESK_<SECTION>_<KEY>, e.g. KEYDESK_DATABASE_PASSWORD.
# database.driver: mysql, postgres or sqlite
# session.store:   memory or redis
# session.cookie_secure must stay true unless keydesk is served over plain HTTP.

`

// NewSecret returns a random 32-byte hex secret suitable for session.secret.
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// WriteDefault writes the default configuration to path with a freshly
// generated session secret. Existing files are only replaced when force is
// set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	s := Default()
	secret, err := NewSecret()
	if err != nil {
		return err
	}
	s.Session.Secret = secret

	data, err := s.Marshal()
	if err != nil {
		return err
	}
	// The file holds the session secret.
	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
