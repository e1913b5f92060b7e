// Package config loads keydesk settings from a YAML file, KEYDESK_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/keydesk/keydesk/internal/server"
	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/session"
	"github.com/keydesk/keydesk/internal/store"
)

// EnvPrefix is prepended to every environment variable, e.g.
// KEYDESK_DATABASE_PASSWORD for database.password.
const EnvPrefix = "KEYDESK"

// Settings is the effective configuration.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server"`
	Database DatabaseSettings `mapstructure:"database"`
	Session  SessionSettings  `mapstructure:"session"`
	Auth     AuthSettings     `mapstructure:"auth"`
	Log      LogSettings      `mapstructure:"log"`
}

type ServerSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	BaseURL         string        `mapstructure:"base_url"`
}

type DatabaseSettings struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SessionSettings struct {
	Secret        string        `mapstructure:"secret"`
	TTL           time.Duration `mapstructure:"ttl"`
	CookieName    string        `mapstructure:"cookie_name"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Store         string        `mapstructure:"store"` // memory or redis
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type AuthSettings struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// Default returns the built-in settings. The session secret is deliberately
// empty: it must come from the config file or KEYDESK_SESSION_SECRET.
func Default() Settings {
	srv := server.DefaultConfig()
	db := store.DefaultConfig()
	sess := session.DefaultConfig()
	return Settings{
		Server: ServerSettings{
			Host:            srv.Host,
			Port:            srv.Port,
			RequestTimeout:  srv.RequestTimeout,
			ShutdownTimeout: srv.ShutdownTimeout,
			CORSOrigins:     []string{},
		},
		Database: DatabaseSettings{
			Driver:          db.Driver,
			Host:            db.Host,
			Port:            db.Port,
			User:            db.User,
			Name:            db.Name,
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
		},
		Session: SessionSettings{
			TTL:           sess.TTL,
			CookieName:    sess.CookieName,
			CookieSecure:  sess.CookieSecure,
			SweepInterval: sess.SweepInterval,
			Store:         "memory",
			RedisAddr:     "localhost:6379",
		},
		Auth: AuthSettings{BcryptCost: service.DefaultBcryptCost},
		Log:  LogSettings{Level: "info", Format: "text"},
	}
}

// SetDefaults registers every key with its default on v. Viper only maps
// environment variables onto keys it knows about, so this must run before
// Load.
func SetDefaults(v *viper.Viper) {
	for key, value := range Default().flatten() {
		v.SetDefault(key, value)
	}
}

// Configure points v at the config file and the KEYDESK_ environment. An
// explicit path wins; otherwise keydesk.yaml is searched for in the working
// directory and $HOME/.keydesk.
func Configure(v *viper.Viper, path string) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("keydesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.keydesk")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// ReadFile reads the configured file. A missing file is not an error when
// none was named explicitly.
func ReadFile(v *viper.Viper) error {
	if path := v.ConfigFileUsed(); path != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Load decodes the effective settings from v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &s, nil
}

var (
	validDrivers = map[string]bool{"mysql": true, "postgres": true, "sqlite": true}
	validStores  = map[string]bool{"memory": true, "redis": true}
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}

	errNoSecret = errors.New("session.secret is required (set KEYDESK_SESSION_SECRET or run 'keydesk config init')")
	errBadTTL   = errors.New("session.ttl must be positive")
	errBadPort  = errors.New("server.port must be between 0 and 65535")
)

// Validate checks the settings needed to serve traffic.
func (s *Settings) Validate() error {
	var errs []error
	if s.Session.Secret == "" {
		errs = append(errs, errNoSecret)
	}
	if s.Session.TTL <= 0 {
		errs = append(errs, errBadTTL)
	}
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		errs = append(errs, errBadPort)
	}
	if !validDrivers[s.Database.Driver] {
		errs = append(errs, fmt.Errorf("database.driver %q is not one of mysql, postgres, sqlite", s.Database.Driver))
	}
	if !validStores[s.Session.Store] {
		errs = append(errs, fmt.Errorf("session.store %q is not one of memory, redis", s.Session.Store))
	}
	if !validLevels[strings.ToLower(s.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s.Log.Level))
	}
	if !validFormats[s.Log.Format] {
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", s.Log.Format))
	}
	return errors.Join(errs...)
}

// StoreConfig maps the database settings onto store.Config.
func (s *Settings) StoreConfig() store.Config {
	d := s.Database
	return store.Config{
		Driver:          d.Driver,
		DSN:             d.DSN,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Name:            d.Name,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}
}

// SessionConfig maps the session settings onto session.Config.
func (s *Settings) SessionConfig() session.Config {
	return session.Config{
		Secret:        s.Session.Secret,
		TTL:           s.Session.TTL,
		CookieName:    s.Session.CookieName,
		CookieSecure:  s.Session.CookieSecure,
		SweepInterval: s.Session.SweepInterval,
	}
}

// ServerConfig maps the server settings onto server.Config.
func (s *Settings) ServerConfig(version string) server.Config {
	return server.Config{
		Host:            s.Server.Host,
		Port:            s.Server.Port,
		RequestTimeout:  s.Server.RequestTimeout,
		ShutdownTimeout: s.Server.ShutdownTimeout,
		CORSOrigins:     s.Server.CORSOrigins,
		BaseURL:         s.Server.BaseURL,
		Version:         version,
	}
}
