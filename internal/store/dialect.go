package store

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// dialect captures the per-engine differences the store has to care about:
// the database/sql driver name, identifier quoting, how generated ids are
// returned and the schema DDL.
type dialect struct {
	name       string
	driverName string
	returning  bool
	quote      func(string) string
	schema     []string
}

func backtick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var dialects = map[string]dialect{
	"mysql": {
		name:       "mysql",
		driverName: "mysql",
		quote:      backtick,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS admin (
				id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				email VARCHAR(255) NOT NULL UNIQUE,
				password VARCHAR(255) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS apikey (
				id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				key_value VARCHAR(64) NOT NULL UNIQUE,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				expires_at DATETIME NOT NULL,
				status ENUM('active','inactive') NOT NULL DEFAULT 'active',
				INDEX idx_apikey_created_at (created_at)
			)`,
			"CREATE TABLE IF NOT EXISTS `user` (" + `
				id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				first_name VARCHAR(255) NOT NULL,
				last_name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				apikey_id INT NOT NULL,
				FOREIGN KEY (apikey_id) REFERENCES apikey (id)
			)`,
		},
	},
	"postgres": {
		name:       "postgres",
		driverName: "pgx",
		returning:  true,
		quote:      doubleQuote,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS admin (
				id BIGSERIAL PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS apikey (
				id BIGSERIAL PRIMARY KEY,
				key_value TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				expires_at TIMESTAMPTZ NOT NULL,
				status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive'))
			)`,
			`CREATE INDEX IF NOT EXISTS idx_apikey_created_at ON apikey (created_at)`,
			`CREATE TABLE IF NOT EXISTS "user" (
				id BIGSERIAL PRIMARY KEY,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email TEXT NOT NULL,
				apikey_id BIGINT NOT NULL REFERENCES apikey (id)
			)`,
		},
	},
	"sqlite": {
		name:       "sqlite",
		driverName: "sqlite",
		quote:      doubleQuote,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS admin (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				email TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS apikey (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				key_value TEXT NOT NULL UNIQUE,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				expires_at DATETIME NOT NULL,
				status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive'))
			)`,
			`CREATE INDEX IF NOT EXISTS idx_apikey_created_at ON apikey (created_at)`,
			`CREATE TABLE IF NOT EXISTS "user" (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email TEXT NOT NULL,
				apikey_id INTEGER NOT NULL REFERENCES apikey (id)
			)`,
		},
	},
}

// Config describes how to reach the relational store and how large the
// connection pool may grow.
type Config struct {
	Driver   string // mysql, postgres or sqlite
	DSN      string // overrides the discrete connection fields when set
	Host     string
	Port     int
	User     string
	Password string
	Name     string // database name, or file path for sqlite

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns the settings of the reference deployment: a local
// MySQL database named apiuser with a pool of 10 connections.
func DefaultConfig() Config {
	return Config{
		Driver:          "mysql",
		Host:            "localhost",
		Port:            3306,
		User:            "root",
		Name:            "apiuser",
		MaxOpenConns:    10,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// dataSourceName builds the driver-specific DSN from cfg.
func (c Config) dataSourceName() (string, error) {
	switch c.Driver {
	case "mysql":
		var mc *mysql.Config
		if c.DSN != "" {
			parsed, err := mysql.ParseDSN(c.DSN)
			if err != nil {
				return "", fmt.Errorf("parse mysql dsn: %w", err)
			}
			mc = parsed
		} else {
			mc = mysql.NewConfig()
			mc.User = c.User
			mc.Passwd = c.Password
			mc.Net = "tcp"
			mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
			mc.DBName = c.Name
		}
		// DATETIME columns must scan into time.Time and round-trip in UTC.
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil

	case "postgres":
		if c.DSN != "" {
			return c.DSN, nil
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:     "/" + c.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil

	case "sqlite":
		if c.DSN != "" {
			return c.DSN, nil
		}
		if c.Name == "" {
			return ":memory:", nil
		}
		return c.Name + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil

	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}
