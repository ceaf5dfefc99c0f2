// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds every setting the server reads at startup
type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"3000"`

	// Database
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"` // sqlite or postgres
	DBPath      string `env:"DB_PATH" envDefault:"./bookshelf.db"`
	DatabaseURL string `env:"DATABASE_URL"` // Overrides the PG_* parts when set
	PGUser      string `env:"PG_USER"`
	PGPassword  string `env:"PG_PASSWORD"`
	PGHost      string `env:"PG_HOST" envDefault:"localhost"`
	PGPort      string `env:"PG_PORT" envDefault:"5432"`
	PGDatabase  string `env:"PG_DATABASE" envDefault:"bookshelf"`

	// Metadata lookup
	OpenLibraryAPIURL string        `env:"OPEN_LIBRARY_API_URL" envDefault:"https://openlibrary.org/api/books"`
	MetadataTimeout   time.Duration `env:"METADATA_TIMEOUT" envDefault:"10s"`
	CoversBaseURL     string        `env:"COVERS_BASE_URL" envDefault:"https://covers.openlibrary.org/b"`

	// Sessions
	SessionStore           string        `env:"SESSION_STORE" envDefault:"sql"` // sql or redis
	RedisURL               string        `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`
	SessionTimeout         time.Duration `env:"SESSION_TIMEOUT" envDefault:"60m"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"10m"`
	CookieSecure           bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// Credentials
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// Load reads .env (if present) and then the process environment
func Load() (*Config, error) {
	// Values already in the environment win over .env
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for impossible combinations
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" && c.PGUser == "" {
			return errors.New("DATABASE_URL or PG_USER is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}

	switch c.SessionStore {
	case "sql":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis session store")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be sql or redis, got %q", c.SessionStore)
	}

	if c.OpenLibraryAPIURL == "" {
		return errors.New("OPEN_LIBRARY_API_URL is required")
	}
	if c.MetadataTimeout <= 0 {
		return errors.New("METADATA_TIMEOUT must be positive")
	}
	if c.SessionTimeout <= 0 {
		return errors.New("SESSION_TIMEOUT must be positive")
	}
	if c.SessionCleanupInterval <= 0 {
		return errors.New("SESSION_CLEANUP_INTERVAL must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	return nil
}

// PostgresURL returns DATABASE_URL or one assembled from the PG_* parts
func (c *Config) PostgresURL() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.PGHost, c.PGPort),
		Path:   "/" + c.PGDatabase,
	}
	if c.PGPassword != "" {
		u.User = url.UserPassword(c.PGUser, c.PGPassword)
	} else {
		u.User = url.User(c.PGUser)
	}
	return u.String()
}
