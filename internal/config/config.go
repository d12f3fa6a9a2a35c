// Package config loads the process configuration from the environment.
// The result is built once at startup and treated as immutable.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. It is public and only
// fit for local development; Load refuses it when APP_ENV=production.
const DevJWTSecret = "authcore-insecure-development-secret-do-not-deploy"

const minSecretLen = 32

// Config holds runtime settings for the authentication service.
type Config struct {
	Port           string `env:"PORT" envDefault:"8080"`
	AppEnv         string `env:"APP_ENV" envDefault:"development"`
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"authcore.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`
	JWTSecret      string `env:"JWT_SECRET"`
	PasswordHasher string `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"12"`
	HashSlots      int64  `env:"HASH_CONCURRENCY" envDefault:"0"`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"true"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`

	// UsingDevSecret is set when JWTSecret fell back to DevJWTSecret.
	UsingDevSecret bool
}

// Load parses the process environment and validates the result.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom parses configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: vars})
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) finalize() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required when APP_ENV=production")
		}
		c.JWTSecret = DevJWTSecret
		c.UsingDevSecret = true
	}
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters for HMAC-SHA256 security", minSecretLen)
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when DATABASE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want sqlite, postgres or redis)", c.DatabaseDriver)
	}

	switch c.PasswordHasher {
	case "bcrypt":
		if c.BcryptCost < 4 || c.BcryptCost > 14 {
			return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
		}
	case "argon2id":
	default:
		return fmt.Errorf("unsupported PASSWORD_HASHER %q (want bcrypt or argon2id)", c.PasswordHasher)
	}

	if c.HashSlots < 0 {
		return fmt.Errorf("HASH_CONCURRENCY must not be negative, got %d", c.HashSlots)
	}
	return nil
}
