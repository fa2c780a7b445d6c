package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionStoreMode selects the session store backend.
type SessionStoreMode string

const (
	// SessionStoreMemory keeps sessions in process memory. Sessions are
	// lost on restart; suitable for a single instance.
	SessionStoreMemory SessionStoreMode = "memory"
	// SessionStoreRedis keeps sessions in Redis, shared across instances.
	SessionStoreRedis SessionStoreMode = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreMode.
func (m *SessionStoreMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "memory", "redis":
		*m = SessionStoreMode(v)
		return nil
	default:
		return fmt.Errorf("invalid session store mode: %q (valid options: memory, redis)", v)
	}
}

// UserStoreMode selects the user store backend.
type UserStoreMode string

const (
	// UserStoreMemory uses an in-memory user store with dev-seeded
	// accounts. Development only.
	UserStoreMemory UserStoreMode = "memory"
	// UserStorePostgres uses the Postgres user store.
	UserStorePostgres UserStoreMode = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for UserStoreMode.
func (m *UserStoreMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "memory", "postgres":
		*m = UserStoreMode(v)
		return nil
	default:
		return fmt.Errorf("invalid user store mode: %q (valid options: memory, postgres)", v)
	}
}

// AuthConfig groups session, credential and rate-limit configuration.
type AuthConfig struct {
	// SessionStore selects where sessions live.
	SessionStore SessionStoreMode `env:"SESSION_STORE" envDefault:"memory"`

	// UserStore selects where user accounts live.
	UserStore UserStoreMode `env:"USER_STORE" envDefault:"postgres"`

	// SessionTTL is the default lifetime of a newly issued session.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// RateLimitMaxAttempts is the attempt budget per identifier within
	// one rate-limit window.
	RateLimitMaxAttempts int `env:"RATE_LIMIT_MAX_ATTEMPTS" envDefault:"5"`

	// RateLimitWindow is the length of the rate-limit window.
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`

	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`

	// BcryptCost is the bcrypt work factor for newly hashed passwords.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL <= 0 {
		a.SessionTTL = 24 * time.Hour
	}
	if a.RateLimitMaxAttempts <= 0 {
		a.RateLimitMaxAttempts = 5
	}
	if a.RateLimitWindow <= 0 {
		a.RateLimitWindow = 15 * time.Minute
	}
	if a.PasswordMinLength < 4 {
		a.PasswordMinLength = 8
	}
}
