package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/parishtech/shepherd/config"
	"github.com/parishtech/shepherd/internal/adapters/memstore"
	"github.com/parishtech/shepherd/internal/adapters/postgres"
	redisadapter "github.com/parishtech/shepherd/internal/adapters/redis"
	"github.com/parishtech/shepherd/internal/data/cryptoutil"
	"github.com/parishtech/shepherd/internal/devseed"
	"github.com/parishtech/shepherd/internal/ports"
	"github.com/parishtech/shepherd/internal/service"
	"github.com/parishtech/shepherd/internal/service/ratelimit"
)

// AuthDeps holds the infrastructure the auth service may be wired onto.
// DB is required for the postgres user store; RedisClient for the redis
// session store.
type AuthDeps struct {
	Config      config.AppConfig
	DB          *sql.DB
	RedisClient *goredis.Client
	Logger      *slog.Logger
}

// AuthContainer bundles the wired auth service with the shared limiter so
// the router can reuse it for its own checks.
type AuthContainer struct {
	Service *service.AuthService
	Limiter ports.RateLimiter
}

// BuildAuthService wires stores, limiter and service according to
// configuration. Dev mode with an in-memory user store gets seeded
// accounts so login works out of the box.
func BuildAuthService(ctx context.Context, deps AuthDeps) (*AuthContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authCfg := deps.Config.Auth

	sessions, err := buildSessionStore(authCfg, deps.RedisClient)
	if err != nil {
		return nil, err
	}
	users, err := buildUserStore(ctx, deps, logger)
	if err != nil {
		return nil, err
	}

	limiter := buildRateLimiter(authCfg, deps.RedisClient, logger)

	svc := service.NewAuthService(service.AuthServiceOptions{
		Users:          users,
		Sessions:       sessions,
		Limiter:        limiter,
		SessionTTL:     authCfg.SessionTTL,
		BcryptCost:     authCfg.BcryptCost,
		PasswordPolicy: cryptoutil.PasswordPolicy{MinLength: authCfg.PasswordMinLength},
		Logger:         logger,
	})

	logger.InfoContext(ctx, "auth service wired",
		"session_store", authCfg.SessionStore,
		"user_store", authCfg.UserStore,
		"session_ttl", authCfg.SessionTTL,
	)
	return &AuthContainer{Service: svc, Limiter: limiter}, nil
}

// buildRateLimiter shares throttle state through Redis whenever sessions do,
// so multi-process deployments count attempts consistently; otherwise the
// per-process window limiter is enough.
func buildRateLimiter(cfg config.AuthConfig, client *goredis.Client, logger *slog.Logger) ports.RateLimiter {
	if cfg.SessionStore == config.SessionStoreRedis && client != nil {
		return redisadapter.NewRateLimiter(client, cfg.RateLimitMaxAttempts, cfg.RateLimitWindow, logger)
	}
	return ratelimit.New(cfg.RateLimitMaxAttempts, cfg.RateLimitWindow)
}

func buildSessionStore(cfg config.AuthConfig, client *goredis.Client) (ports.SessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		if client == nil {
			return nil, errors.New("redis session store selected but no redis client configured")
		}
		return redisadapter.NewSessionStore(client), nil
	case config.SessionStoreMemory:
		return memstore.NewSessionStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store mode %q", cfg.SessionStore)
	}
}

func buildUserStore(ctx context.Context, deps AuthDeps, logger *slog.Logger) (ports.UserStore, error) {
	switch deps.Config.Auth.UserStore {
	case config.UserStorePostgres:
		if deps.DB == nil {
			return nil, errors.New("postgres user store selected but no database configured")
		}
		return postgres.NewUserStore(deps.DB), nil
	case config.UserStoreMemory:
		if !deps.Config.IsDev {
			return nil, errors.New("memory user store is only allowed in dev mode")
		}
		store := memstore.NewUserStore()
		if err := devseed.SeedUsers(ctx, store, logger); err != nil {
			return nil, fmt.Errorf("seed dev users: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown user store mode %q", deps.Config.Auth.UserStore)
	}
}
