package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/parishtech/shepherd/config"
	"github.com/parishtech/shepherd/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting shepherd",
		"addr", cfg.HTTP.Addr,
		"session_store", cfg.Auth.SessionStore,
		"user_store", cfg.Auth.UserStore,
		"dev", cfg.IsDev,
	)

	var db *sql.DB
	if cfg.Auth.UserStore == config.UserStorePostgres {
		db, err = bootstrap.ConnectDB(cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close database failed", "error", cerr)
			}
		}()

		if cfg.Postgres.RunMigrationsOnStart {
			if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
				return err
			}
		}
	}

	var redisClient *redis.Client
	if cfg.Auth.SessionStore == config.SessionStoreRedis {
		redisClient, err = bootstrap.ConnectRedis(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	auth, err := bootstrap.BuildAuthService(ctx, bootstrap.AuthDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.Run(ctx, bootstrap.RunOptions{
		Config: cfg,
		Auth:   auth,
		Logger: logger,
	})
}
