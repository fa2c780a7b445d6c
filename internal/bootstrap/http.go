package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parishtech/shepherd/config"
	"github.com/parishtech/shepherd/internal/adapters/reaper"
	httpx "github.com/parishtech/shepherd/internal/http"
)

// RunOptions holds everything needed to run the HTTP server and its
// background workers.
type RunOptions struct {
	Config config.AppConfig
	Auth   *AuthContainer
	Logger *slog.Logger

	// Members optionally mounts a downstream member-records handler
	// behind the member-access gate.
	Members http.Handler
}

// Run starts the HTTP server and the session reaper and blocks until the
// process receives SIGINT/SIGTERM or a component fails. Shutdown is
// graceful within the configured timeout.
func Run(ctx context.Context, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := httpx.NewRouter(httpx.RouterServices{
		Auth:    opts.Auth.Service,
		Limiter: opts.Auth.Limiter,
		Members: opts.Members,
		Logger:  logger,
	})

	addr := opts.Config.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: opts.Config.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.InfoContext(groupCtx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if opts.Config.Reaper.Enabled {
		runner, err := reaper.NewRunner(reaper.RunnerOptions{
			Sweeper:  opts.Auth.Service,
			Interval: opts.Config.Reaper.Interval,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		group.Go(func() error {
			if err := runner.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), opts.Config.HTTP.ShutdownTimeout,
		)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
