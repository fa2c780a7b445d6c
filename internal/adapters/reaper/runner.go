// Package reaper runs the periodic session sweep. In-memory stores need
// it to keep expired sessions from accumulating; Redis-backed stores get
// their index entries tidied as a side effect.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SessionSweeper is the subset of the auth service the reaper needs.
type SessionSweeper interface {
	CleanupExpiredSessions(ctx context.Context) (int, error)
}

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 5 * time.Minute

// Runner sweeps expired sessions on a fixed interval until its context is
// cancelled.
type Runner struct {
	sweeper  SessionSweeper
	interval time.Duration
	logger   *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Sweeper  SessionSweeper
	Interval time.Duration
	Logger   *slog.Logger
}

// NewRunner creates a session reaper.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Sweeper == nil {
		return nil, errors.New("session sweeper is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		sweeper:  opts.Sweeper,
		interval: opts.Interval,
		logger:   opts.Logger,
	}, nil
}

// Run executes the sweep loop until the context is cancelled. One sweep
// runs immediately on start so a restart never defers cleanup by a full
// interval.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting session reaper", "interval", r.interval)

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "session reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Runner) sweep(ctx context.Context) {
	removed, err := r.sweeper.CleanupExpiredSessions(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "session sweep failed", "error", err)
		return
	}
	if removed > 0 {
		r.logger.InfoContext(ctx, "session sweep", "removed", removed)
	}
}
