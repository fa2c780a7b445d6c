package reaper

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) CleanupExpiredSessions(context.Context) (int, error) {
	s.calls.Add(1)
	return 3, s.err
}

func TestNewRunnerRequiresSweeper(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	assert.Error(t, err)
}

func TestRunnerSweepsImmediatelyAndOnTicks(t *testing.T) {
	sweeper := &countingSweeper{}
	runner, err := NewRunner(RunnerOptions{
		Sweeper:  sweeper,
		Interval: 5 * time.Millisecond,
		Logger:   slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err = runner.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, sweeper.calls.Load(), int32(2), "must sweep on start and at least once on tick")
}

func TestRunnerKeepsGoingAfterSweepError(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("store down")}
	runner, err := NewRunner(RunnerOptions{
		Sweeper:  sweeper,
		Interval: 5 * time.Millisecond,
		Logger:   slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_ = runner.Run(ctx)
	assert.GreaterOrEqual(t, sweeper.calls.Load(), int32(2), "errors must not stop the loop")
}
