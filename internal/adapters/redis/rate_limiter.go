package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parishtech/shepherd/internal/ports"
)

const (
	defaultLimitPrefix = "shepherd:ratelimit:"

	// limiterTimeout bounds each Redis round trip. The limiter interface is
	// fire-and-forget, so a slow Redis must not stall the login path.
	limiterTimeout = 2 * time.Second
)

// RateLimiter is a Redis-backed ports.RateLimiter using fixed-window
// counters, so throttle state survives restarts and is shared across
// replicas. On Redis failure it fails open: a throttling outage should not
// lock every account out of login.
type RateLimiter struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger
}

var _ ports.RateLimiter = (*RateLimiter)(nil)

// NewRateLimiter creates a Redis-backed limiter allowing maxAttempts per
// identifier per window.
func NewRateLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		client:      client,
		prefix:      defaultLimitPrefix,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
	}
}

func (l *RateLimiter) key(identifier string) string { return l.prefix + identifier }

// allowScript counts an attempt without ever storing a value past the cap:
// once the counter reaches max the script stops incrementing and just
// denies. A counter whose expire step was ever lost picks its TTL back up
// on the next attempt instead of throttling forever.
var allowScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local allowed = 0
if count < max then
	redis.call('INCR', KEYS[1])
	allowed = 1
end
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return allowed
`)

// Allow records an attempt for the identifier and reports whether it is
// still under the threshold for the current window.
func (l *RateLimiter) Allow(identifier string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), limiterTimeout)
	defer cancel()

	allowed, err := allowScript.Run(ctx, l.client,
		[]string{l.key(identifier)}, l.maxAttempts, l.window.Milliseconds()).Int()
	if err != nil {
		l.logger.Error("rate limiter unavailable, allowing request", "error", err)
		return true
	}
	return allowed == 1
}

// Clear drops the identifier's counter immediately.
func (l *RateLimiter) Clear(identifier string) {
	ctx, cancel := context.WithTimeout(context.Background(), limiterTimeout)
	defer cancel()

	if err := l.client.Del(ctx, l.key(identifier)).Err(); err != nil {
		l.logger.Error("rate limiter clear failed", "identifier", identifier, "error", err)
	}
}
