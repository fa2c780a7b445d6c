package ratelimit

// Package ratelimit implements in-memory attempt throttling keyed by an
// arbitrary identifier (a username on the login path, or a composite key
// for other sensitive endpoints). Buckets are independent: exhausting one
// identifier's budget never affects another's.

import (
	"sync"
	"time"

	"github.com/parishtech/shepherd/internal/ports"
)

// Compile-time conformance to the rate limiter port.
var _ ports.RateLimiter = (*Limiter)(nil)

const (
	// DefaultMaxAttempts allows 5 attempts per window.
	DefaultMaxAttempts = 5
	// DefaultWindow is the attempt-counting window length.
	DefaultWindow = 15 * time.Minute
)

type bucket struct {
	count       int
	windowStart time.Time
}

// Limiter counts attempts per identifier inside a rolling window. All
// bucket mutations happen under one mutex, so window rollover is atomic
// with respect to concurrent Allow calls: no double-counting, no lost
// increments.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// New creates a limiter with the given policy. Non-positive values fall
// back to the defaults.
func New(maxAttempts int, window time.Duration) *Limiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// SetNowFunc overrides the limiter's clock. Test hook.
func (l *Limiter) SetNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow records an attempt for the identifier and reports whether it stays
// under the threshold for the current window. Once the cap is reached,
// further calls in the same window return false without counting past it.
// A bucket whose window has elapsed resets before counting.
func (l *Limiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[identifier]
	if b == nil {
		b = &bucket{windowStart: now}
		l.buckets[identifier] = b
	} else if now.Sub(b.windowStart) >= l.window {
		b.count = 0
		b.windowStart = now
	}

	if b.count >= l.maxAttempts {
		return false
	}
	b.count++
	return true
}

// Clear resets the identifier's bucket immediately, independent of window
// timing. Used for administrative unblock.
func (l *Limiter) Clear(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, identifier)
}

// Remaining reports how many attempts the identifier has left in its
// current window. A fresh or rolled-over bucket has the full budget.
func (l *Limiter) Remaining(identifier string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[identifier]
	if b == nil || l.now().Sub(b.windowStart) >= l.window {
		return l.maxAttempts
	}
	if b.count >= l.maxAttempts {
		return 0
	}
	return l.maxAttempts - b.count
}
