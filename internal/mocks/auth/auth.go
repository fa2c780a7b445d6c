package auth

// Package auth contains simple hand-written test doubles for auth ports.
// In-memory store implementations live in internal/adapters/memstore and
// serve both dev mode and tests; only pure doubles belong here.

import (
	"github.com/parishtech/shepherd/internal/ports"
)

var _ ports.RateLimiter = (*UnlimitedRateLimiter)(nil)

// UnlimitedRateLimiter never throttles. For tests that are not about
// throttling.
type UnlimitedRateLimiter struct{}

func (UnlimitedRateLimiter) Allow(string) bool { return true }
func (UnlimitedRateLimiter) Clear(string)      {}
