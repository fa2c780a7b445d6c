package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishtech/shepherd/internal/testutil"
)

func TestRateLimiterThreshold(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	limiter := NewRateLimiter(client, 3, time.Minute, nil)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("alice"), "attempt %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow("alice"))
	assert.False(t, limiter.Allow("alice"))

	t.Run("identifiers are isolated", func(t *testing.T) {
		assert.True(t, limiter.Allow("bob"))
	})
}

func TestRateLimiterCounterNeverExceedsCap(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	limiter := NewRateLimiter(client, 3, time.Minute, nil)

	for i := 0; i < 10; i++ {
		limiter.Allow("frank")
	}

	count, err := client.Get(context.Background(), defaultLimitPrefix+"frank").Int()
	require.NoError(t, err)
	assert.Equal(t, 3, count, "denied attempts must not grow the stored counter")
}

func TestRateLimiterClear(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	limiter := NewRateLimiter(client, 2, time.Minute, nil)

	require.True(t, limiter.Allow("carol"))
	require.True(t, limiter.Allow("carol"))
	require.False(t, limiter.Allow("carol"))

	limiter.Clear("carol")
	assert.True(t, limiter.Allow("carol"))
}

func TestRateLimiterWindowRollover(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	limiter := NewRateLimiter(client, 1, 100*time.Millisecond, nil)

	require.True(t, limiter.Allow("dave"))
	require.False(t, limiter.Allow("dave"))

	time.Sleep(150 * time.Millisecond)
	assert.True(t, limiter.Allow("dave"), "counter should evaporate with the window")
}

func TestRateLimiterCounterGetsTTL(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	limiter := NewRateLimiter(client, 5, time.Minute, nil)

	require.True(t, limiter.Allow("erin"))

	ttl, err := client.TTL(context.Background(), defaultLimitPrefix+"erin").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "counter key must carry an expiry")
	assert.LessOrEqual(t, ttl, time.Minute)
}
