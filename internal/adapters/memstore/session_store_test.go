package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
)

func newSession(userID uuid.UUID, token string, ttl time.Duration) domainauth.Session {
	now := time.Now()
	return domainauth.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	userID := uuid.New()

	sess := newSession(userID, "tok-1", 30*time.Minute)
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, sess.Token, got.Token)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestSessionStore_GetUnknownToken(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.Get(ctx, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStore_SaveValidation(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	err := store.Save(ctx, newSession(uuid.New(), "", time.Minute))
	assert.True(t, apperrors.IsValidation(err))

	err = store.Save(ctx, newSession(uuid.Nil, "tok", time.Minute))
	assert.True(t, apperrors.IsValidation(err))
}

func TestSessionStore_SaveDuplicateToken(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "dup", time.Minute)))
	err := store.Save(ctx, newSession(uuid.New(), "dup", time.Minute))
	assert.True(t, apperrors.IsConflict(err))
}

func TestSessionStore_NegativeTTLIsImmediatelyExpired(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	sess := newSession(uuid.New(), "dead", -time.Second)
	require.NoError(t, store.Save(ctx, sess))

	_, err := store.Get(ctx, "dead")
	require.Error(t, err)
	assert.True(t, apperrors.IsExpired(err))
}

func TestSessionStore_Refresh(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "tok", time.Minute)))

	extended := time.Now().Add(2 * time.Hour)
	got, err := store.Refresh(ctx, "tok", extended)
	require.NoError(t, err)
	assert.WithinDuration(t, extended, got.ExpiresAt, time.Second)

	// Lookup observes the new expiry.
	got, err = store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.WithinDuration(t, extended, got.ExpiresAt, time.Second)
}

func TestSessionStore_RefreshExpired(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "dead", -time.Second)))

	_, err := store.Refresh(ctx, "dead", time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.True(t, apperrors.IsExpired(err))
}

func TestSessionStore_DeleteTwiceErrors(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "tok", time.Minute)))

	require.NoError(t, store.Delete(ctx, "tok"))

	err := store.Delete(ctx, "tok")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.Get(ctx, "tok")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStore_DeleteAllForUser(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, store.Save(ctx, newSession(alice, "a1", time.Minute)))
	require.NoError(t, store.Save(ctx, newSession(alice, "a2", time.Minute)))
	require.NoError(t, store.Save(ctx, newSession(bob, "b1", time.Minute)))

	count, err := store.DeleteAllForUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Alice's sessions are gone; Bob's is untouched.
	_, err = store.Get(ctx, "a1")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.Get(ctx, "a2")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.Get(ctx, "b1")
	assert.NoError(t, err)

	// No sessions left for alice.
	count, err = store.DeleteAllForUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSessionStore_DeleteAllForUser_NilID(t *testing.T) {
	store := NewSessionStore()

	count, err := store.DeleteAllForUser(context.Background(), uuid.Nil)
	require.Error(t, err)
	assert.Equal(t, 0, count)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "live-1", time.Hour)))
	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "live-2", time.Hour)))
	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "dead-1", -time.Second)))
	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "dead-2", -time.Minute)))

	count, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionStats{Total: 2, Active: 2, Expired: 0}, stats)
}

func TestSessionStore_Stats(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "live", time.Hour)))
	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "dead", -time.Second)))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionStats{Total: 2, Active: 1, Expired: 1}, stats)
}

func TestSessionStore_ExpiryUsesInjectedClock(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	base := time.Now()
	store.SetNowFunc(func() time.Time { return base })

	sess := domainauth.Session{
		Token:     "tok",
		UserID:    uuid.New(),
		ExpiresAt: base.Add(time.Minute),
		CreatedAt: base,
	}
	require.NoError(t, store.Save(ctx, sess))

	_, err := store.Get(ctx, "tok")
	require.NoError(t, err)

	// Advance past expiry.
	store.SetNowFunc(func() time.Time { return base.Add(2 * time.Minute) })
	_, err = store.Get(ctx, "tok")
	assert.True(t, apperrors.IsExpired(err))
}

func TestSessionStore_ConcurrentSweepAndLookup(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	const live = 50
	for i := range live {
		require.NoError(t, store.Save(ctx, newSession(uuid.New(), "live-"+uuid.NewString(), time.Hour)))
		require.NoError(t, store.Save(ctx, newSession(uuid.New(), "dead-"+uuid.NewString(),
			-time.Duration(i+1)*time.Second)))
	}
	require.NoError(t, store.Save(ctx, newSession(uuid.New(), "probe", time.Hour)))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 100 {
			_, err := store.DeleteExpired(ctx)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for range 100 {
			// The live probe session must always resolve during sweeps.
			_, err := store.Get(ctx, "probe")
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Expired)
	assert.Equal(t, live+1, stats.Active)
}
