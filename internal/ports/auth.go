package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
)

// SessionStore persists and retrieves sessions. Stores own existence and
// expiry; the owning user's active flag is the service layer's concern.
// Implementations must be safe for concurrent use: a lookup racing a sweep
// must never observe a half-deleted record.
type SessionStore interface {
	// Save persists a new session keyed by its token. Saving an already
	// expired session is allowed; lookups will report it as expired.
	Save(ctx context.Context, sess domainauth.Session) error

	// Get returns the session for a token. It fails with a not_found error
	// for unknown or empty tokens and an expired error for lapsed sessions;
	// neither case returns session data.
	Get(ctx context.Context, token string) (domainauth.Session, error)

	// Refresh extends a session's expiry to the given instant and returns
	// the updated record. It fails the same way as Get for unknown or
	// expired tokens.
	Refresh(ctx context.Context, token string, expiresAt time.Time) (domainauth.Session, error)

	// Delete removes a session. A second call for the same token fails with
	// a not_found error rather than succeeding silently.
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser removes every session owned by the user and returns
	// how many were removed.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error)

	// DeleteExpired sweeps lapsed sessions and returns how many were removed.
	DeleteExpired(ctx context.Context) (int, error)

	// Stats returns point-in-time session counts for observability.
	Stats(ctx context.Context) (domainauth.SessionStats, error)
}

// UserStore is the user lookup/persistence provider consumed by the auth
// core. Account management at large is out of scope; only the operations
// the login and lockout paths need are required here.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (domainauth.User, error)
	FindByUsername(ctx context.Context, username string) (domainauth.User, error)

	// Create inserts a user record. Duplicate usernames or emails fail with
	// a conflict error.
	Create(ctx context.Context, u domainauth.User) (domainauth.User, error)

	// RecordLoginFailure increments the failed-login counter and returns
	// the new count.
	RecordLoginFailure(ctx context.Context, id uuid.UUID) (int, error)

	// RecordLoginSuccess resets the failed-login counter and stamps the
	// last-login time.
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// Deactivate clears the active flag; existing sessions become unusable
	// on their next lookup.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// RateLimiter bounds attempts per identifier inside a rolling window.
// Checks sit on the login hot path, so no context is taken; networked
// implementations bound their own timeouts.
type RateLimiter interface {
	// Allow records an attempt for the identifier and reports whether it is
	// still under the threshold for the current window. Once the threshold
	// is hit, further calls in the window return false.
	Allow(identifier string) bool

	// Clear resets the identifier's bucket immediately, independent of
	// window timing.
	Clear(identifier string)
}
