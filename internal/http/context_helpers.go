package httpx

import (
	"context"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across
// packages. Centralized here so all handlers and checks use the same key.
type identityKey struct{}

// Identity is the request-scoped authenticated principal. Authenticate
// stores it; later checks and the protected operation read it.
type Identity struct {
	User    *domainauth.User
	Session domainauth.Session
}

// SetIdentityInContext returns a child context carrying the identity.
// If identity is nil, the original ctx is returned unchanged.
func SetIdentityInContext(ctx context.Context, identity *Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity from context and a boolean
// indicating presence.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok && id != nil {
		return id, true
	}
	return nil, false
}

// UserFromContext retrieves the authenticated user, or nil when the
// request is unauthenticated.
func UserFromContext(ctx context.Context) *domainauth.User {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.User
	}
	return nil
}
