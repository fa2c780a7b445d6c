package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/ports"
	"github.com/parishtech/shepherd/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics in checks or
// handlers and converts them into a generic 500 response instead of
// crashing the caller.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteAppError(w, apperrors.Internal("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractBearerToken reads the Authorization header and returns the bearer
// token, or "" when the header is absent, empty, or uses another scheme.
// Absence is not an error; the caller decides how to react.
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	// Header lookup is case-insensitive by construction; the scheme
	// comparison must be as well.
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Decision is the tagged outcome of a single check: either Allow, or Deny
// carrying the error that explains the refusal.
type Decision struct {
	Allowed bool
	Err     error
}

// Allow produces a passing decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny produces a failing decision carrying the given error.
func Deny(err error) Decision { return Decision{Err: err} }

// CheckFunc evaluates one access rule. It may return an enriched request
// (e.g., with the resolved identity attached to its context) so that later
// checks in a chain observe state set by earlier ones.
type CheckFunc func(r *http.Request) (*http.Request, Decision)

// Chain composes checks into one. Checks run strictly in order; the first
// Deny short-circuits the remainder and becomes the chain's result. Each
// check receives the request as left by its predecessor.
func Chain(checks ...CheckFunc) CheckFunc {
	return func(r *http.Request) (*http.Request, Decision) {
		for _, check := range checks {
			next, decision := check(r)
			if !decision.Allowed {
				return r, decision
			}
			if next != nil {
				r = next
			}
		}
		return r, Allow()
	}
}

// Protect wraps an operation with a check. The check runs first; only on
// success does the operation execute, with the check's enriched request.
// On failure a structured error response is written and the operation is
// never invoked.
func Protect(check CheckFunc, op http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enriched, decision := check(r)
		if !decision.Allowed {
			err := decision.Err
			if err == nil {
				err = apperrors.Internal("check denied without error")
			}
			WriteAppError(w, err)
			return
		}
		op.ServeHTTP(w, enriched)
	})
}

// AuthResolver resolves bearer tokens to authenticated identities.
// Satisfied by *service.AuthService.
type AuthResolver interface {
	ResolveToken(ctx context.Context, token string) (*service.AuthContext, error)
}

// Authenticate returns a check that resolves token → session → user and
// attaches the identity to the request context. A missing token denies
// with missing_token; a failed resolution denies with the resolver's
// error (invalid_token, expired, user_deactivated).
func Authenticate(authSvc AuthResolver) CheckFunc {
	return func(r *http.Request) (*http.Request, Decision) {
		token := ExtractBearerToken(r)
		if token == "" {
			return r, Deny(apperrors.MissingToken("authentication required"))
		}

		authCtx, err := authSvc.ResolveToken(r.Context(), token)
		if err != nil {
			return r, Deny(err)
		}

		identity := &Identity{User: &authCtx.User, Session: authCtx.Session}
		return r.WithContext(SetIdentityInContext(r.Context(), identity)), Allow()
	}
}

// RequireLevel returns a check that passes iff the resolved user's role
// meets the required privilege level. It must run after Authenticate; an
// unauthenticated request denies with missing_token.
func RequireLevel(level int) CheckFunc {
	return func(r *http.Request) (*http.Request, Decision) {
		user := UserFromContext(r.Context())
		if user == nil {
			return r, Deny(apperrors.MissingToken("authentication required"))
		}
		if !user.Role.HasPermission(level) {
			return r, Deny(apperrors.InsufficientPermissions("insufficient permissions"))
		}
		return r, Allow()
	}
}

// MemberAccess returns a check that resolves the target member id from the
// {memberID} path segment (or the member_id query parameter as a fallback)
// and passes iff the resolved user may access that member's data. It must
// run after Authenticate.
func MemberAccess() CheckFunc {
	return func(r *http.Request) (*http.Request, Decision) {
		user := UserFromContext(r.Context())
		if user == nil {
			return r, Deny(apperrors.MissingToken("authentication required"))
		}

		raw := r.PathValue("memberID")
		if raw == "" {
			raw = r.URL.Query().Get("member_id")
		}
		memberID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return r, Deny(apperrors.Validation("a numeric member id is required"))
		}

		if !domainauth.CanAccessMemberData(user, memberID) {
			return r, Deny(apperrors.AccessDenied("you may not access this member's data"))
		}
		return r, Allow()
	}
}

// LoginRateLimit returns a check that throttles on the named JSON body
// field before the wrapped operation sees the request, so repeated
// attempts are counted even when the rest of the request is garbage. The
// body is restored for downstream reads. The bucket key combines the field
// name and its value so different endpoints sharing a limiter get
// independent budgets.
func LoginRateLimit(limiter ports.RateLimiter, keyField string) CheckFunc {
	return func(r *http.Request) (*http.Request, Decision) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return r, Deny(apperrors.Validation("unreadable request body"))
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			// Not JSON; nothing to key on. Let the handler reject it.
			return r, Allow()
		}
		value, _ := fields[keyField].(string)
		if value == "" {
			return r, Allow()
		}

		if !limiter.Allow(keyField + ":" + value) {
			// The identifier class is named, never the submitted value.
			return r, Deny(apperrors.RateLimited("too many attempts for this " + keyField))
		}
		return r, Allow()
	}
}

// RateLimitIdentity returns a check that throttles per authenticated
// user under the given scope. It must run after Authenticate. Used for
// sensitive post-login operations like password changes, where the
// attempt budget should follow the account rather than a body field.
func RateLimitIdentity(limiter ports.RateLimiter, scope string) CheckFunc {
	return func(r *http.Request) (*http.Request, Decision) {
		user := UserFromContext(r.Context())
		if user == nil {
			return r, Deny(apperrors.MissingToken("authentication required"))
		}
		if !limiter.Allow(scope + ":" + user.ID.String()) {
			return r, Deny(apperrors.RateLimited("too many attempts, try again later"))
		}
		return r, Allow()
	}
}

// RequireAuth returns a middleware that requires a valid session.
// Unauthenticated requests get a 401 response.
func RequireAuth(authSvc AuthResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return Protect(Authenticate(authSvc), next)
	}
}

// RequireRole returns a middleware that requires a minimum role.
// Unauthenticated requests get 401; authenticated requests below the
// required role get 403.
func RequireRole(authSvc AuthResolver, minRole domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return Protect(Chain(Authenticate(authSvc), RequireLevel(minRole.Level())), next)
	}
}

// RequireMemberAccess returns a middleware that requires the caller to be
// allowed to touch the member record named by the route.
func RequireMemberAccess(authSvc AuthResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return Protect(Chain(Authenticate(authSvc), MemberAccess()), next)
	}
}
