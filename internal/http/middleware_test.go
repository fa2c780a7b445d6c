package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/service"
	"github.com/parishtech/shepherd/internal/service/ratelimit"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "no header", header: "", want: ""},
		{name: "standard", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "mixed case scheme", header: "BeArEr abc123", want: "abc123"},
		{name: "surrounding whitespace", header: "Bearer   abc123  ", want: "abc123"},
		{name: "wrong scheme", header: "Basic abc123", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
		{name: "scheme with empty token", header: "Bearer   ", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			assert.Equal(t, tc.want, ExtractBearerToken(req))
		})
	}

	assert.Equal(t, "", ExtractBearerToken(nil))
}

func TestChainRunsInOrderAndShortCircuits(t *testing.T) {
	var order []string
	record := func(name string, d Decision) CheckFunc {
		return func(r *http.Request) (*http.Request, Decision) {
			order = append(order, name)
			return r, d
		}
	}

	chain := Chain(
		record("first", Allow()),
		record("second", Deny(apperrors.AccessDenied("nope"))),
		record("third", Allow()),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, decision := chain(req)

	assert.False(t, decision.Allowed)
	assert.Equal(t, apperrors.ErrCodeAccessDenied, apperrors.GetCode(decision.Err))
	assert.Equal(t, []string{"first", "second"}, order, "third check must not run after a deny")
}

func TestChainLaterChecksSeeEarlierContext(t *testing.T) {
	user := &domainauth.User{Username: "seen", Role: domainauth.RolePastor}
	setUser := func(r *http.Request) (*http.Request, Decision) {
		ctx := SetIdentityInContext(r.Context(), &Identity{User: user})
		return r.WithContext(ctx), Allow()
	}
	var observed *domainauth.User
	readUser := func(r *http.Request) (*http.Request, Decision) {
		observed = UserFromContext(r.Context())
		return r, Allow()
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, decision := Chain(setUser, readUser)(req)

	require.True(t, decision.Allowed)
	require.NotNil(t, observed)
	assert.Equal(t, "seen", observed.Username)
}

func TestProtectDeniedOperationNeverRuns(t *testing.T) {
	ran := false
	op := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ran = true })
	deny := func(r *http.Request) (*http.Request, Decision) {
		return r, Deny(apperrors.InsufficientPermissions("no"))
	}

	rec := httptest.NewRecorder()
	Protect(deny, op).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, ran)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_permissions")
}

func TestProtectAllowedOperationSeesEnrichedRequest(t *testing.T) {
	var got *domainauth.User
	op := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserFromContext(r.Context())
	})
	attach := func(r *http.Request) (*http.Request, Decision) {
		ctx := SetIdentityInContext(r.Context(), &Identity{User: &domainauth.User{Username: "enriched"}})
		return r.WithContext(ctx), Allow()
	}

	rec := httptest.NewRecorder()
	Protect(attach, op).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.Equal(t, "enriched", got.Username)
}

type stubResolver struct {
	authCtx *service.AuthContext
	err     error
	gotTok  string
}

func (s *stubResolver) ResolveToken(_ context.Context, token string) (*service.AuthContext, error) {
	s.gotTok = token
	if s.err != nil {
		return nil, s.err
	}
	return s.authCtx, nil
}

func TestAuthenticateCheck(t *testing.T) {
	t.Run("missing token denies without calling resolver", func(t *testing.T) {
		resolver := &stubResolver{err: apperrors.Internal("should not be called")}
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		_, decision := Authenticate(resolver)(req)

		assert.False(t, decision.Allowed)
		assert.Equal(t, apperrors.ErrCodeMissingToken, apperrors.GetCode(decision.Err))
		assert.Empty(t, resolver.gotTok)
	})

	t.Run("resolver error propagates", func(t *testing.T) {
		resolver := &stubResolver{err: apperrors.Expired("session expired")}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer stale")

		_, decision := Authenticate(resolver)(req)

		assert.False(t, decision.Allowed)
		assert.Equal(t, apperrors.ErrCodeExpired, apperrors.GetCode(decision.Err))
		assert.Equal(t, "stale", resolver.gotTok)
	})

	t.Run("success attaches identity", func(t *testing.T) {
		resolver := &stubResolver{authCtx: &service.AuthContext{
			User:    domainauth.User{Username: "mary.member", Role: domainauth.RoleMember},
			Session: domainauth.Session{Token: "tok"},
		}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")

		enriched, decision := Authenticate(resolver)(req)

		require.True(t, decision.Allowed)
		identity, ok := IdentityFromContext(enriched.Context())
		require.True(t, ok)
		assert.Equal(t, "mary.member", identity.User.Username)
		assert.Equal(t, "tok", identity.Session.Token)
	})
}

func TestRequireLevel(t *testing.T) {
	withUser := func(role domainauth.Role) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := SetIdentityInContext(req.Context(), &Identity{User: &domainauth.User{Role: role}})
		return req.WithContext(ctx)
	}

	t.Run("no identity denies with missing token", func(t *testing.T) {
		_, decision := RequireLevel(domainauth.LevelMember)(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, apperrors.ErrCodeMissingToken, apperrors.GetCode(decision.Err))
	})

	t.Run("below required level denies", func(t *testing.T) {
		_, decision := RequireLevel(domainauth.LevelAdmin)(withUser(domainauth.RolePastor))
		assert.False(t, decision.Allowed)
		assert.Equal(t, apperrors.ErrCodeInsufficientPermissions, apperrors.GetCode(decision.Err))
	})

	t.Run("unknown role denies even at member level", func(t *testing.T) {
		_, decision := RequireLevel(domainauth.LevelMember)(withUser(domainauth.Role("intruder")))
		assert.False(t, decision.Allowed)
	})

	t.Run("at or above required level allows", func(t *testing.T) {
		for _, role := range []domainauth.Role{domainauth.RolePastor, domainauth.RoleAdmin} {
			_, decision := RequireLevel(domainauth.LevelPastor)(withUser(role))
			assert.True(t, decision.Allowed, "role %s", role)
		}
	})
}

func TestMemberAccessCheck(t *testing.T) {
	linked := int64(42)
	memberUser := &domainauth.User{Role: domainauth.RoleMember, MemberID: &linked}

	request := func(user *domainauth.User, target string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/members/"+target, nil)
		req.SetPathValue("memberID", target)
		if user != nil {
			req = req.WithContext(SetIdentityInContext(req.Context(), &Identity{User: user}))
		}
		return req
	}

	t.Run("member reaches own record", func(t *testing.T) {
		_, decision := MemberAccess()(request(memberUser, "42"))
		assert.True(t, decision.Allowed)
	})

	t.Run("member denied on another record", func(t *testing.T) {
		_, decision := MemberAccess()(request(memberUser, "7"))
		assert.False(t, decision.Allowed)
		assert.Equal(t, apperrors.ErrCodeAccessDenied, apperrors.GetCode(decision.Err))
	})

	t.Run("pastor reaches any record", func(t *testing.T) {
		pastor := &domainauth.User{Role: domainauth.RolePastor}
		_, decision := MemberAccess()(request(pastor, "7"))
		assert.True(t, decision.Allowed)
	})

	t.Run("non-numeric member id is a validation failure", func(t *testing.T) {
		_, decision := MemberAccess()(request(memberUser, "abc"))
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(decision.Err))
	})

	t.Run("query parameter fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reports?member_id=42", nil)
		req = req.WithContext(SetIdentityInContext(req.Context(), &Identity{User: memberUser}))
		_, decision := MemberAccess()(req)
		assert.True(t, decision.Allowed)
	})

	t.Run("unauthenticated denies with missing token", func(t *testing.T) {
		_, decision := MemberAccess()(request(nil, "42"))
		assert.Equal(t, apperrors.ErrCodeMissingToken, apperrors.GetCode(decision.Err))
	})
}

func TestLoginRateLimitCheck(t *testing.T) {
	newRequest := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	}

	t.Run("throttles the named field value", func(t *testing.T) {
		check := LoginRateLimit(ratelimit.New(2, time.Minute), "username")

		for i := 0; i < 2; i++ {
			_, decision := check(newRequest(`{"username":"mary","password":"x"}`))
			require.True(t, decision.Allowed, "attempt %d", i+1)
		}
		_, decision := check(newRequest(`{"username":"mary","password":"x"}`))
		assert.False(t, decision.Allowed)
		assert.Equal(t, apperrors.ErrCodeRateLimited, apperrors.GetCode(decision.Err))
		// The denial names the field, never the submitted value.
		assert.NotContains(t, decision.Err.Error(), "mary")

		_, decision = check(newRequest(`{"username":"other","password":"x"}`))
		assert.True(t, decision.Allowed, "distinct identifier has its own budget")
	})

	t.Run("body is restored for the handler", func(t *testing.T) {
		check := LoginRateLimit(ratelimit.New(5, time.Minute), "username")
		req := newRequest(`{"username":"mary","password":"secret"}`)

		enriched, decision := check(req)
		require.True(t, decision.Allowed)

		replay, err := io.ReadAll(enriched.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"username":"mary","password":"secret"}`, string(replay))
	})

	t.Run("non-json and missing-field bodies pass through", func(t *testing.T) {
		check := LoginRateLimit(ratelimit.New(1, time.Minute), "username")

		_, decision := check(newRequest(`not json at all`))
		assert.True(t, decision.Allowed)

		_, decision = check(newRequest(`{"password":"x"}`))
		assert.True(t, decision.Allowed)
	})
}

func TestRecoverConvertsPanicTo500(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("storage exploded")
	})
	rec := httptest.NewRecorder()

	Recover(discardLogger())(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal")
	assert.NotContains(t, rec.Body.String(), "storage exploded")
}

func TestLoggingPreservesResponse(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	rec := httptest.NewRecorder()

	var buf bytes.Buffer
	logger := newBufferLogger(&buf)
	Logging(logger)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
	assert.Contains(t, buf.String(), "/teapot")
	assert.Contains(t, buf.String(), "418")
}
