package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parishtech/shepherd/internal/adapters/memstore"
	"github.com/parishtech/shepherd/internal/data/cryptoutil"
	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	"github.com/parishtech/shepherd/internal/service"
	"github.com/parishtech/shepherd/internal/service/ratelimit"
)

const testPassword = "Correct1Horse"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

type routerFixture struct {
	handler http.Handler
	svc     *service.AuthService
	users   *memstore.UserStore
	limiter *ratelimit.Limiter

	admin  domainauth.User
	pastor domainauth.User
	member domainauth.User
}

// newRouterFixture builds a fully wired router over in-memory stores with
// three seeded users. The member user is linked to member record 42.
func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	users := memstore.NewUserStore()
	memberID := int64(42)
	admin := memstore.MustSeedUser(users, memstore.SeedUserParams{
		Username: "alice.admin", Password: testPassword, Role: domainauth.RoleAdmin,
	})
	pastor := memstore.MustSeedUser(users, memstore.SeedUserParams{
		Username: "paul.pastor", Password: testPassword, Role: domainauth.RolePastor,
	})
	member := memstore.MustSeedUser(users, memstore.SeedUserParams{
		Username: "mary.member", Password: testPassword, Role: domainauth.RoleMember, MemberID: &memberID,
	})

	limiter := ratelimit.New(5, time.Minute)
	svc := service.NewAuthService(service.AuthServiceOptions{
		Users:          users,
		Sessions:       memstore.NewSessionStore(),
		Limiter:        limiter,
		BcryptCost:     memstore.SeedBcryptCost,
		PasswordPolicy: cryptoutil.PasswordPolicy{MinLength: 8},
		Logger:         slog.New(slog.DiscardHandler),
	})

	handler := NewRouter(RouterServices{
		Auth:    svc,
		Limiter: limiter,
		Members: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteJSON(w, http.StatusOK, map[string]string{"member": r.PathValue("memberID")})
		}),
		Logger: slog.New(slog.DiscardHandler),
	})

	return &routerFixture{
		handler: handler,
		svc:     svc,
		users:   users,
		limiter: limiter,
		admin:   admin,
		pastor:  pastor,
		member:  member,
	}
}

// do performs one request against the router and decodes the JSON body
// into a generic map.
func (f *routerFixture) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()

	f.handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), "body: %s", rec.Body.String())
	}
	return rec.Code, decoded
}

// login authenticates the given username and returns the session token.
func (f *routerFixture) login(t *testing.T, username string) string {
	t.Helper()

	status, body := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, status, "login for %s: %v", username, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}
