package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	"github.com/parishtech/shepherd/internal/ports"
	"github.com/parishtech/shepherd/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth    *service.AuthService
	Limiter ports.RateLimiter
	// Optional: a downstream handler for member records. Routes under
	// /members/{memberID} are gated by the member-access check before
	// this handler runs.
	Members http.Handler
	Logger  *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{Svc: services.Auth}
	adminHandlers := &AdminHandlers{Svc: services.Auth}

	authed := Authenticate(services.Auth)
	adminOnly := Chain(authed, RequireLevel(domainauth.LevelAdmin))

	mux.Handle("POST /auth/login", http.HandlerFunc(authHandlers.Login))
	mux.Handle("POST /auth/logout", Protect(authed, http.HandlerFunc(authHandlers.Logout)))
	mux.Handle("POST /auth/logout-all", Protect(authed, http.HandlerFunc(authHandlers.LogoutAll)))
	mux.Handle("POST /auth/refresh", Protect(authed, http.HandlerFunc(authHandlers.Refresh)))
	mux.Handle("GET /auth/me", Protect(authed, http.HandlerFunc(authHandlers.Me)))

	// Change-password carries its own per-account throttle so a stolen
	// session cannot brute-force the current password unchecked. Login
	// throttling lives in the service itself; wiring LoginRateLimit on
	// /auth/login as well would double-count each attempt.
	changePassword := Chain(authed, RateLimitIdentity(services.Limiter, "pwchange"))
	mux.Handle("POST /auth/change-password", Protect(changePassword, http.HandlerFunc(authHandlers.ChangePassword)))

	mux.Handle("GET /admin/sessions/stats", Protect(adminOnly, http.HandlerFunc(adminHandlers.SessionStats)))
	mux.Handle("POST /admin/sessions/cleanup", Protect(adminOnly, http.HandlerFunc(adminHandlers.CleanupSessions)))
	mux.Handle(
		"DELETE /admin/users/{userID}/sessions",
		Protect(adminOnly, http.HandlerFunc(adminHandlers.InvalidateUserSessions)),
	)
	mux.Handle("POST /admin/rate-limits/clear", Protect(adminOnly, http.HandlerFunc(adminHandlers.ClearRateLimit)))

	if services.Members != nil {
		memberGate := Chain(authed, MemberAccess())
		mux.Handle("/members/{memberID}", Protect(memberGate, services.Members))
		mux.Handle("/members/{memberID}/", Protect(memberGate, services.Members))
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Recover(logger)(Logging(logger)(mux))
}
