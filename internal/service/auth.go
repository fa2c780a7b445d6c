package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parishtech/shepherd/internal/data/cryptoutil"
	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/ports"
)

// DefaultSessionTTL applies when no TTL is configured or supplied.
const DefaultSessionTTL = 24 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users    ports.UserStore
	Sessions ports.SessionStore
	Limiter  ports.RateLimiter

	SessionTTL     time.Duration
	BcryptCost     int
	PasswordPolicy cryptoutil.PasswordPolicy
	Logger         *slog.Logger
}

// AuthService orchestrates login, session resolution, and credential
// management by coordinating the user store, session store, and limiter.
type AuthService struct {
	users    ports.UserStore
	sessions ports.SessionStore
	limiter  ports.RateLimiter

	sessionTTL time.Duration
	bcryptCost int
	policy     cryptoutil.PasswordPolicy
	logger     *slog.Logger

	// dummyHash is compared against when the username is unknown so the
	// failure takes as long as a wrong-password failure.
	dummyHash string

	now func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.BcryptCost <= 0 {
		opts.BcryptCost = cryptoutil.DefaultBcryptCost
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	dummyHash, err := cryptoutil.HashPassword("shepherd-timing-equalizer", opts.BcryptCost)
	if err != nil {
		// Only reachable if bcrypt itself is broken; an empty dummy hash
		// still compares (and fails) safely.
		opts.Logger.Error("precompute dummy hash failed", "error", err)
	}

	return &AuthService{
		users:      opts.Users,
		sessions:   opts.Sessions,
		limiter:    opts.Limiter,
		sessionTTL: opts.SessionTTL,
		bcryptCost: opts.BcryptCost,
		policy:     opts.PasswordPolicy,
		logger:     opts.Logger,
		dummyHash:  dummyHash,
		now:        time.Now,
	}
}

// LoginInput carries submitted credentials.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult contains the authenticated user and their new session.
type LoginResult struct {
	Session domainauth.Session
	User    domainauth.User
}

// Login throttles, verifies credentials, maintains the failed-login
// counter, and issues a session. All credential failures surface as
// invalid_credentials so callers cannot probe for existing usernames.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if input.Username == "" || input.Password == "" {
		return nil, apperrors.Validation("username and password are required")
	}

	// Throttle before touching credentials so brute-force attempts are
	// counted even for guessed usernames.
	if !s.limiter.Allow(input.Username) {
		return nil, apperrors.RateLimited("too many login attempts for this account")
	}

	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		if apperrors.IsNotFound(err) || apperrors.IsUserNotFound(err) {
			// Burn a bcrypt comparison so unknown-user failures are not
			// measurably faster than wrong-password failures.
			cryptoutil.VerifyPassword(input.Password, s.dummyHash)
			return nil, apperrors.InvalidCredentials("invalid username or password")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "look up user")
	}

	if !user.Active {
		cryptoutil.VerifyPassword(input.Password, s.dummyHash)
		return nil, apperrors.InvalidCredentials("invalid username or password")
	}

	if !cryptoutil.VerifyPassword(input.Password, user.PasswordHash) {
		if _, failErr := s.users.RecordLoginFailure(ctx, user.ID); failErr != nil {
			s.logger.ErrorContext(ctx, "record login failure", "error", failErr)
		}
		return nil, apperrors.InvalidCredentials("invalid username or password")
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "record login success", "error", err)
	}

	sess, err := s.CreateSession(ctx, user.ID, nil)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Session: sess, User: user}, nil
}

// CreateSession issues a session for an existing, active user. A nil ttl
// uses the configured default. Zero or negative TTLs are honored and
// produce a session that is already expired, which expiry tests rely on.
func (s *AuthService) CreateSession(ctx context.Context, userID uuid.UUID, ttl *time.Duration) (domainauth.Session, error) {
	if userID == uuid.Nil {
		return domainauth.Session{}, apperrors.Validation("user id is required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) || apperrors.IsUserNotFound(err) {
			return domainauth.Session{}, apperrors.UserNotFound("user not found")
		}
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "look up user")
	}
	if !user.Active {
		return domainauth.Session{}, apperrors.UserNotFound("user not found")
	}

	token, err := cryptoutil.GenerateToken()
	if err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate session token")
	}

	effectiveTTL := s.sessionTTL
	if ttl != nil {
		effectiveTTL = *ttl
	}

	now := s.now()
	sess := domainauth.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(effectiveTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// AuthContext is the resolved identity behind a bearer token.
type AuthContext struct {
	Session domainauth.Session
	User    domainauth.User
}

// ResolveToken maps a bearer token to its session and owning user.
// Unknown tokens fail with invalid_token, lapsed ones with expired, and a
// deactivated owner with user_deactivated; no session data leaks in any
// failure case. Lapsed sessions are cleaned up opportunistically.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*AuthContext, error) {
	if token == "" {
		return nil, apperrors.InvalidToken("invalid or expired token")
	}

	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		switch {
		case apperrors.IsNotFound(err):
			return nil, apperrors.InvalidToken("invalid or expired token")
		case apperrors.IsExpired(err):
			if delErr := s.sessions.Delete(ctx, token); delErr != nil && !apperrors.IsNotFound(delErr) {
				s.logger.ErrorContext(ctx, "delete expired session", "error", delErr)
			}
			return nil, apperrors.Expired("invalid or expired token")
		default:
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "get session")
		}
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) || apperrors.IsUserNotFound(err) {
			return nil, apperrors.InvalidToken("invalid or expired token")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "look up session user")
	}
	if !user.Active {
		return nil, apperrors.UserDeactivated("account is deactivated")
	}

	return &AuthContext{Session: sess, User: user}, nil
}

// RefreshSession extends a session's expiry forward from now. A nil ttl
// uses the configured default. Invalid or expired tokens fail the same way
// as ResolveToken.
func (s *AuthService) RefreshSession(ctx context.Context, token string, ttl *time.Duration) (domainauth.Session, error) {
	authCtx, err := s.ResolveToken(ctx, token)
	if err != nil {
		return domainauth.Session{}, err
	}

	effectiveTTL := s.sessionTTL
	if ttl != nil {
		effectiveTTL = *ttl
	}

	sess, err := s.sessions.Refresh(ctx, authCtx.Session.Token, s.now().Add(effectiveTTL))
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("refresh session: %w", err)
	}
	return sess, nil
}

// Logout invalidates a session. Logging out a token that is already gone
// is reported as an error, not a crash.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.InvalidToken("invalid or expired token")
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.InvalidToken("invalid or expired token")
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// LogoutAll invalidates every session for a user and returns the count.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperrors.Validation("user id is required")
	}
	count, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for user: %w", err)
	}
	return count, nil
}

// ChangePassword verifies the current password, enforces the strength
// policy on the new one, stores the new hash, and invalidates every
// session for the user so stolen tokens die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if userID == uuid.Nil {
		return apperrors.Validation("user id is required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) || apperrors.IsUserNotFound(err) {
			return apperrors.UserNotFound("user not found")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "look up user")
	}

	if !cryptoutil.VerifyPassword(current, user.PasswordHash) {
		return apperrors.InvalidCredentials("current password is incorrect")
	}
	if err := s.policy.Validate(next); err != nil {
		return err
	}

	hash, err := cryptoutil.HashPassword(next, s.bcryptCost)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "hash new password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	count, err := s.sessions.DeleteAllForUser(ctx, user.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "invalidate sessions after password change",
			"error", err)
		return nil
	}
	s.logger.InfoContext(ctx, "password changed",
		"user_id", user.ID,
		"sessions_invalidated", count)
	return nil
}

// ClearRateLimit resets an identifier's login-attempt budget. Admin unblock.
func (s *AuthService) ClearRateLimit(identifier string) {
	s.limiter.Clear(identifier)
}

// SessionStats returns point-in-time session counts.
func (s *AuthService) SessionStats(ctx context.Context) (domainauth.SessionStats, error) {
	return s.sessions.Stats(ctx)
}

// CleanupExpiredSessions sweeps lapsed sessions and returns the count.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx)
}
