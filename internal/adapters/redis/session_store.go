package redis

// Package redis provides Redis-backed adapters for multi-process
// deployments. Session records are stored as JSON values with a TTL
// slightly past their expiry, plus a per-user set index so bulk
// invalidation does not need a full keyspace scan.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/ports"
)

const (
	defaultSessionPrefix = "shepherd:session:"
	defaultUserPrefix    = "shepherd:usersessions:"

	// expiredGrace keeps lapsed sessions around briefly so lookups can
	// distinguish "expired" from "never existed". After the grace the key
	// evaporates and lookups report not found, which maps to the same
	// client-visible failure.
	expiredGrace = time.Hour

	scanBatch = 200
)

// SessionStore is a Redis-backed ports.SessionStore for production use.
type SessionStore struct {
	client        redis.UniversalClient
	sessionPrefix string
	userPrefix    string
	now           func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{
		client:        client,
		sessionPrefix: defaultSessionPrefix,
		userPrefix:    defaultUserPrefix,
		now:           time.Now,
	}
}

// SetNowFunc replaces the clock. Test hook.
func (s *SessionStore) SetNowFunc(now func() time.Time) {
	s.now = now
}

func (s *SessionStore) sessionKey(token string) string { return s.sessionPrefix + token }

func (s *SessionStore) userKey(id uuid.UUID) string { return s.userPrefix + id.String() }

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.Token == "" {
		return apperrors.Validation("session token is required")
	}
	if sess.UserID == uuid.Nil {
		return apperrors.Validation("session user id is required")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := sess.ExpiresAt.Sub(s.now()) + expiredGrace
	if ttl <= 0 {
		// Lapsed past the grace window before it was ever stored; there is
		// nothing a lookup could usefully report.
		return nil
	}

	stored, err := s.client.SetNX(ctx, s.sessionKey(sess.Token), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if !stored {
		return apperrors.Conflict("session token already exists")
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, s.userKey(sess.UserID), sess.Token)
	s.extendUserIndex(ctx, pipe, sess.UserID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis index session: %w", err)
	}
	return nil
}

// extendUserIndex keeps the per-user token index alive at least as long as
// the user's longest-lived session. NX seeds a TTL on a fresh index; GT only
// ever lengthens an existing one, so storing a short-lived session can never
// cut the index out from under a longer-lived sibling and strand it from
// bulk invalidation.
func (s *SessionStore) extendUserIndex(ctx context.Context, pipe redis.Pipeliner, userID uuid.UUID, ttl time.Duration) {
	key := s.userKey(userID)
	pipe.ExpireNX(ctx, key, ttl)
	pipe.ExpireGT(ctx, key, ttl)
}

func (s *SessionStore) Get(ctx context.Context, token string) (domainauth.Session, error) {
	sess, err := s.fetch(ctx, token)
	if err != nil {
		return domainauth.Session{}, err
	}
	if sess.ExpiredAt(s.now()) {
		return domainauth.Session{}, apperrors.Expired("session has expired")
	}
	return sess, nil
}

func (s *SessionStore) Refresh(
	ctx context.Context,
	token string,
	expiresAt time.Time,
) (domainauth.Session, error) {
	sess, err := s.Get(ctx, token)
	if err != nil {
		return domainauth.Session{}, err
	}

	sess.ExpiresAt = expiresAt
	data, err := json.Marshal(sess)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("marshal session: %w", err)
	}

	ttl := expiresAt.Sub(s.now()) + expiredGrace
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(token), data, ttl)
	s.extendUserIndex(ctx, pipe, sess.UserID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return domainauth.Session{}, fmt.Errorf("redis refresh: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	sess, err := s.fetch(ctx, token)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.sessionKey(token))
	pipe.SRem(ctx, s.userKey(sess.UserID), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperrors.Validation("user id is required")
	}

	tokens, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis read user index: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, s.sessionKey(token))
	}

	removed, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete sessions: %w", err)
	}
	if err := s.client.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return int(removed), fmt.Errorf("redis drop user index: %w", err)
	}
	return int(removed), nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	removed := 0
	err := s.scanSessions(ctx, func(token string, sess domainauth.Session) error {
		if !sess.ExpiredAt(s.now()) {
			return nil
		}
		pipe := s.client.Pipeline()
		pipe.Del(ctx, s.sessionKey(token))
		pipe.SRem(ctx, s.userKey(sess.UserID), token)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis sweep session: %w", err)
		}
		removed++
		return nil
	})
	return removed, err
}

func (s *SessionStore) Stats(ctx context.Context) (domainauth.SessionStats, error) {
	var stats domainauth.SessionStats
	err := s.scanSessions(ctx, func(_ string, sess domainauth.Session) error {
		stats.Total++
		if sess.ExpiredAt(s.now()) {
			stats.Expired++
		} else {
			stats.Active++
		}
		return nil
	})
	return stats, err
}

// fetch loads a stored session without judging expiry. Unknown and empty
// tokens fail with not_found.
func (s *SessionStore) fetch(ctx context.Context, token string) (domainauth.Session, error) {
	if token == "" {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}

	data, err := s.client.Get(ctx, s.sessionKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return domainauth.Session{}, apperrors.NotFound("session not found")
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) scanSessions(
	ctx context.Context,
	visit func(token string, sess domainauth.Session) error,
) error {
	iter := s.client.Scan(ctx, 0, s.sessionPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		token := key[len(s.sessionPrefix):]
		sess, err := s.fetch(ctx, token)
		if err != nil {
			if apperrors.IsNotFound(err) {
				// Key lapsed between scan and fetch.
				continue
			}
			return err
		}
		if err := visit(token, sess); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan sessions: %w", err)
	}
	return nil
}
