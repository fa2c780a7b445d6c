package memstore

// Package memstore provides the in-process, mutex-guarded session store.
// It is the authoritative store for single-node deployments; the redis
// adapter covers deployments that want sessions to survive restarts.

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/ports"
)

// Compile-time conformance to the session store port.
var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in a map guarded by a single mutex. All
// read-modify-write sequences (refresh, sweep vs. lookup) run under the
// lock, so lookups never observe a half-deleted record.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	byUser   map[uuid.UUID]map[string]struct{}

	now func() time.Time
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domainauth.Session),
		byUser:   make(map[uuid.UUID]map[string]struct{}),
		now:      time.Now,
	}
}

// SetNowFunc overrides the store's clock. Test hook.
func (s *SessionStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.Token == "" {
		return apperrors.Validation("session token must not be empty")
	}
	if sess.UserID == uuid.Nil {
		return apperrors.Validation("session user id must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.Token]; exists {
		return apperrors.Conflict("session token already exists")
	}

	s.sessions[sess.Token] = sess
	tokens := s.byUser[sess.UserID]
	if tokens == nil {
		tokens = make(map[string]struct{})
		s.byUser[sess.UserID] = tokens
	}
	tokens[sess.Token] = struct{}{}
	return nil
}

func (s *SessionStore) Get(_ context.Context, token string) (domainauth.Session, error) {
	if token == "" {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}
	if sess.ExpiredAt(s.now()) {
		return domainauth.Session{}, apperrors.Expired("session expired")
	}
	return sess, nil
}

func (s *SessionStore) Refresh(_ context.Context, token string, expiresAt time.Time) (domainauth.Session, error) {
	if token == "" {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}
	if sess.ExpiredAt(s.now()) {
		return domainauth.Session{}, apperrors.Expired("session expired")
	}

	sess.ExpiresAt = expiresAt
	s.sessions[token] = sess
	return sess, nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	if token == "" {
		return apperrors.NotFound("session not found")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return apperrors.NotFound("session not found")
	}
	s.remove(sess)
	return nil
}

func (s *SessionStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperrors.Validation("user id must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.byUser[userID]
	count := len(tokens)
	for token := range tokens {
		delete(s.sessions, token)
	}
	delete(s.byUser, userID)
	return count, nil
}

func (s *SessionStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, sess := range s.sessions {
		if sess.ExpiredAt(now) {
			s.remove(sess)
			count++
		}
	}
	return count, nil
}

func (s *SessionStore) Stats(_ context.Context) (domainauth.SessionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stats := domainauth.SessionStats{Total: len(s.sessions)}
	for _, sess := range s.sessions {
		if sess.ExpiredAt(now) {
			stats.Expired++
		} else {
			stats.Active++
		}
	}
	return stats, nil
}

// remove deletes a session and its user-index entry. Caller holds the lock.
func (s *SessionStore) remove(sess domainauth.Session) {
	delete(s.sessions, sess.Token)
	if tokens := s.byUser[sess.UserID]; tokens != nil {
		delete(tokens, sess.Token)
		if len(tokens) == 0 {
			delete(s.byUser, sess.UserID)
		}
	}
}
