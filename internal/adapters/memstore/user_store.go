package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parishtech/shepherd/internal/data/cryptoutil"
	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/ports"
)

var _ ports.UserStore = (*UserStore)(nil)

// SeedBcryptCost keeps hashing fast for seeded dev accounts and test
// fixtures. Never used for real sign-ups.
const SeedBcryptCost = 4

// UserStore is an in-memory ports.UserStore. Accounts vanish on restart;
// it backs dev mode and unit tests, never production.
type UserStore struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]domainauth.User
	byUsername map[string]uuid.UUID
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:       make(map[uuid.UUID]domainauth.User),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (s *UserStore) Create(_ context.Context, u domainauth.User) (domainauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if _, exists := s.byUsername[u.Username]; exists {
		return domainauth.User{}, apperrors.Conflict("username already taken")
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.byID[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return u, nil
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (domainauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return domainauth.User{}, apperrors.UserNotFound("user not found")
	}
	return u, nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (domainauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return domainauth.User{}, apperrors.UserNotFound("user not found")
	}
	return s.byID[id], nil
}

func (s *UserStore) RecordLoginFailure(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return 0, apperrors.UserNotFound("user not found")
	}
	u.FailedLogins++
	u.UpdatedAt = time.Now()
	s.byID[id] = u
	return u.FailedLogins, nil
}

func (s *UserStore) RecordLoginSuccess(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return apperrors.UserNotFound("user not found")
	}
	u.FailedLogins = 0
	u.LastLoginAt = &at
	u.UpdatedAt = time.Now()
	s.byID[id] = u
	return nil
}

func (s *UserStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return apperrors.UserNotFound("user not found")
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	s.byID[id] = u
	return nil
}

func (s *UserStore) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return apperrors.UserNotFound("user not found")
	}
	u.Active = false
	u.UpdatedAt = time.Now()
	s.byID[id] = u
	return nil
}

// SeedUserParams describes an account to seed into a UserStore.
type SeedUserParams struct {
	Username string
	Password string
	Role     domainauth.Role
	MemberID *int64
	Inactive bool
}

// MustSeedUser creates a user with a real bcrypt hash, panicking on
// failure. For dev seeding and test setup.
func MustSeedUser(store *UserStore, p SeedUserParams) domainauth.User {
	hash, err := cryptoutil.HashPassword(p.Password, SeedBcryptCost)
	if err != nil {
		panic(err)
	}
	u, err := store.Create(context.Background(), domainauth.User{
		Username:     p.Username,
		Email:        p.Username + "@example.com",
		PasswordHash: hash,
		Role:         p.Role,
		MemberID:     p.MemberID,
		Active:       !p.Inactive,
	})
	if err != nil {
		panic(err)
	}
	return u
}
