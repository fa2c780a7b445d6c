// Package postgres implements the user store against a Postgres database
// using the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/ports"
)

// UserStore provides user persistence for the auth core.
type UserStore struct {
	DB *sql.DB
}

var _ ports.UserStore = (*UserStore)(nil)

// NewUserStore creates a Postgres-backed user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{DB: db}
}

const userColumns = `id, username, email, password_hash, role, member_id,
	active, failed_logins, last_login_at, created_at, updated_at`

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (domainauth.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (domainauth.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *UserStore) Create(ctx context.Context, u domainauth.User) (domainauth.User, error) {
	if u.Username == "" {
		return domainauth.User{}, apperrors.ValidationField("username", "username is required")
	}
	if u.PasswordHash == "" {
		return domainauth.User{}, apperrors.ValidationField("password", "password hash is required")
	}
	if !u.Role.Valid() {
		return domainauth.User{}, apperrors.ValidationField("role", "unknown role")
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, member_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.MemberID, u.Active,
	)
	return scanUser(row)
}

func (s *UserStore) RecordLoginFailure(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `
		UPDATE users
		SET failed_logins = failed_logins + 1, updated_at = now()
		WHERE id = $1
		RETURNING failed_logins`, id,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.UserNotFound("user not found")
	}
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return count, nil
}

func (s *UserStore) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.exec(ctx, `
		UPDATE users
		SET failed_logins = 0, last_login_at = $2, updated_at = now()
		WHERE id = $1`, id, at)
}

func (s *UserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if passwordHash == "" {
		return apperrors.ValidationField("password", "password hash is required")
	}
	return s.exec(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1`, id, passwordHash)
}

func (s *UserStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, `
		UPDATE users
		SET active = FALSE, updated_at = now()
		WHERE id = $1`, id)
}

// exec runs a single-row UPDATE and converts a zero row count into a
// user_not_found error.
func (s *UserStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if affected == 0 {
		return apperrors.UserNotFound("user not found")
	}
	return nil
}

func scanUser(row *sql.Row) (domainauth.User, error) {
	var (
		u    domainauth.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.MemberID,
		&u.Active, &u.FailedLogins, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domainauth.User{}, apperrors.UserNotFound("user not found")
	}
	if err != nil {
		return domainauth.User{}, apperrors.MapDBError(err)
	}
	u.Role = domainauth.Role(role)
	return u, nil
}
