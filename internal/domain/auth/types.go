package auth

// Package auth contains domain-level types for identity, sessions, and
// access control. It is pure and free of framework/adapter concerns.

import (
	"time"

	"github.com/google/uuid"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and JSON payloads.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePastor Role = "pastor"
	RoleMember Role = "member"
)

// Privilege levels for the role hierarchy. A higher role implicitly
// satisfies checks requiring a lower one.
const (
	LevelMember = 1
	LevelPastor = 2
	LevelAdmin  = 3
)

// Level returns the privilege level for the role, or 0 for an unknown role.
// Unknown roles deliberately map to 0 so they fail every check instead of
// silently defaulting to member access.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return LevelAdmin
	case RolePastor:
		return LevelPastor
	case RoleMember:
		return LevelMember
	default:
		return 0
	}
}

// Valid reports whether the role is one of the defined constants.
func (r Role) Valid() bool { return r.Level() > 0 }

// HasPermission reports whether the role's level meets the required level.
func (r Role) HasPermission(requiredLevel int) bool {
	level := r.Level()
	return level > 0 && level >= requiredLevel
}

// ParseRole converts a stored string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// User is the identity record owned by the identity subsystem.
// The login path mutates FailedLogins and LastLoginAt; everything else is
// managed by account administration.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	MemberID     *int64     `json:"member_id,omitempty"`
	Active       bool       `json:"active"`
	FailedLogins int        `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Session is the server-side proof of authentication.
// Token is opaque, high-entropy, and never reused. A session is valid iff
// it exists, has not passed ExpiresAt, and its owning user is active; the
// last condition is enforced by the service layer, which owns user lookups.
type Session struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiredAt reports whether the session has lapsed as of the given instant.
func (s Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStats is a point-in-time snapshot of session store contents.
type SessionStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}
