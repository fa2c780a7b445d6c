package cryptoutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/parishtech/shepherd/internal/errors"
)

const (
	// tokenBytes is the amount of randomness behind each session token.
	tokenBytes = 32

	// DefaultBcryptCost is used when no cost is configured. bcrypt's own
	// default is deliberately not relied on so the work factor is explicit.
	DefaultBcryptCost = 10

	// bcrypt silently ignores input beyond 72 bytes; reject instead.
	maxPasswordBytes = 72
)

// HashPassword hashes a password with bcrypt at the given cost. Each call
// salts independently, so two hashes of the same password differ while both
// verify. An empty or over-length password is rejected with a validation
// error.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", apperrors.Validation("password must not be empty")
	}
	if len(password) > maxPasswordBytes {
		return "", apperrors.Validationf("password must be at most %d bytes", maxPasswordBytes)
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// It never returns an error: a malformed hash, an empty password, or a
// mismatch all yield false. bcrypt's comparison is constant-time over the
// digest, so a malformed-hash failure is not cheaply distinguishable from a
// wrong-password failure.
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken returns a URL-safe token backed by 32 bytes of
// crypto/rand randomness. Collisions are vanishingly improbable, so tokens
// are treated as globally unique.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// PasswordPolicy holds the configurable password strength parameters.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy mirrors the configured default of 8 characters.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8}
}

// Validate enforces the strength policy: minimum length plus at least one
// lowercase letter, one uppercase letter, and one digit. Failures carry a
// weak_password error whose message names the first unmet requirement.
func (p PasswordPolicy) Validate(password string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = DefaultPasswordPolicy().MinLength
	}

	if len(password) < minLength {
		return apperrors.Newf(apperrors.ErrCodeWeakPassword,
			"password must be at least %d characters", minLength)
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	switch {
	case !hasLower:
		return apperrors.WeakPassword("password must include a lowercase letter")
	case !hasUpper:
		return apperrors.WeakPassword("password must include an uppercase letter")
	case !hasDigit:
		return apperrors.WeakPassword("password must include a digit")
	}

	return nil
}
