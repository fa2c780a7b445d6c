// Package devseed creates well-known accounts for local development.
// Never wired up outside dev mode.
package devseed

import (
	"context"
	"log/slog"

	"github.com/parishtech/shepherd/internal/data/cryptoutil"
	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/ports"
)

// DevPassword is the shared password for every seeded dev account.
const DevPassword = "Develop3r!"

type seedAccount struct {
	username string
	role     domainauth.Role
	memberID *int64
}

// SeedUsers creates the standard dev accounts (admin, pastor, and a
// member linked to member record 1) in the given store. Accounts that
// already exist are left untouched, so restarts are safe.
func SeedUsers(ctx context.Context, store ports.UserStore, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	memberID := int64(1)
	accounts := []seedAccount{
		{username: "dev-admin", role: domainauth.RoleAdmin},
		{username: "dev-pastor", role: domainauth.RolePastor},
		{username: "dev-member", role: domainauth.RoleMember, memberID: &memberID},
	}

	hash, err := cryptoutil.HashPassword(DevPassword, cryptoutil.DefaultBcryptCost)
	if err != nil {
		return err
	}

	for _, acct := range accounts {
		_, err := store.Create(ctx, domainauth.User{
			Username:     acct.username,
			Email:        acct.username + "@localhost",
			PasswordHash: hash,
			Role:         acct.role,
			MemberID:     acct.memberID,
			Active:       true,
		})
		if apperrors.IsConflict(err) {
			continue
		}
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "seeded dev user", "username", acct.username, "role", acct.role)
	}
	return nil
}
