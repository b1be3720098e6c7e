package db

import (
	"context"
	"fmt"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/security"
)

// AdminUsers is the slice of a users repository the seed needs. Both the
// SQL and in-memory repositories satisfy it.
type AdminUsers interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin account when it is missing.
// An existing account with that email is left untouched.
func EnsureAdminUser(ctx context.Context, users AdminUsers, cfg config.Config) (created bool, err error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	// check if the user exists

	_, err = users.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return false, nil
	}

	if apperr.KindOf(err) != apperr.KindNotFound {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, err
	}

	u := user.NewUser(cfg.AdminName, cfg.AdminEmail, hash)
	u.IsAdmin = true

	_, err = users.Create(ctx, u)

	// lost a race with another instance seeding the same account
	if apperr.KindOf(err) == apperr.KindConflict {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}

	return true, nil
}
