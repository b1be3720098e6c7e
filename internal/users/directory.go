package users

import (
	"context"
	"errors"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/repo"
	"github.com/geocoder89/taskmaster/internal/security"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = apperr.Auth("invalid_credentials", "Invalid email or password.")
	ErrPasswordTooLong    = apperr.Validation("password_too_long", "Password must be at most 72 bytes.")
)

type Repo interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

// Directory owns account rules on top of a users repository: hashing,
// email uniqueness and credential checks.
type Directory struct {
	users Repo
	hash func(string) (string, error)
}

func NewDirectory(users Repo) *Directory {
	return &Directory{users: users, hash: security.HashPassword}
}

func (d *Directory) Register(ctx context.Context, req user.RegisterRequest) (user.User, error) {
	if len(req.Password) > user.MaxPasswordBytes {
		return user.User{}, ErrPasswordTooLong
	}

	email := user.NormalizeEmail(req.Email)

	_, err := d.users.GetByEmail(ctx, email)
	if err == nil {
		return user.User{}, repo.ErrEmailTaken
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return user.User{}, err
	}

	hash, err := d.hash(req.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return user.User{}, ErrPasswordTooLong
	}
	if err != nil {
		return user.User{}, apperr.Storage("users.hash_password", err)
	}

	// the unique index still catches a concurrent registration
	u, err := d.users.Create(ctx, user.NewUser(req.Name, email, hash))
	if err != nil {
		return user.User{}, err
	}

	return u.Public(), nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		return user.User{}, err
	}
	return u.Public(), nil
}

func (d *Directory) FindByID(ctx context.Context, id string) (user.User, error) {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	return u.Public(), nil
}

// VerifyCredentials returns the same error for an unknown email and a wrong
// password, and spends one bcrypt comparison on both paths.
func (d *Directory) VerifyCredentials(ctx context.Context, email, password string) (user.User, error) {
	u, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			security.BurnCompare(password)
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return user.User{}, ErrInvalidCredentials
	}

	return u.Public(), nil
}

func (d *Directory) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	u, err := d.users.Update(ctx, id, req)
	if err != nil {
		return user.User{}, err
	}
	return u.Public(), nil
}

func (d *Directory) Delete(ctx context.Context, id string) error {
	return d.users.Delete(ctx, id)
}

func (d *Directory) List(ctx context.Context) ([]user.User, error) {
	us, err := d.users.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range us {
		us[i] = us[i].Public()
	}
	return us, nil
}
