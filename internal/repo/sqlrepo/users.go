package sqlrepo

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/geocoder89/taskmaster/internal/db"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/repo"
)

const userColumns = `id, name, email, password_hash, is_active, is_admin, avatar_url, created_at, updated_at`

type UsersRepo struct {
	store db.Store
}

func NewUsersRepo(store db.Store) *UsersRepo {
	return &UsersRepo{store: store}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	_, err := r.store.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.IsActive, u.IsAdmin, u.AvatarURL, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return user.User{}, repo.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, user.NormalizeEmail(email))
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UsersRepo) getOne(ctx context.Context, query string, arg any) (user.User, error) {
	u, err := scanUser(r.store.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return user.User{}, repo.ErrUserNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// Update applies the non-nil fields of req and returns the stored row.
func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	var email *string
	if req.Email != nil {
		e := user.NormalizeEmail(*req.Email)
		email = &e
	}

	res, err := r.store.Exec(ctx,
		`UPDATE users
		 SET name = COALESCE(?, name),
		     email = COALESCE(?, email),
		     avatar_url = COALESCE(?, avatar_url),
		     updated_at = ?
		 WHERE id = ?`,
		req.Name, email, req.AvatarURL, time.Now().UTC(), id,
	)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return user.User{}, repo.ErrEmailTaken
		}
		return user.User{}, err
	}

	if res.RowsAffected == 0 {
		return user.User{}, repo.ErrUserNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.store.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}

	if res.RowsAffected == 0 {
		return repo.ErrUserNotFound
	}

	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.store.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]user.User, 0)

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Storage("users.list.scan", err)
		}
		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func scanUser(row db.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsActive,
		&u.IsAdmin,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	return u, nil
}
