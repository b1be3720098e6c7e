package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/repo"
)

type UsersRepo struct {
	s *Store
}

func NewUsersRepo(s *Store) *UsersRepo {
	return &UsersRepo{s: s}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(u.Email, "") {
		return user.User{}, repo.ErrEmailTaken
	}

	u.Email = user.NormalizeEmail(u.Email)
	r.s.users[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	email = user.NormalizeEmail(email)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, repo.ErrUserNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.s.mu.RLock()
	u, ok := r.s.users[id]
	r.s.mu.RUnlock()

	if !ok {
		return user.User{}, repo.ErrUserNotFound
	}
	return u, nil
}

func (r *UsersRepo) Update(_ context.Context, id string, req user.UpdateRequest) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, repo.ErrUserNotFound
	}

	if req.Email != nil {
		email := user.NormalizeEmail(*req.Email)
		if r.emailTaken(email, id) {
			return user.User{}, repo.ErrEmailTaken
		}
		u.Email = email
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.AvatarURL != nil {
		u.AvatarURL = req.AvatarURL
	}

	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u

	return u, nil
}

// Delete removes the user and, like the SQL foreign key, every task it owns.
func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repo.ErrUserNotFound
	}

	delete(r.s.users, id)

	for tid, t := range r.s.tasks {
		if t.UserID == id {
			delete(r.s.tasks, tid)
		}
	}

	return nil
}

func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.s.mu.RLock()
	out := make([]user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// emailTaken must be called with the lock held.
func (r *UsersRepo) emailTaken(email, exceptID string) bool {
	email = user.NormalizeEmail(email)
	for id, u := range r.s.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}
