package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/geocoder89/taskmaster/internal/domain/user"
)

// Store is the shared state behind the in-memory repositories. Users and
// tasks share one lock so deleting a user can drop its tasks atomically.
type Store struct {
	mu    sync.RWMutex
	users map[string]user.User // {"id": user}
	tasks map[string]task.Task
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]user.User),
		tasks: make(map[string]task.Task),
	}
}

// Counts reports how many users and tasks are held.
func (s *Store) Counts(_ context.Context) (users, tasks int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users), len(s.tasks), nil
}
