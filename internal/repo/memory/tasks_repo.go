package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/geocoder89/taskmaster/internal/repo"
)

type TasksRepo struct {
	s *Store
}

func NewTasksRepo(s *Store) *TasksRepo {
	return &TasksRepo{s: s}
}

func (r *TasksRepo) Create(_ context.Context, t task.Task) (task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[t.UserID]; !ok {
		return task.Task{}, repo.ErrNoOwner
	}

	if t.Tags == nil {
		t.Tags = []string{}
	}

	r.s.tasks[t.ID] = t
	return t, nil
}

func (r *TasksRepo) GetByID(_ context.Context, id, userID string) (task.Task, error) {
	r.s.mu.RLock()
	t, ok := r.s.tasks[id]
	r.s.mu.RUnlock()

	if !ok || t.UserID != userID {
		return task.Task{}, repo.ErrTaskNotFound
	}

	return t, nil
}

func (r *TasksRepo) ListByUser(_ context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error) {
	r.s.mu.RLock()
	out := make([]task.Task, 0)
	for _, t := range r.s.tasks {
		if t.UserID != userID || !matches(t, f) {
			continue
		}
		out = append(out, t)
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, less(out, o))

	return out, nil
}

func matches(t task.Task, f task.ListFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Category != nil && (t.Category == nil || *t.Category != *f.Category) {
		return false
	}
	return true
}

// less mirrors the ORDER BY built by sqlrepo: chosen key, then id.
func less(ts []task.Task, o task.Ordering) func(i, j int) bool {
	switch o.Field {
	case task.OrderCreatedAt, task.OrderDueDate, task.OrderPriority, task.OrderTitle:
	default:
		o = task.DefaultOrdering
	}

	return func(i, j int) bool {
		a, b := ts[i], ts[j]

		if o.Field == task.OrderDueDate && (a.DueDate == nil) != (b.DueDate == nil) {
			return b.DueDate == nil
		}

		c := compare(a, b, o.Field)
		if c != 0 {
			if o.Desc {
				return c > 0
			}
			return c < 0
		}

		return a.ID < b.ID
	}
}

func compare(a, b task.Task, f task.OrderField) int {
	switch f {
	case task.OrderTitle:
		return strings.Compare(a.Title, b.Title)
	case task.OrderPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case task.OrderDueDate:
		if a.DueDate == nil || b.DueDate == nil {
			return 0
		}
		return a.DueDate.Compare(*b.DueDate)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *TasksRepo) Update(_ context.Context, id, userID string, p task.Patch) (task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok || t.UserID != userID {
		return task.Task{}, repo.ErrTaskNotFound
	}

	t = p.Apply(t, time.Now().UTC())
	r.s.tasks[id] = t

	return t, nil
}

func (r *TasksRepo) Delete(_ context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok || t.UserID != userID {
		return repo.ErrTaskNotFound
	}

	delete(r.s.tasks, id)
	return nil
}

func (r *TasksRepo) StatsByUser(_ context.Context, userID string, now time.Time) (task.Stats, error) {
	var s task.Stats

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.tasks {
		if t.UserID != userID {
			continue
		}

		s.Total++
		switch t.Status {
		case task.StatusPending:
			s.Pending++
		case task.StatusInProgress:
			s.InProgress++
		case task.StatusDone:
			s.Done++
		}

		if t.IsOverdue(now) {
			s.Overdue++
		}
	}

	return s, nil
}

func (r *TasksRepo) OverdueByUser(_ context.Context, userID string, now time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, t := range r.s.tasks {
		if t.UserID == userID && t.IsOverdue(now) {
			n++
		}
	}

	return n, nil
}
