package tasks

import (
	"context"
	"time"

	"github.com/geocoder89/taskmaster/internal/cache"
	"github.com/geocoder89/taskmaster/internal/domain/task"
)

type Repo interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	GetByID(ctx context.Context, id, userID string) (task.Task, error)
	ListByUser(ctx context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error)
	Update(ctx context.Context, id, userID string, p task.Patch) (task.Task, error)
	Delete(ctx context.Context, id, userID string) error
	StatsByUser(ctx context.Context, userID string, now time.Time) (task.Stats, error)
	OverdueByUser(ctx context.Context, userID string, now time.Time) (int, error)
}

// Service puts a per-user stats cache in front of the task repository.
// Every successful mutation drops the owner's cached stats.
type Service struct {
	repo  Repo
	stats cache.StatsCache
	now   func() time.Time
}

// NewService builds a Service; stats may be nil to disable caching.
func NewService(repo Repo, stats cache.StatsCache) *Service {
	return &Service{repo: repo, stats: stats, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req task.CreateTaskRequest, userID string) (task.Task, error) {
	t, err := s.repo.Create(ctx, task.NewFromCreateRequest(req, userID))
	if err != nil {
		return task.Task{}, err
	}

	s.invalidate(ctx, userID)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id, userID string) (task.Task, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error) {
	return s.repo.ListByUser(ctx, userID, f, o)
}

func (s *Service) Update(ctx context.Context, id, userID string, req task.UpdateTaskRequest) (task.Task, error) {
	return s.patch(ctx, id, userID, req.Patch())
}

func (s *Service) UpdateStatus(ctx context.Context, id, userID string, status task.Status) (task.Task, error) {
	return s.patch(ctx, id, userID, task.StatusPatch(status))
}

func (s *Service) patch(ctx context.Context, id, userID string, p task.Patch) (task.Task, error) {
	t, err := s.repo.Update(ctx, id, userID, p)
	if err != nil {
		return task.Task{}, err
	}

	s.invalidate(ctx, userID)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	return nil
}

// Stats reports the owner's counters with overdue measured at the current
// UTC time. Status counts come from the cache when possible; overdue depends
// on the clock rather than on mutations, so it is always counted live.
func (s *Service) Stats(ctx context.Context, userID string) (task.Stats, error) {
	now := s.now().UTC()

	if s.stats == nil {
		return s.repo.StatsByUser(ctx, userID, now)
	}

	if st, ok := s.stats.Get(ctx, userID); ok {
		overdue, err := s.repo.OverdueByUser(ctx, userID, now)
		if err != nil {
			return task.Stats{}, err
		}
		st.Overdue = overdue
		return st, nil
	}

	// read the generation before the rows so a mutation landing in between
	// makes the Set below a no-op
	version, cacheable := s.stats.Version(ctx, userID)

	st, err := s.repo.StatsByUser(ctx, userID, now)
	if err != nil {
		return task.Stats{}, err
	}

	if cacheable {
		s.stats.Set(ctx, userID, version, st)
	}
	return st, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.stats != nil {
		s.stats.Invalidate(ctx, userID)
	}
}
