package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/db"
	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/repo"
	"github.com/geocoder89/taskmaster/internal/repo/memory"
	"github.com/geocoder89/taskmaster/internal/repo/sqlrepo"
)

type usersRepo interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

type tasksRepo interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	GetByID(ctx context.Context, id, userID string) (task.Task, error)
	ListByUser(ctx context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error)
	Update(ctx context.Context, id, userID string, p task.Patch) (task.Task, error)
	Delete(ctx context.Context, id, userID string) error
	StatsByUser(ctx context.Context, userID string, now time.Time) (task.Stats, error)
	OverdueByUser(ctx context.Context, userID string, now time.Time) (int, error)
}

type backend struct {
	name  string
	users usersRepo
	tasks tasksRepo
}

// backends returns a fresh, empty instance of every storage implementation.
func backends(t *testing.T) []backend {
	t.Helper()

	sqlDB, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := db.MigrateSQLite(sqlDB); err != nil {
		_ = sqlDB.Close()
		t.Fatalf("MigrateSQLite: %v", err)
	}

	store := db.NewSQLStore(sqlDB, db.DialectSQLite, nil)
	t.Cleanup(store.Close)

	mem := memory.NewStore()

	return []backend{
		{"sqlite", sqlrepo.NewUsersRepo(store), sqlrepo.NewTasksRepo(store)},
		{"memory", memory.NewUsersRepo(mem), memory.NewTasksRepo(mem)},
	}
}

func forEach(t *testing.T, fn func(t *testing.T, b backend)) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) { fn(t, b) })
	}
}

func mustUser(t *testing.T, r usersRepo, email string) user.User {
	t.Helper()

	u, err := r.Create(context.Background(), user.NewUser("Test User", email, "hash"))
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustTask(t *testing.T, r tasksRepo, userID string, req task.CreateTaskRequest) task.Task {
	t.Helper()

	created, err := r.Create(context.Background(), task.NewFromCreateRequest(req, userID))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return created
}

func ptr[T any](v T) *T { return &v }

func TestUsersContract(t *testing.T) {
	forEach(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		ana := mustUser(t, b.users, "Ana@Example.com")

		got, err := b.users.GetByEmail(ctx, "ana@example.com")
		if err != nil {
			t.Fatalf("GetByEmail: %v", err)
		}
		if got.ID != ana.ID || !got.IsActive || got.IsAdmin {
			t.Fatalf("unexpected user: %+v", got)
		}

		_, err = b.users.Create(ctx, user.NewUser("Dup", "ana@example.com", "hash"))
		if !errors.Is(err, repo.ErrEmailTaken) {
			t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
		}

		_, err = b.users.GetByID(ctx, "missing")
		if !errors.Is(err, repo.ErrUserNotFound) {
			t.Fatalf("got %v, want ErrUserNotFound", err)
		}

		bia := mustUser(t, b.users, "bia@example.com")

		updated, err := b.users.Update(ctx, bia.ID, user.UpdateRequest{Name: ptr("Beatriz")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Name != "Beatriz" || updated.Email != "bia@example.com" {
			t.Fatalf("coalesce failed: %+v", updated)
		}

		_, err = b.users.Update(ctx, bia.ID, user.UpdateRequest{Email: ptr("ana@example.com")})
		if !errors.Is(err, repo.ErrEmailTaken) {
			t.Fatalf("email steal: got %v, want ErrEmailTaken", err)
		}

		list, err := b.users.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("got %d users, want 2", len(list))
		}

		if err := b.users.Delete(ctx, bia.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := b.users.Delete(ctx, bia.ID); !errors.Is(err, repo.ErrUserNotFound) {
			t.Fatalf("second delete: got %v, want ErrUserNotFound", err)
		}
	})
}

func TestTasksCreateGetOwnerScoped(t *testing.T) {
	forEach(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		owner := mustUser(t, b.users, "owner@example.com")
		other := mustUser(t, b.users, "other@example.com")

		due := time.Date(2030, 5, 1, 9, 30, 0, 0, time.UTC)
		created := mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{
			Title:            "Ship release",
			Description:      ptr("cut the tag"),
			Priority:         task.PriorityHigh,
			DueDate:          &due,
			Category:         ptr("work"),
			Tags:             []string{"release", "ops"},
			EstimatedMinutes: ptr(90),
		})

		got, err := b.tasks.GetByID(ctx, created.ID, owner.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}

		if got.Title != "Ship release" || got.Status != task.StatusPending || got.Priority != task.PriorityHigh {
			t.Fatalf("unexpected task: %+v", got)
		}
		if got.DueDate == nil || !got.DueDate.Equal(due) {
			t.Fatalf("got due %v, want %v", got.DueDate, due)
		}
		if len(got.Tags) != 2 || got.Tags[0] != "release" {
			t.Fatalf("got tags %v", got.Tags)
		}
		if got.EstimatedMinutes == nil || *got.EstimatedMinutes != 90 {
			t.Fatalf("got estimate %v", got.EstimatedMinutes)
		}

		// another user's id must look exactly like a missing task
		_, err = b.tasks.GetByID(ctx, created.ID, other.ID)
		if !errors.Is(err, repo.ErrTaskNotFound) {
			t.Fatalf("foreign get: got %v, want ErrTaskNotFound", err)
		}

		_, err = b.tasks.Update(ctx, created.ID, other.ID, task.StatusPatch(task.StatusDone))
		if !errors.Is(err, repo.ErrTaskNotFound) {
			t.Fatalf("foreign update: got %v, want ErrTaskNotFound", err)
		}

		if err := b.tasks.Delete(ctx, created.ID, other.ID); !errors.Is(err, repo.ErrTaskNotFound) {
			t.Fatalf("foreign delete: got %v, want ErrTaskNotFound", err)
		}

		if _, err := b.tasks.GetByID(ctx, created.ID, owner.ID); err != nil {
			t.Fatalf("task should survive foreign calls: %v", err)
		}

		if err := b.tasks.Delete(ctx, created.ID, owner.ID); err != nil {
			t.Fatalf("owner delete: %v", err)
		}
		if err := b.tasks.Delete(ctx, created.ID, owner.ID); !errors.Is(err, repo.ErrTaskNotFound) {
			t.Fatalf("second delete: got %v, want ErrTaskNotFound", err)
		}

		_, err = b.tasks.Create(ctx, task.NewFromCreateRequest(task.CreateTaskRequest{Title: "orphan"}, "ghost"))
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Fatalf("orphan task: got %v, want not found", err)
		}
	})
}

func TestTasksUpdateCoalesces(t *testing.T) {
	forEach(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		owner := mustUser(t, b.users, "owner@example.com")
		created := mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{
			Title:       "Draft",
			Description: ptr("first pass"),
			Category:    ptr("writing"),
			Tags:        []string{"a"},
		})

		time.Sleep(5 * time.Millisecond)

		updated, err := b.tasks.Update(ctx, created.ID, owner.ID, task.UpdateTaskRequest{
			Title:        "Final",
			SpentMinutes: ptr(15),
		}.Patch())
		if err != nil {
			t.Fatalf("Update: %v", err)
		}

		if updated.Title != "Final" || updated.SpentMinutes != 15 {
			t.Fatalf("fields not applied: %+v", updated)
		}
		if updated.Description == nil || *updated.Description != "first pass" {
			t.Fatalf("description lost: %v", updated.Description)
		}
		if updated.Category == nil || *updated.Category != "writing" {
			t.Fatalf("category lost: %v", updated.Category)
		}
		if len(updated.Tags) != 1 || updated.Tags[0] != "a" {
			t.Fatalf("tags lost: %v", updated.Tags)
		}
		if updated.Status != task.StatusPending || updated.Priority != task.PriorityMedium {
			t.Fatalf("enums changed: %s %s", updated.Status, updated.Priority)
		}
		if !updated.UpdatedAt.After(created.UpdatedAt) {
			t.Fatalf("updatedAt not refreshed: %v <= %v", updated.UpdatedAt, created.UpdatedAt)
		}

		done, err := b.tasks.Update(ctx, created.ID, owner.ID, task.StatusPatch(task.StatusDone))
		if err != nil {
			t.Fatalf("status update: %v", err)
		}
		if done.Status != task.StatusDone || done.Title != "Final" {
			t.Fatalf("status patch: %+v", done)
		}
	})
}

func TestTasksListFiltersAndOrdering(t *testing.T) {
	forEach(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		owner := mustUser(t, b.users, "owner@example.com")
		other := mustUser(t, b.users, "other@example.com")

		d1 := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		d2 := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)

		low := mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{Title: "b", Priority: task.PriorityLow, DueDate: &d2, Category: ptr("home")})
		time.Sleep(2 * time.Millisecond)
		urgent := mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{Title: "c", Priority: task.PriorityUrgent, Status: task.StatusDone})
		time.Sleep(2 * time.Millisecond)
		medium := mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{Title: "a", Priority: task.PriorityMedium, DueDate: &d1, Category: ptr("work")})
		mustTask(t, b.tasks, other.ID, task.CreateTaskRequest{Title: "not mine"})

		ids := func(ts []task.Task) []string {
			out := make([]string, len(ts))
			for i, t := range ts {
				out[i] = t.ID
			}
			return out
		}

		tests := []struct {
			name  string
			f     task.ListFilter
			o     task.Ordering
			order []string
		}{
			{"default newest first", task.ListFilter{}, task.DefaultOrdering, []string{medium.ID, urgent.ID, low.ID}},
			{"priority rank desc", task.ListFilter{}, task.Ordering{Field: task.OrderPriority, Desc: true}, []string{urgent.ID, medium.ID, low.ID}},
			{"priority rank asc", task.ListFilter{}, task.Ordering{Field: task.OrderPriority}, []string{low.ID, medium.ID, urgent.ID}},
			{"title asc", task.ListFilter{}, task.Ordering{Field: task.OrderTitle}, []string{medium.ID, low.ID, urgent.ID}},
			{"due date nulls last", task.ListFilter{}, task.Ordering{Field: task.OrderDueDate}, []string{medium.ID, low.ID, urgent.ID}},
			{"unknown field falls back", task.ListFilter{}, task.Ordering{Field: "password_hash"}, []string{medium.ID, urgent.ID, low.ID}},
			{"status filter", task.ListFilter{Status: ptr(task.StatusDone)}, task.DefaultOrdering, []string{urgent.ID}},
			{"category filter", task.ListFilter{Category: ptr("work")}, task.DefaultOrdering, []string{medium.ID}},
			{"priority filter miss", task.ListFilter{Priority: ptr(task.PriorityHigh)}, task.DefaultOrdering, []string{}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := b.tasks.ListByUser(ctx, owner.ID, tt.f, tt.o)
				if err != nil {
					t.Fatalf("ListByUser: %v", err)
				}

				gotIDs := ids(got)
				if len(gotIDs) != len(tt.order) {
					t.Fatalf("got %d tasks, want %d", len(gotIDs), len(tt.order))
				}
				for i := range gotIDs {
					if gotIDs[i] != tt.order[i] {
						t.Fatalf("position %d: got %s, want %s", i, gotIDs[i], tt.order[i])
					}
				}
			})
		}
	})
}

func TestTasksStats(t *testing.T) {
	forEach(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		owner := mustUser(t, b.users, "owner@example.com")
		now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		past := now.Add(-48 * time.Hour)
		future := now.Add(48 * time.Hour)

		mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{Title: "late", DueDate: &past})
		mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{Title: "late but done", DueDate: &past, Status: task.StatusDone})
		mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{Title: "fine", DueDate: &future, Status: task.StatusInProgress})
		mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{Title: "undated"})

		got, err := b.tasks.StatsByUser(ctx, owner.ID, now)
		if err != nil {
			t.Fatalf("StatsByUser: %v", err)
		}

		want := task.Stats{Total: 4, Pending: 2, InProgress: 1, Done: 1, Overdue: 1}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}

		if got.Pending+got.InProgress+got.Done != got.Total {
			t.Fatalf("status counts do not add up: %+v", got)
		}

		overdue, err := b.tasks.OverdueByUser(ctx, owner.ID, now)
		if err != nil {
			t.Fatalf("OverdueByUser: %v", err)
		}
		if overdue != got.Overdue {
			t.Fatalf("OverdueByUser = %d, stats say %d", overdue, got.Overdue)
		}

		// the future task becomes late once the clock passes its due date
		later, err := b.tasks.OverdueByUser(ctx, owner.ID, future.Add(time.Hour))
		if err != nil {
			t.Fatalf("OverdueByUser later: %v", err)
		}
		if later != 2 {
			t.Fatalf("OverdueByUser later = %d, want 2", later)
		}

		empty, err := b.tasks.StatsByUser(ctx, "nobody", now)
		if err != nil {
			t.Fatalf("StatsByUser empty: %v", err)
		}
		if empty != (task.Stats{}) {
			t.Fatalf("got %+v for a user with no tasks", empty)
		}
	})
}

func TestDeleteUserCascadesTasks(t *testing.T) {
	forEach(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		owner := mustUser(t, b.users, "owner@example.com")
		created := mustTask(t, b.tasks, owner.ID, task.CreateTaskRequest{Title: "gone soon"})

		if err := b.users.Delete(ctx, owner.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		_, err := b.tasks.GetByID(ctx, created.ID, owner.ID)
		if !errors.Is(err, repo.ErrTaskNotFound) {
			t.Fatalf("got %v, want ErrTaskNotFound", err)
		}
	})
}

func TestEnsureAdminUser(t *testing.T) {
	forEach(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		cfg := config.Config{AdminEmail: "admin@taskmaster.com", AdminPassword: "admin123", AdminName: "Admin"}

		created, err := db.EnsureAdminUser(ctx, b.users, cfg)
		if err != nil || !created {
			t.Fatalf("first seed: created=%v err=%v", created, err)
		}

		admin, err := b.users.GetByEmail(ctx, "admin@taskmaster.com")
		if err != nil {
			t.Fatalf("GetByEmail: %v", err)
		}
		if !admin.IsAdmin || !admin.IsActive {
			t.Fatalf("seeded user flags: %+v", admin)
		}

		created, err = db.EnsureAdminUser(ctx, b.users, cfg)
		if err != nil || created {
			t.Fatalf("second seed: created=%v err=%v", created, err)
		}

		created, err = db.EnsureAdminUser(ctx, b.users, config.Config{})
		if err != nil || created {
			t.Fatalf("unconfigured seed: created=%v err=%v", created, err)
		}
	})
}
