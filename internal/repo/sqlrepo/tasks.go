package sqlrepo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/geocoder89/taskmaster/internal/db"
	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/geocoder89/taskmaster/internal/repo"
)

const taskColumns = `id, title, description, status, priority, due_date, category, tags,
	estimated_minutes, spent_minutes, user_id, created_at, updated_at`

// orderColumns is the closed set of ORDER BY fragments; nothing from the
// request is ever spliced into SQL.
var orderColumns = map[task.OrderField]string{
	task.OrderCreatedAt: "created_at",
	task.OrderDueDate:   "due_date",
	task.OrderTitle:     "title",
	task.OrderPriority: `CASE priority
		WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 ELSE 0 END`,
}

type TasksRepo struct {
	store db.Store
}

func NewTasksRepo(store db.Store) *TasksRepo {
	return &TasksRepo{store: store}
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return task.Task{}, err
	}

	_, err = r.store.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate, t.Category, tags,
		t.EstimatedMinutes, t.SpentMinutes, t.UserID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id, userID string) (task.Task, error) {
	t, err := scanTask(r.store.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return task.Task{}, repo.ErrTaskNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) ListByUser(ctx context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error) {
	var b strings.Builder
	args := []any{userID}

	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`)

	if f.Status != nil {
		b.WriteString(` AND status = ?`)
		args = append(args, string(*f.Status))
	}
	if f.Priority != nil {
		b.WriteString(` AND priority = ?`)
		args = append(args, string(*f.Priority))
	}
	if f.Category != nil {
		b.WriteString(` AND category = ?`)
		args = append(args, *f.Category)
	}

	b.WriteString(orderClause(o))

	rows, err := r.store.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]task.Task, 0)

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func orderClause(o task.Ordering) string {
	col, ok := orderColumns[o.Field]
	if !ok {
		o = task.DefaultOrdering
		col = orderColumns[o.Field]
	}

	dir := " ASC"
	if o.Desc {
		dir = " DESC"
	}

	// NULL due dates sort last either way
	if o.Field == task.OrderDueDate {
		return ` ORDER BY CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, ` + col + dir + `, id ASC`
	}

	return ` ORDER BY ` + col + dir + `, id ASC`
}

// Update coalesces p onto the owned row and returns the stored result.
func (r *TasksRepo) Update(ctx context.Context, id, userID string, p task.Patch) (task.Task, error) {
	var tags *string
	if p.Tags != nil {
		s, err := encodeTags(p.Tags)
		if err != nil {
			return task.Task{}, err
		}
		tags = &s
	}

	res, err := r.store.Exec(ctx,
		`UPDATE tasks
		 SET title = COALESCE(?, title),
		     description = COALESCE(?, description),
		     status = COALESCE(?, status),
		     priority = COALESCE(?, priority),
		     due_date = COALESCE(?, due_date),
		     category = COALESCE(?, category),
		     tags = COALESCE(?, tags),
		     estimated_minutes = COALESCE(?, estimated_minutes),
		     spent_minutes = COALESCE(?, spent_minutes),
		     updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		p.Title, p.Description, statusArg(p.Status), priorityArg(p.Priority), p.DueDate, p.Category, tags,
		p.EstimatedMinutes, p.SpentMinutes, time.Now().UTC(), id, userID,
	)
	if err != nil {
		return task.Task{}, err
	}

	if res.RowsAffected == 0 {
		return task.Task{}, repo.ErrTaskNotFound
	}

	return r.GetByID(ctx, id, userID)
}

func (r *TasksRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.store.Exec(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}

	if res.RowsAffected == 0 {
		return repo.ErrTaskNotFound
	}

	return nil
}

// StatsByUser computes every counter in a single pass over the owner's rows.
func (r *TasksRepo) StatsByUser(ctx context.Context, userID string, now time.Time) (task.Stats, error) {
	var s task.Stats

	err := r.store.QueryRow(ctx,
		`SELECT
		   COUNT(*),
		   COUNT(CASE WHEN status = 'pending' THEN 1 END),
		   COUNT(CASE WHEN status = 'in-progress' THEN 1 END),
		   COUNT(CASE WHEN status = 'done' THEN 1 END),
		   COUNT(CASE WHEN due_date IS NOT NULL AND due_date < ? AND status <> 'done' THEN 1 END)
		 FROM tasks
		 WHERE user_id = ?`,
		now.UTC(), userID,
	).Scan(&s.Total, &s.Pending, &s.InProgress, &s.Done, &s.Overdue)

	if err != nil {
		return task.Stats{}, err
	}

	return s, nil
}

func statusArg(s *task.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func priorityArg(p *task.Priority) *string {
	if p == nil {
		return nil
	}
	v := string(*p)
	return &v
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}

	b, err := json.Marshal(tags)
	if err != nil {
		return "", apperr.Validation("invalid_tags", "Tags could not be encoded.")
	}
	return string(b), nil
}

func scanTask(row db.Row) (task.Task, error) {
	var (
		t      task.Task
		status string
		prio   string
		tags   string
	)

	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&status,
		&prio,
		&t.DueDate,
		&t.Category,
		&tags,
		&t.EstimatedMinutes,
		&t.SpentMinutes,
		&t.UserID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return task.Task{}, err
	}

	t.Status = task.Status(status)
	t.Priority = task.Priority(prio)

	t.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return task.Task{}, apperr.Storage("tasks.decode_tags", err)
		}
	}

	if t.DueDate != nil {
		d := t.DueDate.UTC()
		t.DueDate = &d
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	return t, nil
}

// OverdueByUser counts the owner's unfinished tasks due before now.
func (r *TasksRepo) OverdueByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	var n int

	err := r.store.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks
		 WHERE user_id = ? AND due_date IS NOT NULL AND due_date < ? AND status <> 'done'`,
		userID, now.UTC(),
	).Scan(&n)

	if err != nil {
		return 0, err
	}

	return n, nil
}
