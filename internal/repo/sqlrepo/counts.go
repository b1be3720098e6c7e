package sqlrepo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/geocoder89/taskmaster/internal/db"
)

// Counter reports table sizes for the status endpoint.
type Counter struct {
	store db.Store
}

func NewCounter(store db.Store) *Counter {
	return &Counter{store: store}
}

func (c *Counter) Counts(ctx context.Context) (users, tasks int, err error) {
	res, err := db.Execute(ctx, c.store,
		`SELECT (SELECT COUNT(*) FROM users) AS users, (SELECT COUNT(*) FROM tasks) AS tasks`)
	if err != nil {
		return 0, 0, err
	}
	if len(res.Rows) != 1 {
		return 0, 0, apperr.Storage("status.counts", fmt.Errorf("got %d rows", len(res.Rows)))
	}

	row := res.Rows[0]

	if users, err = toInt(row["users"]); err != nil {
		return 0, 0, apperr.Storage("status.counts", err)
	}
	if tasks, err = toInt(row["tasks"]); err != nil {
		return 0, 0, apperr.Storage("status.counts", err)
	}

	return users, tasks, nil
}

// toInt normalises COUNT(*) across drivers: int64 from both pgx and sqlite,
// string when a driver hands back raw bytes.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case int:
		return n, nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
