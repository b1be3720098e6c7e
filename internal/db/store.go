package db

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/geocoder89/taskmaster/internal/apperr"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrNoRows is returned by Row.Scan when the statement matched nothing,
// whatever the driver underneath.
var ErrNoRows = errors.New("db: no rows in result set")

// Result is what a statement produced. Reads fill Rows; writes fill
// RowsAffected and, when the driver reports one, LastInsertID.
type Result struct {
	Rows         []map[string]any
	RowsAffected int64
	LastInsertID int64
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close()
}

type Row interface {
	Scan(dest ...any) error
}

// Store is the persistence adapter every repository talks to. Statements
// are written with "?" placeholders; implementations rebind them for their
// dialect.
type Store interface {
	Dialect() Dialect
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Ping(ctx context.Context) error
	Close()
}

// Observer times a logical DB operation. observability.Prom satisfies it.
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

// Execute runs a statement and returns rows for reads and affected-row
// metadata for writes, so callers don't need to know which one it is.
func Execute(ctx context.Context, s Store, query string, args ...any) (Result, error) {
	if !IsRead(query) {
		return s.Exec(ctx, query, args...)
	}

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, storageErr("execute.columns", err)
	}

	out := Result{Rows: make([]map[string]any, 0)}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, storageErr("execute.scan", err)
		}

		m := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				m[c] = string(b)
				continue
			}
			m[c] = vals[i]
		}
		out.Rows = append(out.Rows, m)
	}

	if err := rows.Err(); err != nil {
		return Result{}, storageErr("execute.rows", err)
	}

	out.RowsAffected = int64(len(out.Rows))
	return out, nil
}

// storageErr keeps an error the store already classified and wraps anything
// else as a storage failure.
func storageErr(op string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Storage(op, err)
}

// IsRead reports whether a statement yields a row set.
func IsRead(query string) bool {
	upper := strings.ToUpper(strings.TrimSpace(query))

	for _, prefix := range []string{"SELECT", "WITH", "PRAGMA", "VALUES", "EXPLAIN"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}

	return strings.Contains(upper, " RETURNING ")
}

// Rebind rewrites "?" placeholders for the given dialect. Question marks
// inside single-quoted literals are left alone.
func Rebind(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false

	for i := 0; i < len(query); i++ {
		c := query[i]

		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// opName is the metrics label for a statement: its leading keyword.
func opName(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

func observe(o Observer, op string, fn func() error) error {
	if o != nil {
		return o.ObserveDB(op, fn)
	}
	return fn()
}
