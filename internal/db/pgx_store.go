package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxStore runs statements on a pgx connection pool.
type PgxStore struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewPgxStore(pool *pgxpool.Pool, obs Observer) *PgxStore {
	return &PgxStore{pool: pool, obs: obs}
}

func (s *PgxStore) Dialect() Dialect {
	return DialectPostgres
}

func (s *PgxStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PgxStore) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	var res Result

	op := opName(query)

	err := observe(s.obs, op, func() error {
		tag, err := s.pool.Exec(ctx, Rebind(DialectPostgres, query), args...)
		if err != nil {
			return err
		}
		res.RowsAffected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return Result{}, wrapErr(op, err)
	}

	return res, nil
}

func (s *PgxStore) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	var rows pgx.Rows

	op := opName(query)

	err := observe(s.obs, op, func() error {
		var err error
		rows, err = s.pool.Query(ctx, Rebind(DialectPostgres, query), args...)
		return err
	})

	if err != nil {
		return nil, wrapErr(op, err)
	}

	return &pgxRows{rows: rows, op: op}, nil
}

func (s *PgxStore) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &pgxRow{
		row: s.pool.QueryRow(ctx, Rebind(DialectPostgres, query), args...),
		op:  opName(query),
		obs: s.obs,
	}
}

func (s *PgxStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PgxStore) Close() {
	s.pool.Close()
}

type pgxRows struct {
	rows pgx.Rows
	op   string
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgxRows) Columns() ([]string, error) {
	fds := r.rows.FieldDescriptions()
	cols := make([]string, 0, len(fds))
	for _, fd := range fds {
		cols = append(cols, fd.Name)
	}
	return cols, nil
}

func (r *pgxRows) Err() error {
	return wrapErr(r.op, r.rows.Err())
}

func (r *pgxRows) Close() {
	r.rows.Close()
}

type pgxRow struct {
	row pgx.Row
	op  string
	obs Observer
}

func (r *pgxRow) Scan(dest ...any) error {
	// an empty result is not a failed query, keep it out of the error metrics
	noRows := false

	err := observe(r.obs, r.op, func() error {
		err := r.row.Scan(dest...)
		if errors.Is(err, pgx.ErrNoRows) {
			noRows = true
			return nil
		}
		return err
	})

	if noRows {
		return ErrNoRows
	}

	return wrapErr(r.op, err)
}
