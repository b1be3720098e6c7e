package db

import (
	"context"
	"database/sql"
	"errors"
)

// SQLStore runs statements on a database/sql handle. It backs the SQLite
// deployment.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	obs     Observer
}

func NewSQLStore(sqlDB *sql.DB, dialect Dialect, obs Observer) *SQLStore {
	return &SQLStore{db: sqlDB, dialect: dialect, obs: obs}
}

func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	var res Result

	op := opName(query)

	err := observe(s.obs, op, func() error {
		r, err := s.db.ExecContext(ctx, Rebind(s.dialect, query), args...)
		if err != nil {
			return err
		}

		res.RowsAffected, err = r.RowsAffected()
		if err != nil {
			return err
		}

		// not every driver/statement has one
		if id, err := r.LastInsertId(); err == nil {
			res.LastInsertID = id
		}
		return nil
	})

	if err != nil {
		return Result{}, wrapErr(op, err)
	}

	return res, nil
}

func (s *SQLStore) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	var rows *sql.Rows

	op := opName(query)

	err := observe(s.obs, op, func() error {
		var err error
		rows, err = s.db.QueryContext(ctx, Rebind(s.dialect, query), args...)
		return err
	})

	if err != nil {
		return nil, wrapErr(op, err)
	}

	return &sqlRows{rows: rows, op: op}, nil
}

func (s *SQLStore) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &sqlRow{
		ctx:   ctx,
		db:    s.db,
		query: Rebind(s.dialect, query),
		args:  args,
		op:    opName(query),
		obs:   s.obs,
	}
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() {
	_ = s.db.Close()
}

type sqlRows struct {
	rows *sql.Rows
	op   string
}

func (r *sqlRows) Next() bool {
	return r.rows.Next()
}

func (r *sqlRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *sqlRows) Columns() ([]string, error) {
	return r.rows.Columns()
}

func (r *sqlRows) Err() error {
	return wrapErr(r.op, r.rows.Err())
}

func (r *sqlRows) Close() {
	_ = r.rows.Close()
}

// sqlRow defers the query to Scan so the whole round-trip is observed once.
type sqlRow struct {
	ctx   context.Context
	db    *sql.DB
	query string
	args  []any
	op    string
	obs   Observer
}

func (r *sqlRow) Scan(dest ...any) error {
	// an empty result is not a failed query, keep it out of the error metrics
	noRows := false

	err := observe(r.obs, r.op, func() error {
		err := r.db.QueryRowContext(r.ctx, r.query, r.args...).Scan(dest...)
		if errors.Is(err, sql.ErrNoRows) {
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
