package db

import (
	"errors"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsUniqueViolation reports a unique-constraint failure from either driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

// IsForeignKeyViolation reports a foreign-key failure from either driver.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}

	return false
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	if IsUniqueViolation(err) {
		e := apperr.Conflict("unique_violation", "Record already exists.")
		e.Err = err
		return e
	}

	if IsForeignKeyViolation(err) {
		e := apperr.NotFound("missing_reference", "Referenced record does not exist.")
		e.Err = err
		return e
	}

	return apperr.Storage(op, err)
}
