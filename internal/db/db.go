package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

func NewPool(dbURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// OpenSQLite opens a SQLite database with foreign keys enforced. path may be
// ":memory:".
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := sqliteDSN(path)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// one writer; an in-memory database also lives and dies with its connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return sqlDB, nil
}

func sqliteDSN(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}

	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}

	return "file:" + path + "?" + pragmas
}

// Open builds the Store selected by cfg.StoreDriver and brings its schema up
// to date. It returns nil, nil for the memory driver.
func Open(cfg config.Config, obs Observer) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := MigratePostgres(cfg.DBURL); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}

		pool, err := NewPool(cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return NewPgxStore(pool, obs), nil

	case config.DriverSQLite:
		sqlDB, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		if err := MigrateSQLite(sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}

		return NewSQLStore(sqlDB, DialectSQLite, obs), nil

	case config.DriverMemory:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
