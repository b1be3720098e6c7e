// Command initdb applies migrations and seeds the admin account, then exits.
// The API does the same at startup; this is for deploy pipelines that run
// schema changes as a separate step.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/db"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/geocoder89/taskmaster/internal/repo/sqlrepo"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.StoreDriver == config.DriverMemory {
		log.Error("initdb needs a persistent driver", "driver", cfg.StoreDriver)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("initdb failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	store, err := db.Open(cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Info("schema up to date", "driver", cfg.StoreDriver)

	created, err := db.EnsureAdminUser(ctx, sqlrepo.NewUsersRepo(store), cfg)
	if err != nil {
		return err
	}

	users, tasks, err := sqlrepo.NewCounter(store).Counts(ctx)
	if err != nil {
		return err
	}

	log.Info("initdb complete", "admin_created", created, "users", users, "tasks", tasks)
	return nil
}
