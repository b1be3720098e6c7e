package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/cache"
	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/db"
	httpx "github.com/geocoder89/taskmaster/internal/http"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/geocoder89/taskmaster/internal/repo/memory"
	"github.com/geocoder89/taskmaster/internal/repo/sqlrepo"
	"github.com/geocoder89/taskmaster/internal/tasks"
	"github.com/geocoder89/taskmaster/internal/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	shutdownTracer, err := observability.InitTracer(context.Background(), observability.ServiceName, version, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	var draining atomic.Bool

	deps := httpx.Deps{
		Config:   cfg,
		Version:  version,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Prom:     prom,
		Gatherer: reg,
		Draining: draining.Load,
	}

	// storage
	store, err := db.Open(cfg, prom)
	if err != nil {
		log.Error("storage init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}

	statsCache, closeCache := newStatsCache(cfg, log)
	stats := cache.Instrument(statsCache, prom.StatsCacheLookup)

	var seedUsers db.AdminUsers

	if store != nil {
		usersRepo := sqlrepo.NewUsersRepo(store)
		seedUsers = usersRepo
		deps.Users = users.NewDirectory(usersRepo)
		deps.Tasks = tasks.NewService(sqlrepo.NewTasksRepo(store), stats)
		deps.Ping = store.Ping
		deps.Counter = sqlrepo.NewCounter(store)
	} else {
		mem := memory.NewStore()
		usersRepo := memory.NewUsersRepo(mem)
		seedUsers = usersRepo
		deps.Users = users.NewDirectory(usersRepo)
		deps.Tasks = tasks.NewService(memory.NewTasksRepo(mem), stats)
		deps.Counter = mem
		log.Warn("using in-memory storage, data is lost on restart")
	}

	seedCtx, cancelSeed := config.WithTimeout(10 * time.Second)
	created, err := db.EnsureAdminUser(seedCtx, seedUsers, cfg)
	cancelSeed()
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	// set up routers
	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "driver", cfg.StoreDriver, "version", version)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	draining.Store(true)

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}

		closeCache()

		if store != nil {
			store.Close()
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// newStatsCache picks Redis when REDIS_ADDR is set and reachable, otherwise
// an in-process cache.
func newStatsCache(cfg config.Config, log *slog.Logger) (cache.StatsCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryStats(cfg.StatsCacheTTL), func() {}
	}

	rc := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unreachable, falling back to in-process stats cache", "addr", cfg.RedisAddr, "err", err)
		_ = rc.Close()
		return cache.NewMemoryStats(cfg.StatsCacheTTL), func() {}
	}

	log.Info("stats cache on redis", "addr", cfg.RedisAddr)
	return cache.NewRedisStats(rc, cfg.StatsCacheTTL), func() { _ = rc.Close() }
}
