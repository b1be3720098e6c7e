package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/gin-gonic/gin"
)

type Counter interface {
	Counts(ctx context.Context) (users, tasks int, err error)
}

// ServiceInfo is what GET /status reports about the running process.
type ServiceInfo struct {
	Name    string
	Version string
	Env     string
	Driver  string
}

type StatusHandler struct {
	info    ServiceInfo
	ping    func(ctx context.Context) error
	counter Counter
	started time.Time
	now     func() time.Time
}

func NewStatusHandler(info ServiceInfo, ping func(ctx context.Context) error, counter Counter) *StatusHandler {
	return &StatusHandler{
		info:    info,
		ping:    ping,
		counter: counter,
		started: time.Now(),
		now:     time.Now,
	}
}

func (h *StatusHandler) Status(ctx *gin.Context) {
	connected := true
	if h.ping != nil {
		cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), time.Second)
		defer cancel()
		connected = h.ping(cctx) == nil
	}

	now := h.now()

	RespondOK(ctx, http.StatusOK, "", gin.H{
		"name":          h.info.Name,
		"version":       h.info.Version,
		"environment":   h.info.Env,
		"storage":       h.info.Driver,
		"database":      gin.H{"connected": connected},
		"uptimeSeconds": int64(now.Sub(h.started).Seconds()),
		"time":          now.UTC(),
	})
}

// Database reports row counts and how long they took to fetch.
func (h *StatusHandler) Database(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	users, tasks, err := h.counter.Counts(cctx)
	if err != nil {
		slog.WarnContext(ctx.Request.Context(), "status_db_failed", "err", err, "driver", h.info.Driver)
		RespondError(ctx, http.StatusServiceUnavailable, "db_unavailable", "Database is unavailable.", nil)
		return
	}

	RespondOK(ctx, http.StatusOK, "", gin.H{
		"driver":    h.info.Driver,
		"users":     users,
		"tasks":     tasks,
		"latencyMs": time.Since(start).Milliseconds(),
	})
}
