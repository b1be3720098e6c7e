package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/gin-gonic/gin"
)

type TaskService interface {
	Create(ctx context.Context, req task.CreateTaskRequest, userID string) (task.Task, error)
	Get(ctx context.Context, id, userID string) (task.Task, error)
	List(ctx context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error)
	Update(ctx context.Context, id, userID string, req task.UpdateTaskRequest) (task.Task, error)
	UpdateStatus(ctx context.Context, id, userID string, status task.Status) (task.Task, error)
	Delete(ctx context.Context, id, userID string) error
	Stats(ctx context.Context, userID string) (task.Stats, error)
}

type TasksHandler struct {
	svc TaskService
}

func NewTasksHandler(svc TaskService) *TasksHandler {
	return &TasksHandler{svc: svc}
}

const taskTimeout = 3 * time.Second

// List handles GET /tasks?status=&priority=&category=&orderBy=&orderDirection=
func (h *TasksHandler) List(ctx *gin.Context) {
	userID, ok := actorID(ctx)
	if !ok {
		return
	}

	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}
	ordering := task.ParseOrdering(ctx.Query("orderBy"), ctx.Query("orderDirection"))

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), taskTimeout)
	defer cancel()

	items, err := h.svc.List(cctx, userID, filter, ordering)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	respondCached(ctx, taskListETag(items), Envelope{
		Success: true,
		Data: gin.H{
			"tasks": items,
			"count": len(items),
		},
	})
}

func parseListFilter(ctx *gin.Context) (task.ListFilter, bool) {
	var f task.ListFilter

	if raw := strings.TrimSpace(ctx.Query("status")); raw != "" {
		s := task.Status(raw)
		if !s.IsValid() {
			RespondBadRequest(ctx, "invalid_filter", "status must be one of pending, in-progress, done.", gin.H{"param": "status"})
			return f, false
		}
		f.Status = &s
	}

	if raw := strings.TrimSpace(ctx.Query("priority")); raw != "" {
		p := task.Priority(raw)
		if !p.IsValid() {
			RespondBadRequest(ctx, "invalid_filter", "priority must be one of low, medium, high, urgent.", gin.H{"param": "priority"})
			return f, false
		}
		f.Priority = &p
	}

	if raw := strings.TrimSpace(ctx.Query("category")); raw != "" {
		f.Category = &raw
	}

	return f, true
}

func (h *TasksHandler) Stats(ctx *gin.Context) {
	userID, ok := actorID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), taskTimeout)
	defer cancel()

	stats, err := h.svc.Stats(cctx, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	respondCached(ctx, statsETag(stats), Envelope{
		Success: true,
		Data:    gin.H{"stats": stats},
	})
}

func (h *TasksHandler) Get(ctx *gin.Context) {
	userID, ok := actorID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), taskTimeout)
	defer cancel()

	t, err := h.svc.Get(cctx, id, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "", gin.H{"task": t})
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	userID, ok := actorID(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		respondFieldErrors(ctx, requiredField("title"))
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), taskTimeout)
	defer cancel()

	t, err := h.svc.Create(cctx, req, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusCreated, "Task created successfully.", gin.H{"task": t})
}

// Update handles PUT /tasks/:id. Title is required; omitted optional fields
// keep their stored values.
func (h *TasksHandler) Update(ctx *gin.Context) {
	userID, ok := actorID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req task.UpdateTaskRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		respondFieldErrors(ctx, requiredField("title"))
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), taskTimeout)
	defer cancel()

	t, err := h.svc.Update(cctx, id, userID, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Task updated successfully.", gin.H{"task": t})
}

func (h *TasksHandler) UpdateStatus(ctx *gin.Context) {
	userID, ok := actorID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req task.UpdateStatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), taskTimeout)
	defer cancel()

	t, err := h.svc.UpdateStatus(cctx, id, userID, req.Status)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Task status updated successfully.", gin.H{"task": t})
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	userID, ok := actorID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), taskTimeout)
	defer cancel()

	if err := h.svc.Delete(cctx, id, userID); err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Task deleted successfully.", nil)
}
