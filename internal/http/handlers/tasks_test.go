package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/handlers"
	"github.com/geocoder89/taskmaster/internal/repo"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Fake implementation of the handlers.TaskService interface

type fakeTaskService struct {
	createFn       func(ctx context.Context, req task.CreateTaskRequest, userID string) (task.Task, error)
	getFn          func(ctx context.Context, id, userID string) (task.Task, error)
	listFn         func(ctx context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error)
	updateFn       func(ctx context.Context, id, userID string, req task.UpdateTaskRequest) (task.Task, error)
	updateStatusFn func(ctx context.Context, id, userID string, s task.Status) (task.Task, error)
	deleteFn       func(ctx context.Context, id, userID string) error
	statsFn        func(ctx context.Context, userID string) (task.Stats, error)
}

func (f *fakeTaskService) Create(ctx context.Context, req task.CreateTaskRequest, userID string) (task.Task, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req, userID)
	}
	return task.Task{}, nil
}

func (f *fakeTaskService) Get(ctx context.Context, id, userID string) (task.Task, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id, userID)
	}
	return task.Task{}, nil
}

func (f *fakeTaskService) List(ctx context.Context, userID string, fl task.ListFilter, o task.Ordering) ([]task.Task, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, fl, o)
	}
	return []task.Task{}, nil
}

func (f *fakeTaskService) Update(ctx context.Context, id, userID string, req task.UpdateTaskRequest) (task.Task, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, userID, req)
	}
	return task.Task{}, nil
}

func (f *fakeTaskService) UpdateStatus(ctx context.Context, id, userID string, s task.Status) (task.Task, error) {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, userID, s)
	}
	return task.Task{}, nil
}

func (f *fakeTaskService) Delete(ctx context.Context, id, userID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id, userID)
	}
	return nil
}

func (f *fakeTaskService) Stats(ctx context.Context, userID string) (task.Stats, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx, userID)
	}
	return task.Stats{}, nil
}

var alice = &user.User{ID: "0b7c6f0e-4a53-4d44-9c5e-2f7a3d0f1a11", Name: "Alice", Email: "alice@example.com", IsActive: true}

func TestCreateTaskHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		body           string
		as             *user.User
		svcSetUp       func(*fakeTaskService)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{"title":"Write report","priority":"high","tags":["work"]}`,
			as:   alice,
			svcSetUp: func(f *fakeTaskService) {
				f.createFn = func(ctx context.Context, req task.CreateTaskRequest, userID string) (task.Task, error) {
					if userID != alice.ID {
						t.Errorf("got owner %q", userID)
					}
					tk := task.NewFromCreateRequest(req, userID)
					tk.CreatedAt, tk.UpdatedAt = now, now
					return tk, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "blank title",
			body:           `{"title":"   "}`,
			as:             alice,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad status",
			body:           `{"title":"x","status":"blocked"}`,
			as:             alice,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "no identity",
			body:           `{"title":"x"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "service error",
			body: `{"title":"x"}`,
			as:   alice,
			svcSetUp: func(f *fakeTaskService) {
				f.createFn = func(ctx context.Context, req task.CreateTaskRequest, userID string) (task.Task, error) {
					return task.Task{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeTaskService{
				createFn: func(ctx context.Context, req task.CreateTaskRequest, userID string) (task.Task, error) {
					t.Fatalf("service should not be called")
					return task.Task{}, nil
				},
			}
			if tt.svcSetUp != nil {
				tt.svcSetUp(svc)
			}

			h := handlers.NewTasksHandler(svc)
			r := setupRouter(http.MethodPost, "/tasks", h.Create, tt.as)

			req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if w.Code == http.StatusCreated {
				var data struct {
					Task task.Task `json:"task"`
				}
				decodeData(t, decodeEnvelope(t, w), &data)

				if data.Task.Status != task.StatusPending || data.Task.Priority != task.PriorityHigh {
					t.Fatalf("unexpected task: %+v", data.Task)
				}
			}
		})
	}
}

func TestListTasksHandler(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		wantStatusCode int
		check          func(t *testing.T, f task.ListFilter, o task.Ordering)
	}{
		{
			name:           "defaults",
			query:          "",
			wantStatusCode: http.StatusOK,
			check: func(t *testing.T, f task.ListFilter, o task.Ordering) {
				if f.Status != nil || f.Priority != nil || f.Category != nil {
					t.Fatalf("expected no filters, got %+v", f)
				}
				if o != task.DefaultOrdering {
					t.Fatalf("got ordering %+v", o)
				}
			},
		},
		{
			name:           "filters and ordering",
			query:          "?status=in-progress&priority=urgent&category=work&orderBy=dueDate&orderDirection=DESC",
			wantStatusCode: http.StatusOK,
			check: func(t *testing.T, f task.ListFilter, o task.Ordering) {
				if f.Status == nil || *f.Status != task.StatusInProgress {
					t.Fatalf("status filter: %+v", f.Status)
				}
				if f.Priority == nil || *f.Priority != task.PriorityUrgent {
					t.Fatalf("priority filter: %+v", f.Priority)
				}
				if f.Category == nil || *f.Category != "work" {
					t.Fatalf("category filter: %+v", f.Category)
				}
				if o != (task.Ordering{Field: task.OrderDueDate, Desc: true}) {
					t.Fatalf("got ordering %+v", o)
				}
			},
		},
		{
			name:           "unknown order field falls back",
			query:          "?orderBy=password",
			wantStatusCode: http.StatusOK,
			check: func(t *testing.T, f task.ListFilter, o task.Ordering) {
				if o != task.DefaultOrdering {
					t.Fatalf("got ordering %+v", o)
				}
			},
		},
		{
			name:           "invalid status",
			query:          "?status=archived",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid priority",
			query:          "?priority=whenever",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &fakeTaskService{
				listFn: func(ctx context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error) {
					called = true
					if tt.check != nil {
						tt.check(t, f, o)
					}
					return []task.Task{{ID: "t1", Title: "a", UserID: userID, Tags: []string{}}}, nil
				},
			}

			h := handlers.NewTasksHandler(svc)
			r := setupRouter(http.MethodGet, "/tasks", h.List, alice)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks"+tt.query, nil))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusOK {
				if called {
					t.Fatalf("service called for a rejected query")
				}
				if env := decodeEnvelope(t, w); env.Error != "invalid_filter" {
					t.Fatalf("got error %q", env.Error)
				}
				return
			}

			var data struct {
				Tasks []task.Task `json:"tasks"`
				Count int         `json:"count"`
			}
			decodeData(t, decodeEnvelope(t, w), &data)
			if data.Count != 1 || len(data.Tasks) != 1 {
				t.Fatalf("got %+v", data)
			}
			if w.Header().Get("ETag") == "" {
				t.Fatalf("expected an ETag header")
			}
		})
	}
}

func TestGetTaskHandler(t *testing.T) {
	known := uuid.NewString()

	svc := &fakeTaskService{
		getFn: func(ctx context.Context, id, userID string) (task.Task, error) {
			if id == known && userID == alice.ID {
				return task.Task{ID: id, Title: "mine", UserID: userID}, nil
			}
			return task.Task{}, repo.ErrTaskNotFound
		},
	}

	h := handlers.NewTasksHandler(svc)
	r := setupRouter(http.MethodGet, "/tasks/:id", h.Get, alice)

	tests := []struct {
		name     string
		id       string
		want     int
		wantCode string
	}{
		{"found", known, http.StatusOK, ""},
		{"someone else's or missing", uuid.NewString(), http.StatusNotFound, "task_not_found"},
		{"malformed id", "not-a-uuid", http.StatusBadRequest, "invalid_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/"+tt.id, nil))

			if w.Code != tt.want {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.want, w.Body.String())
			}
			if env := decodeEnvelope(t, w); env.Error != tt.wantCode {
				t.Fatalf("got error %q, want %q", env.Error, tt.wantCode)
			}
		})
	}
}

func TestUpdateTaskHandler(t *testing.T) {
	id := uuid.NewString()

	var got task.UpdateTaskRequest
	svc := &fakeTaskService{
		updateFn: func(ctx context.Context, tid, userID string, req task.UpdateTaskRequest) (task.Task, error) {
			got = req
			return task.Task{ID: tid, Title: req.Title, UserID: userID}, nil
		},
	}

	h := handlers.NewTasksHandler(svc)
	r := setupRouter(http.MethodPut, "/tasks/:id", h.Update, alice)

	req := httptest.NewRequest(http.MethodPut, "/tasks/"+id, bytes.NewBufferString(`{"title":"Renamed","spentMinutes":15}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if got.Title != "Renamed" || got.SpentMinutes == nil || *got.SpentMinutes != 15 || got.Status != nil {
		t.Fatalf("unexpected request forwarded: %+v", got)
	}

	req = httptest.NewRequest(http.MethodPut, "/tasks/"+id, bytes.NewBufferString(`{"priority":"low"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing title: got status %d, want 400", w.Code)
	}
}

func TestUpdateTaskStatusHandler(t *testing.T) {
	id := uuid.NewString()

	svc := &fakeTaskService{
		updateStatusFn: func(ctx context.Context, tid, userID string, s task.Status) (task.Task, error) {
			return task.Task{ID: tid, Status: s, UserID: userID}, nil
		},
	}

	h := handlers.NewTasksHandler(svc)
	r := setupRouter(http.MethodPatch, "/tasks/:id/status", h.UpdateStatus, alice)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"done", `{"status":"done"}`, http.StatusOK},
		{"unknown status", `{"status":"later"}`, http.StatusBadRequest},
		{"missing status", `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/tasks/"+id+"/status", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestDeleteTaskHandler(t *testing.T) {
	id := uuid.NewString()

	svc := &fakeTaskService{
		deleteFn: func(ctx context.Context, tid, userID string) error {
			if tid != id {
				return repo.ErrTaskNotFound
			}
			return nil
		},
	}

	h := handlers.NewTasksHandler(svc)
	r := setupRouter(http.MethodDelete, "/tasks/:id", h.Delete, alice)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/tasks/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if env := decodeEnvelope(t, w); !env.Success || env.Message == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/tasks/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

func TestTaskStatsHandler_ETag(t *testing.T) {
	svc := &fakeTaskService{
		statsFn: func(ctx context.Context, userID string) (task.Stats, error) {
			return task.Stats{Total: 3, Pending: 1, InProgress: 1, Done: 1, Overdue: 1}, nil
		},
	}

	h := handlers.NewTasksHandler(svc)
	r := setupRouter(http.MethodGet, "/tasks/stats", h.Stats, alice)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var data struct {
		Stats task.Stats `json:"stats"`
	}
	decodeData(t, decodeEnvelope(t, w), &data)
	if data.Stats.Total != 3 || data.Stats.Overdue != 1 {
		t.Fatalf("got stats %+v", data.Stats)
	}

	etag := w.Header().Get("ETag")
	req := httptest.NewRequest(http.MethodGet, "/tasks/stats", nil)
	req.Header.Set("If-None-Match", "W/"+etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("got status %d, want 304", w.Code)
	}
}

func TestBlankTitleFieldError(t *testing.T) {
	h := handlers.NewTasksHandler(&fakeTaskService{})
	id := uuid.NewString()

	tests := []struct {
		name   string
		method string
		route  string
		path   string
		handle gin.HandlerFunc
	}{
		{"create", http.MethodPost, "/tasks", "/tasks", h.Create},
		{"update", http.MethodPut, "/tasks/:id", "/tasks/" + id, h.Update},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(tt.method, tt.route, tt.handle, alice)

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(`{"title":" \t "}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
			}

			fe, ok := fieldErrors(t, decodeEnvelope(t, w))["title"]
			if !ok || fe.Rule != "required" || fe.Message != "is required" {
				t.Fatalf("got title error %+v", fe)
			}
		})
	}
}

func TestListTasksHandler_ETagTracksUpdates(t *testing.T) {
	stamp := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	items := []task.Task{
		{ID: "t1", Title: "a", UserID: alice.ID, Tags: []string{}, UpdatedAt: stamp},
		{ID: "t2", Title: "b", UserID: alice.ID, Tags: []string{}, UpdatedAt: stamp},
	}

	svc := &fakeTaskService{
		listFn: func(ctx context.Context, userID string, f task.ListFilter, o task.Ordering) ([]task.Task, error) {
			return items, nil
		},
	}
	r := setupRouter(http.MethodGet, "/tasks", handlers.NewTasksHandler(svc).List, alice)

	get := func(ifNoneMatch string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		if ifNoneMatch != "" {
			req.Header.Set("If-None-Match", ifNoneMatch)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := get("").Header().Get("ETag")
	if first == "" {
		t.Fatalf("expected an ETag header")
	}

	if w := get(first); w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("unchanged list: got %d with %d body bytes, want empty 304", w.Code, w.Body.Len())
	}

	items[1].UpdatedAt = stamp.Add(time.Second)
	w := get(first)
	if w.Code != http.StatusOK {
		t.Fatalf("updated task: got %d, want 200", w.Code)
	}
	if w.Header().Get("ETag") == first {
		t.Fatalf("ETag did not change after an update")
	}

	items[0], items[1] = items[1], items[0]
	if reordered := get("").Header().Get("ETag"); reordered == w.Header().Get("ETag") {
		t.Fatalf("ETag did not change after reordering")
	}
}
