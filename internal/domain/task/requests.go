package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title            string     `json:"title" binding:"required,min=1,max=255"`
	Description      *string    `json:"description" binding:"omitempty,max=5000"`
	Status           Status     `json:"status" binding:"omitempty,oneof=pending in-progress done"`
	Priority         Priority   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate          *time.Time `json:"dueDate"`
	Category         *string    `json:"category" binding:"omitempty,max=50"`
	Tags             []string   `json:"tags" binding:"omitempty,max=20,dive,min=1,max=30"`
	EstimatedMinutes *int       `json:"estimatedMinutes" binding:"omitempty,min=1"`
}

// UpdateTaskRequest backs PUT: title is required, everything else is
// coalesced with the stored row.
type UpdateTaskRequest struct {
	Title            string     `json:"title" binding:"required,min=1,max=255"`
	Description      *string    `json:"description" binding:"omitempty,max=5000"`
	Status           *Status    `json:"status" binding:"omitempty,oneof=pending in-progress done"`
	Priority         *Priority  `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate          *time.Time `json:"dueDate"`
	Category         *string    `json:"category" binding:"omitempty,max=50"`
	Tags             []string   `json:"tags" binding:"omitempty,max=20,dive,min=1,max=30"`
	EstimatedMinutes *int       `json:"estimatedMinutes" binding:"omitempty,min=1"`
	SpentMinutes     *int       `json:"spentMinutes" binding:"omitempty,min=0"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=pending in-progress done"`
}

// Patch is the repository-level partial update. A nil field keeps the stored
// value; Tags keeps the stored value when nil and replaces it otherwise.
type Patch struct {
	Title            *string
	Description      *string
	Status           *Status
	Priority         *Priority
	DueDate          *time.Time
	Category         *string
	Tags             []string
	EstimatedMinutes *int
	SpentMinutes     *int
}

func (r UpdateTaskRequest) Patch() Patch {
	title := strings.TrimSpace(r.Title)

	p := Patch{
		Title:            &title,
		Description:      r.Description,
		Status:           r.Status,
		Priority:         r.Priority,
		Category:         r.Category,
		Tags:             r.Tags,
		EstimatedMinutes: r.EstimatedMinutes,
		SpentMinutes:     r.SpentMinutes,
	}

	if r.DueDate != nil {
		d := r.DueDate.UTC()
		p.DueDate = &d
	}

	return p
}

// StatusPatch changes status only.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

// Apply coalesces p onto t and refreshes UpdatedAt.
func (p Patch) Apply(t Task, now time.Time) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.Category != nil {
		t.Category = p.Category
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), p.Tags...)
	}
	if p.EstimatedMinutes != nil {
		t.EstimatedMinutes = p.EstimatedMinutes
	}
	if p.SpentMinutes != nil {
		t.SpentMinutes = *p.SpentMinutes
	}

	t.UpdatedAt = now
	return t
}

// NewFromCreateRequest fills defaults and assigns an id.
func NewFromCreateRequest(req CreateTaskRequest, userID string) Task {
	now := time.Now().UTC()

	t := Task{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Status:           req.Status,
		Priority:         req.Priority,
		Category:         req.Category,
		Tags:             append([]string{}, req.Tags...),
		EstimatedMinutes: req.EstimatedMinutes,
		UserID:           userID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if req.DueDate != nil {
		d := req.DueDate.UTC()
		t.DueDate = &d
	}

	return t
}
