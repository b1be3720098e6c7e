// Package repo holds what the storage backends share.
package repo

import "github.com/geocoder89/taskmaster/internal/apperr"

var (
	ErrUserNotFound = apperr.NotFound("user_not_found", "User not found.")
	ErrEmailTaken   = apperr.Conflict("email_taken", "Email is already registered.")
	ErrTaskNotFound = apperr.NotFound("task_not_found", "Task not found.")
	ErrNoOwner      = apperr.NotFound("missing_reference", "Referenced record does not exist.")
)
