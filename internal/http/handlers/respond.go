package handlers

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/gin-gonic/gin"
)

// Envelope is the single response shape of the API.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondOK(ctx *gin.Context, status int, message string, data interface{}) {
	ctx.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, Envelope{
		Success:   false,
		Error:     code,
		Message:   message,
		RequestID: requestIDFrom(ctx),
		Details:   details,
	})
}

func RespondBadRequest(ctx *gin.Context, code, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, code, message, details)
}

func RespondNotFound(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusNotFound, code, message, nil)
}

func RespondInternal(ctx *gin.Context) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", "Internal server error.", nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusForbidden, code, message, nil)
}

// forbiddenAuthCodes are the auth failures that mean "known but refused"
// rather than "who are you".
var forbiddenAuthCodes = map[string]bool{
	"invalid_token": true,
	"inactive_user": true,
	"forbidden":     true,
}

// RespondErr is the one place typed errors become status codes. Storage and
// unknown errors are logged and answered with a generic message.
func RespondErr(ctx *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		slog.ErrorContext(ctx.Request.Context(), "unhandled_error", "err", err, "route", ctx.FullPath())
		RespondInternal(ctx)
		return
	}

	switch e.Kind {
	case apperr.KindValidation:
		RespondBadRequest(ctx, e.Code, e.Message, nil)
	case apperr.KindConflict:
		RespondConflict(ctx, e.Code, e.Message)
	case apperr.KindNotFound:
		RespondNotFound(ctx, e.Code, e.Message)
	case apperr.KindAuth:
		if forbiddenAuthCodes[e.Code] {
			RespondForbidden(ctx, e.Code, e.Message)
			return
		}
		RespondUnAuthorized(ctx, e.Code, e.Message)
	default:
		slog.ErrorContext(ctx.Request.Context(), "storage_error", "op", e.Message, "err", e.Err, "route", ctx.FullPath())
		RespondInternal(ctx)
	}
}
