package handlers

import (
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pathID reads a UUID path parameter, answering 400 invalid_id when it is
// malformed.
func pathID(ctx *gin.Context, name string) (string, bool) {
	raw := ctx.Param(name)

	id, err := uuid.Parse(raw)
	if err != nil {
		RespondBadRequest(ctx, "invalid_id", "Invalid "+name+".", gin.H{"param": name})
		return "", false
	}

	return id.String(), true
}

// actorID returns the authenticated user id. A route mounted without
// RequireAuth is a wiring bug, answered with 401.
func actorID(ctx *gin.Context) (string, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "missing_token", "Access token required.")
		return "", false
	}
	return id, true
}
