package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UserDirectory interface {
	FindByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

type UsersHandler struct {
	users UserDirectory
}

func NewUsersHandler(users UserDirectory) *UsersHandler {
	return &UsersHandler{users: users}
}

// Me returns the user loaded by RequireAuth.
func (h *UsersHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "missing_token", "Access token required.")
		return
	}

	RespondOK(ctx, http.StatusOK, "", gin.H{"user": u.Public()})
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	userID, ok := actorID(ctx)
	if !ok {
		return
	}

	var req user.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if req.Name != nil {
		n := strings.TrimSpace(*req.Name)
		if fe, ok := checkName(n); !ok {
			respondFieldErrors(ctx, fe)
			return
		}
		req.Name = &n
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.users.Update(cctx, userID, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Profile updated successfully.", gin.H{"user": u})
}

// List is admin only.
func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, err := h.users.List(cctx)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "", gin.H{
		"users": items,
		"count": len(items),
	})
}

// Delete is admin only. The user's tasks go with it. Admins cannot remove
// their own account through this route.
func (h *UsersHandler) Delete(ctx *gin.Context) {
	actor, ok := actorID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if id == actor {
		RespondBadRequest(ctx, "cannot_delete_self", "Administrators cannot delete their own account.", nil)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.users.Delete(cctx, id); err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "User deleted successfully.", nil)
}
