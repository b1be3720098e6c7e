package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/taskmaster/internal/actorctx"
	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these small interfaces so tests can fake them easily.
type TokenVerifier interface {
	ParseAndValidate(token string) (*auth.Claims, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt      TokenVerifier
	users    UserLookup
	failures func(reason string)
}

func NewAuthMiddleware(jwt TokenVerifier, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

// OnFailure registers a callback for every rejected request, keyed by the
// error code sent to the client.
func (m *AuthMiddleware) OnFailure(fn func(reason string)) *AuthMiddleware {
	m.failures = fn
	return m
}

// RequireAuth resolves the bearer token to a live, active user.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			m.reject(c, http.StatusUnauthorized, "missing_token", "Access token required.")
			return
		}

		claims, err := m.jwt.ParseAndValidate(raw)
		if err != nil {
			m.reject(c, http.StatusForbidden, "invalid_token", "Invalid or expired token.")
			return
		}

		cctx, cancel := config.WithTimeoutFrom(c.Request.Context(), 2*time.Second)
		defer cancel()

		u, err := m.users.FindByID(cctx, claims.UserID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				m.reject(c, http.StatusUnauthorized, "stale_token", "Token refers to a user that no longer exists.")
				return
			}

			slog.ErrorContext(c.Request.Context(), "auth_user_lookup_failed", "err", err)
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Internal server error.")
			return
		}

		if !u.IsActive {
			m.reject(c, http.StatusForbidden, "inactive_user", "User account is inactive.")
			return
		}

		// Stash useful bits of identity on the context
		c.Set(CtxUser, u)
		c.Set(CtxUserID, u.ID)
		c.Set(CtxEmail, u.Email)
		c.Set(CtxRole, u.Role())

		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), u.ID))

		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, status int, code, message string) {
	if m.failures != nil {
		m.failures(code)
	}
	abortWithError(c, status, code, message)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")

	scheme, raw, found := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxRole)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
