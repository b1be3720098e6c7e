package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/taskmaster/internal/apperr"
	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type Accounts interface {
	Register(ctx context.Context, req user.RegisterRequest) (user.User, error)
	VerifyCredentials(ctx context.Context, email, password string) (user.User, error)
}

type TokenIssuer interface {
	GenerateToken(userID, email, role string) (string, error)
	ParseAndValidate(token string) (*auth.Claims, error)
}

type AuthHandler struct {
	accounts Accounts
	tokens   TokenIssuer
	failures func(reason string)
}

func NewAuthHandler(accounts Accounts, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

// OnFailure registers a callback for rejected logins and verifications.
func (h *AuthHandler) OnFailure(fn func(reason string)) *AuthHandler {
	h.failures = fn
	return h
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)

	var fields []FieldError
	if fe, ok := checkName(req.Name); !ok {
		fields = append(fields, fe)
	}
	if len(req.Password) > user.MaxPasswordBytes {
		fields = append(fields, FieldError{
			Field:   "password",
			Rule:    "max",
			Param:   strconv.Itoa(user.MaxPasswordBytes),
			Message: "must be at most " + strconv.Itoa(user.MaxPasswordBytes) + " bytes",
		})
	}
	if len(fields) > 0 {
		respondFieldErrors(ctx, fields...)
		return
	}

	// bcrypt at cost 12 dominates this budget
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	u, err := h.accounts.Register(cctx, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	token, err := h.tokens.GenerateToken(u.ID, u.Email, u.Role())
	if err != nil {
		RespondInternal(ctx)
		return
	}

	RespondOK(ctx, http.StatusCreated, "User registered successfully.", gin.H{
		"token": token,
		"user":  u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	u, err := h.accounts.VerifyCredentials(cctx, req.Email, req.Password)
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Kind == apperr.KindAuth {
			h.failed(e.Code)
		}
		RespondErr(ctx, err)
		return
	}

	if !u.IsActive {
		h.failed("inactive_user")
		RespondForbidden(ctx, "inactive_user", "User account is inactive.")
		return
	}

	token, err := h.tokens.GenerateToken(u.ID, u.Email, u.Role())
	if err != nil {
		RespondInternal(ctx)
		return
	}

	RespondOK(ctx, http.StatusOK, "Login successful.", gin.H{
		"token": token,
		"user":  u,
	})
}

// Verify reports whether the presented token is currently valid. It checks
// the signature and expiry only; it does not load the user.
func (h *AuthHandler) Verify(ctx *gin.Context) {
	raw, ok := middlewares.BearerToken(ctx)
	if !ok {
		h.failed("missing_token")
		RespondUnAuthorized(ctx, "missing_token", "Access token required.")
		return
	}

	claims, err := h.tokens.ParseAndValidate(raw)
	if err != nil {
		h.failed("invalid_token")
		RespondUnAuthorized(ctx, "invalid_token", "Invalid or expired token.")
		return
	}

	data := gin.H{
		"valid": true,
		"user": gin.H{
			"id":    claims.UserID,
			"email": claims.Email,
			"role":  claims.Role,
		},
	}
	if claims.ExpiresAt != nil {
		data["expiresAt"] = claims.ExpiresAt.Time.UTC()
	}

	RespondOK(ctx, http.StatusOK, "", data)
}

// checkName applies the name bounds to an already trimmed value.
func checkName(name string) (FieldError, bool) {
	n := utf8.RuneCountInString(name)
	switch {
	case n < user.NameMinChars:
		return fieldError("name", "min", strconv.Itoa(user.NameMinChars)), false
	case n > user.NameMaxChars:
		return fieldError("name", "max", strconv.Itoa(user.NameMaxChars)), false
	}
	return FieldError{}, true
}

func (h *AuthHandler) failed(reason string) {
	if h.failures != nil {
		h.failures(reason)
	}
}
