package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	IsActive     bool      `json:"isActive"`
	IsAdmin      bool      `json:"isAdmin"`
	AvatarURL    *string   `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Role is the claim carried in tokens.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Public drops the password hash.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Name bounds count characters. Passwords are bounded in bytes because
// bcrypt only accepts 72 of them.
const (
	NameMinChars     = 2
	NameMaxChars     = 100
	MaxPasswordBytes = 72
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateRequest is a partial update: nil fields keep their stored value.
type UpdateRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=2,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,url,max=500"`
}

// NewUser builds an active, non-admin user ready to be stored.
func NewUser(name, email, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
