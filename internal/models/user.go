package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks basic user fields
func (u *User) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("username is required")
	}
	if len(u.Name) < 2 || len(u.Name) > 50 {
		return fmt.Errorf("username length invalid")
	}
	if !usernamePattern.MatchString(u.Name) {
		return fmt.Errorf("username may only contain letters, digits and underscores")
	}
	return nil
}

type UserPresence struct {
	Username string    `json:"username"`
	Status   string    `json:"status"` // online, offline
	LastSeen time.Time `json:"last_seen"`
}

type CreateUserRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
