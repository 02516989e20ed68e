package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the "About me" text shown on a user's profile page.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	About     string    `json:"about"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UpdateProfileRequest struct {
	About string `json:"about" form:"description" binding:"max=2000"`
}
