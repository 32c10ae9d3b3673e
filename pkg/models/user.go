package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the authenticated principal. Every report and schedule belongs to
// exactly one user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse is returned by login and register: a session token pair plus
// the resolved user.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}
