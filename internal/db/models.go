package db

import (
	"time"
)

// User represents a Spotify user profile.
type User struct {
	ID          string    `db:"id"`
	DisplayName string    `db:"display_name"`
	Email       string    `db:"email"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Session represents an authenticated web session. Its ID doubles as the
// bearer token handed to CLI clients.
type Session struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	UserName     string    `db:"display_name"` // read only, from users
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	TokenExpiry  time.Time `db:"token_expiry"`
	CreatedAt    time.Time `db:"created_at"`
	ExpiresAt    time.Time `db:"expires_at"`
}
