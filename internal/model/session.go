package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side session row. The ID is the SHA-256 digest of the
// opaque token handed to the client; the raw token itself is never stored,
// so a leaked sessions table cannot be replayed.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
