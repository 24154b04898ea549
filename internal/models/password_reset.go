package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordReset stores only the SHA-256 of the emailed token.
type PasswordReset struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
