package models

import (
	"time"

	"github.com/google/uuid"
)

type ProfileUpdateStatus string

const (
	ProfileUpdatePending  ProfileUpdateStatus = "pending"
	ProfileUpdateApproved ProfileUpdateStatus = "approved"
	ProfileUpdateRejected ProfileUpdateStatus = "rejected"
)

// ProfileUpdateFields lists the user columns a client may ask to change.
var ProfileUpdateFields = map[string]bool{
	"name":              true,
	"phone":             true,
	"country":           true,
	"nationality":       true,
	"residence_country": true,
	"document_type":     true,
	"document_number":   true,
}

type ProfileUpdateRequest struct {
	ID         uuid.UUID           `json:"id"`
	UserID     uuid.UUID           `json:"user_id"`
	Changes    map[string]string   `json:"changes"`
	Status     ProfileUpdateStatus `json:"status"`
	ReviewedBy *uuid.UUID          `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time          `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
