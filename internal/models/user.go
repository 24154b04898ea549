package models

import (
	"time"

	"github.com/google/uuid"

	"remesas/internal/authz"
)

// KYCStatus is the status mirrored onto the user row.
type KYCStatus string

const (
	KYCStatusNone     KYCStatus = "none"
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

type User struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"` // не отдаём наружу
	Name             string     `json:"name"`
	Phone            string     `json:"phone,omitempty"`
	Country          string     `json:"country,omitempty"`
	Nationality      string     `json:"nationality,omitempty"`
	ResidenceCountry string     `json:"residence_country,omitempty"`
	DocumentType     string     `json:"document_type,omitempty"`
	DocumentNumber   string     `json:"document_number,omitempty"`
	Role             authz.Role `json:"role"`
	Verified         bool       `json:"verified"`
	KYCStatus        KYCStatus  `json:"kyc_status"`
	KYCID            *uuid.UUID `json:"kyc_id,omitempty"`
	KYCVerifiedAt    *time.Time `json:"kyc_verified_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CanEditDocuments reports whether the owner may (re)upload KYC documents.
func (u *User) CanEditDocuments() bool {
	return u.KYCStatus == KYCStatusNone || u.KYCStatus == KYCStatusRejected
}

type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Country          string `json:"country"`
	Nationality      string `json:"nationality"`
	ResidenceCountry string `json:"residence_country"`
	DocumentType     string `json:"document_type"`
	DocumentNumber   string `json:"document_number"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
	Role     string `json:"role"`
}
