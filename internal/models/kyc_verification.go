package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the status of a kyc_verifications row.
type VerificationStatus string

const (
	VerificationDraft    VerificationStatus = "draft"
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
	VerificationExpired  VerificationStatus = "expired"
)

// DocumentType identifies one of the four document slots.
type DocumentType string

const (
	DocumentFront      DocumentType = "document_front"
	DocumentBack       DocumentType = "document_back"
	Selfie             DocumentType = "selfie"
	SelfieWithDocument DocumentType = "selfie_with_document"
)

// RequiredDocuments must all be present before review.
var RequiredDocuments = []DocumentType{Selfie, DocumentFront, SelfieWithDocument}

func (d DocumentType) Valid() bool {
	switch d {
	case DocumentFront, DocumentBack, Selfie, SelfieWithDocument:
		return true
	}
	return false
}

// IdentityDocuments accepted in personal info.
var IdentityDocuments = map[string]bool{
	"dni":              true,
	"passport":         true,
	"residence_permit": true,
	"driver_license":   true,
}

type KYCVerification struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Nationality      string     `json:"nationality"`
	ResidenceCountry string     `json:"residence_country"`
	DocumentType     string     `json:"document_type"`
	DocumentNumber   string     `json:"document_number"`

	PhoneNumber               string     `json:"phone_number"`
	PhoneVerified             bool       `json:"phone_verified"`
	PhoneVerifiedAt           *time.Time `json:"phone_verified_at,omitempty"`
	PhoneVerificationCode     *string    `json:"-"`
	PhoneVerificationExpires  *time.Time `json:"-"`
	PhoneVerificationAttempts int        `json:"phone_verification_attempts"`

	DocumentFront      *string `json:"document_front,omitempty"`
	DocumentBack       *string `json:"document_back,omitempty"`
	Selfie             *string `json:"selfie,omitempty"`
	SelfieWithDocument *string `json:"selfie_with_document,omitempty"`

	Status          VerificationStatus `json:"status"`
	ReviewedBy      *uuid.UUID         `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time         `json:"reviewed_at,omitempty"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	SubmittedAt     *time.Time         `json:"submitted_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Document returns the stored URL of slot d, or nil.
func (k *KYCVerification) Document(d DocumentType) *string {
	switch d {
	case DocumentFront:
		return k.DocumentFront
	case DocumentBack:
		return k.DocumentBack
	case Selfie:
		return k.Selfie
	case SelfieWithDocument:
		return k.SelfieWithDocument
	}
	return nil
}

// MissingDocuments lists required slots that are still empty.
func (k *KYCVerification) MissingDocuments() []DocumentType {
	var missing []DocumentType
	for _, d := range RequiredDocuments {
		if u := k.Document(d); u == nil || *u == "" {
			missing = append(missing, d)
		}
	}
	return missing
}

// PersonalInfo is the client-submitted part of a verification.
type PersonalInfo struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	DateOfBirth      string `json:"date_of_birth"` // YYYY-MM-DD
	Nationality      string `json:"nationality"`
	ResidenceCountry string `json:"residence_country"`
	DocumentType     string `json:"document_type"`
	DocumentNumber   string `json:"document_number"`
	PhoneNumber      string `json:"phone_number"`
}

// PendingKYC is a review queue row.
type PendingKYC struct {
	KYCVerification
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}
