package models

import (
	"time"

	"github.com/google/uuid"
)

type VerificationMethod string

const (
	MethodSMS      VerificationMethod = "sms"
	MethodWhatsApp VerificationMethod = "whatsapp"
)

func (m VerificationMethod) Valid() bool {
	return m == MethodSMS || m == MethodWhatsApp
}

// PhoneVerificationLog: одна запись на каждую отправку кода.
type PhoneVerificationLog struct {
	ID          uuid.UUID          `json:"id"`
	KYCID       uuid.UUID          `json:"kyc_id"`
	PhoneNumber string             `json:"phone_number"`
	Method      VerificationMethod `json:"method"`
	Code        string             `json:"-"`
	ExpiresAt   time.Time          `json:"expires_at"`
	Verified    bool               `json:"verified"`
	VerifiedAt  *time.Time         `json:"verified_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
