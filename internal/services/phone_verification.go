package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/utils"
)

const (
	phoneCodeDigits  = 6
	phoneCodeTTL     = 10 * time.Minute
	maxPhoneAttempts = 5
)

func (s *kycService) SendPhoneCode(ctx context.Context, userID, kycID uuid.UUID, method models.VerificationMethod) (time.Time, error) {
	if method == "" {
		method = models.MethodSMS
	}
	if !method.Valid() {
		return time.Time{}, ErrInvalidMethod
	}
	k, err := s.owned(ctx, userID, kycID)
	if err != nil {
		return time.Time{}, err
	}
	if k.PhoneVerified {
		return time.Time{}, ErrPhoneAlreadyVerified
	}
	if k.PhoneNumber == "" {
		return time.Time{}, ErrPhoneMissing
	}
	if k.PhoneVerificationAttempts >= maxPhoneAttempts {
		return time.Time{}, ErrMaxAttemptsExceeded
	}

	allowed, err := s.limiter.Allow(ctx, kycID.String())
	if err != nil {
		// redis недоступен, не блокируем пользователя
		logger.Warn("[kyc][phone-send] rate limiter unavailable", logger.Err(err))
		allowed = true
	}
	if !allowed {
		return time.Time{}, ErrSendThrottled
	}

	code, err := utils.NewNumericCode(phoneCodeDigits)
	if err != nil {
		return time.Time{}, internal("generate code", err)
	}
	expires := s.now().Add(phoneCodeTTL)

	// nothing is persisted unless the code actually went out
	if res := s.notifications.SendVerificationCode(ctx, k.PhoneNumber, code, method); !res.Success {
		return time.Time{}, wrap(ErrCodeDelivery, errors.New(res.Error))
	}

	attempts, err := s.kyc.StoreVerificationCode(ctx, &models.PhoneVerificationLog{
		KYCID:       kycID,
		PhoneNumber: k.PhoneNumber,
		Method:      method,
		Code:        code,
		ExpiresAt:   expires,
	})
	if err != nil {
		return time.Time{}, internal("store verification code", err)
	}
	logger.Info("[kyc][phone-send] code sent",
		logger.String("kyc_id", kycID.String()),
		logger.String("method", string(method)),
		logger.Int("attempts", attempts))
	return expires, nil
}

func (s *kycService) VerifyPhoneCode(ctx context.Context, userID, kycID uuid.UUID, code string) error {
	k, err := s.owned(ctx, userID, kycID)
	if err != nil {
		return err
	}
	if k.PhoneVerified {
		return nil
	}
	if k.PhoneVerificationAttempts >= maxPhoneAttempts {
		return ErrMaxAttemptsExceeded
	}
	if k.PhoneVerificationCode == nil || k.PhoneVerificationExpires == nil ||
		s.now().After(*k.PhoneVerificationExpires) {
		return ErrCodeExpired
	}

	code = strings.TrimSpace(code)
	if subtle.ConstantTimeCompare([]byte(code), []byte(*k.PhoneVerificationCode)) != 1 {
		attempts, err := s.kyc.IncrementAttempts(ctx, kycID)
		if err != nil {
			return internal("increment attempts", err)
		}
		logger.Info("[kyc][phone-verify] wrong code",
			logger.String("kyc_id", kycID.String()), logger.Int("attempts", attempts))
		return ErrCodeInvalid
	}

	if err := s.kyc.MarkPhoneVerified(ctx, kycID, s.now()); err != nil {
		return internal("mark phone verified", err)
	}
	logger.Info("[kyc][phone-verify] verified", logger.String("kyc_id", kycID.String()))
	return nil
}
