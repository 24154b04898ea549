package services

import (
	"context"
	"strings"
	"time"

	"remesas/internal/logger"
	"remesas/internal/repositories"
	"remesas/internal/utils"
)

const resetTokenTTL = time.Hour

type PasswordResetService interface {
	// RequestReset never reveals whether the email exists.
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type passwordResetService struct {
	users     repositories.UserRepository
	resets    repositories.PasswordResetRepository
	emails    EmailService
	auth      AuthService
	publicURL string
	now       func() time.Time
}

func NewPasswordResetService(users repositories.UserRepository, resets repositories.PasswordResetRepository, emails EmailService, auth AuthService, publicURL string) PasswordResetService {
	return &passwordResetService{
		users:     users,
		resets:    resets,
		emails:    emails,
		auth:      auth,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		logger.Error("[password-reset][request] lookup failed", logger.Err(err))
		return nil
	}
	if user == nil {
		logger.Info("[password-reset][request] unknown email")
		return nil
	}

	token, err := utils.NewToken(32)
	if err != nil {
		logger.Error("[password-reset][request] token generation failed", logger.Err(err))
		return nil
	}
	if err := s.resets.Upsert(ctx, user.ID, utils.HashToken(token), s.now().Add(resetTokenTTL)); err != nil {
		logger.Error("[password-reset][request] store failed",
			logger.String("user_id", user.ID.String()), logger.Err(err))
		return nil
	}

	link := s.publicURL + "/reset-password?token=" + token
	if s.emails != nil {
		if res := s.emails.SendPasswordResetEmail(user.Email, link); !res.Success {
			logger.Warn("[password-reset][request] email failed",
				logger.String("user_id", user.ID.String()), logger.String("error", res.Error))
		}
	}
	return nil
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	pr, err := s.resets.GetValidByHash(ctx, utils.HashToken(token), s.now())
	if err != nil {
		return internal("get reset token", err)
	}
	if pr == nil {
		return ErrInvalidResetToken
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, pr.UserID, hash); err != nil {
		return internal("update password", err)
	}
	if err := s.resets.DeleteByUserID(ctx, pr.UserID); err != nil {
		return internal("delete reset tokens", err)
	}
	logger.Info("[password-reset][reset] password updated", logger.String("user_id", pr.UserID.String()))
	return nil
}
