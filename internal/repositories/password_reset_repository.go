package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"remesas/internal/models"
)

type PasswordResetRepository interface {
	// Upsert keeps a single active token per user.
	Upsert(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordReset, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type passwordResetRepository struct {
	DB *sql.DB
}

func NewPasswordResetRepository(db *sql.DB) PasswordResetRepository {
	return &passwordResetRepository{DB: db}
}

func (r *passwordResetRepository) Upsert(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const q = `
		INSERT INTO password_resets (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`
	if _, err := r.DB.ExecContext(ctx, q, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("upsert password reset: %w", err)
	}
	return nil
}

func (r *passwordResetRepository) GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordReset, error) {
	const q = `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_resets
		WHERE token_hash = $1 AND expires_at > $2
	`
	pr := &models.PasswordReset{}
	err := r.DB.QueryRowContext(ctx, q, tokenHash, now).Scan(&pr.ID, &pr.UserID, &pr.TokenHash, &pr.ExpiresAt, &pr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get password reset: %w", err)
	}
	return pr, nil
}

func (r *passwordResetRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete password resets: %w", err)
	}
	return nil
}
