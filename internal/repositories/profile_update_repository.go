package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"remesas/internal/models"
)

type ProfileUpdateRepository interface {
	Create(ctx context.Context, req *models.ProfileUpdateRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProfileUpdateRequest, error)
	ListPending(ctx context.Context) ([]*models.ProfileUpdateRequest, error)
	// Approve applies the change set to the user and closes the request.
	Approve(ctx context.Context, id, reviewerID uuid.UUID, at time.Time) error
	Reject(ctx context.Context, id, reviewerID uuid.UUID, at time.Time) error
}

type profileUpdateRepository struct {
	DB *sql.DB
}

func NewProfileUpdateRepository(db *sql.DB) ProfileUpdateRepository {
	return &profileUpdateRepository{DB: db}
}

// profileColumns: ключ запроса → колонка users.
var profileColumns = map[string]string{
	"name":              "name",
	"phone":             "phone",
	"country":           "country",
	"nationality":       "nationality",
	"residence_country": "residence_country",
	"document_type":     "document_type",
	"document_number":   "document_number",
}

func scanProfileRequest(row rowScanner) (*models.ProfileUpdateRequest, error) {
	req := &models.ProfileUpdateRequest{}
	var (
		raw        []byte
		status     string
		reviewedBy uuid.NullUUID
		reviewedAt sql.NullTime
	)
	if err := row.Scan(&req.ID, &req.UserID, &raw, &status, &reviewedBy, &reviewedAt, &req.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &req.Changes); err != nil {
		return nil, fmt.Errorf("decode changes: %w", err)
	}
	req.Status = models.ProfileUpdateStatus(status)
	req.ReviewedBy = nullUUID(reviewedBy)
	req.ReviewedAt = nullTime(reviewedAt)
	return req, nil
}

func (r *profileUpdateRepository) Create(ctx context.Context, req *models.ProfileUpdateRequest) error {
	raw, err := json.Marshal(req.Changes)
	if err != nil {
		return fmt.Errorf("encode changes: %w", err)
	}
	req.Status = models.ProfileUpdatePending
	const q = `
		INSERT INTO profile_update_requests (user_id, changes, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.DB.QueryRowContext(ctx, q, req.UserID, raw, string(req.Status)).Scan(&req.ID, &req.CreatedAt); err != nil {
		return fmt.Errorf("create profile request: %w", err)
	}
	return nil
}

func (r *profileUpdateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProfileUpdateRequest, error) {
	req, err := scanProfileRequest(r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, changes, status, reviewed_by, reviewed_at, created_at
		FROM profile_update_requests WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile request: %w", err)
	}
	return req, nil
}

func (r *profileUpdateRepository) ListPending(ctx context.Context) ([]*models.ProfileUpdateRequest, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, changes, status, reviewed_by, reviewed_at, created_at
		FROM profile_update_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list profile requests: %w", err)
	}
	defer rows.Close()

	var res []*models.ProfileUpdateRequest
	for rows.Next() {
		req, err := scanProfileRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile request: %w", err)
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

// lockPending selects the request FOR UPDATE and requires status pending.
func lockPending(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.ProfileUpdateRequest, error) {
	req, err := scanProfileRequest(tx.QueryRowContext(ctx, `
		SELECT id, user_id, changes, status, reviewed_by, reviewed_at, created_at
		FROM profile_update_requests WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock profile request: %w", err)
	}
	if req.Status != models.ProfileUpdatePending {
		return nil, ErrConflict
	}
	return req, nil
}

func (r *profileUpdateRepository) Approve(ctx context.Context, id, reviewerID uuid.UUID, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	req, err := lockPending(ctx, tx, id)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(req.Changes))
	for k := range req.Changes {
		if _, ok := profileColumns[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if len(keys) > 0 {
		sets := make([]string, 0, len(keys)+1)
		args := make([]any, 0, len(keys)+1)
		for i, k := range keys {
			sets = append(sets, profileColumns[k]+" = $"+strconv.Itoa(i+1))
			args = append(args, req.Changes[k])
		}
		sets = append(sets, "updated_at = NOW()")
		args = append(args, req.UserID)
		q := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $` + strconv.Itoa(len(args))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("apply profile changes: %w", err)
		}
	}

	if err := closeRequest(ctx, tx, id, models.ProfileUpdateApproved, reviewerID, at); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *profileUpdateRepository) Reject(ctx context.Context, id, reviewerID uuid.UUID, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	if _, err := lockPending(ctx, tx, id); err != nil {
		return err
	}
	if err := closeRequest(ctx, tx, id, models.ProfileUpdateRejected, reviewerID, at); err != nil {
		return err
	}
	return tx.Commit()
}

func closeRequest(ctx context.Context, tx *sql.Tx, id uuid.UUID, status models.ProfileUpdateStatus, reviewerID uuid.UUID, at time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE profile_update_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1`, id, string(status), reviewerID, at); err != nil {
		return fmt.Errorf("close profile request: %w", err)
	}
	return nil
}
