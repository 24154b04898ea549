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

// ReviewDecision is a staff verdict on a pending verification.
type ReviewDecision struct {
	KYCID      uuid.UUID
	ReviewerID uuid.UUID
	Status     models.VerificationStatus // approved | rejected
	Reason     *string
	Notes      *string
	At         time.Time
}

type KYCRepository interface {
	// Create inserts a verification and points users.kyc_id at it.
	Create(ctx context.Context, k *models.KYCVerification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.KYCVerification, error)
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCVerification, error)
	// SaveDraft rewrites the client-editable state of a draft or rejected row.
	SaveDraft(ctx context.Context, k *models.KYCVerification) error
	SetDocument(ctx context.Context, id uuid.UUID, doc models.DocumentType, url string) error

	StoreVerificationCode(ctx context.Context, log *models.PhoneVerificationLog) (attempts int, err error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	MarkPhoneVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	ListPhoneLogs(ctx context.Context, kycID uuid.UUID) ([]*models.PhoneVerificationLog, error)

	Submit(ctx context.Context, id uuid.UUID, at time.Time) error
	Review(ctx context.Context, d ReviewDecision) error
	ListPending(ctx context.Context) ([]*models.PendingKYC, error)
}

type kycRepository struct {
	DB *sql.DB
}

func NewKYCRepository(db *sql.DB) KYCRepository {
	return &kycRepository{DB: db}
}

// documentColumns maps a document slot to its column. Column names never come
// from request input.
var documentColumns = map[models.DocumentType]string{
	models.DocumentFront:      "document_front",
	models.DocumentBack:       "document_back",
	models.Selfie:             "selfie",
	models.SelfieWithDocument: "selfie_with_document",
}

const kycColumns = `
	k.id, k.user_id, k.first_name, k.last_name, k.date_of_birth, k.nationality,
	k.residence_country, k.document_type, k.document_number,
	k.phone_number, k.phone_verified, k.phone_verified_at, k.phone_verification_code,
	k.phone_verification_expires_at, k.phone_verification_attempts,
	k.document_front, k.document_back, k.selfie, k.selfie_with_document,
	k.status, k.reviewed_by, k.reviewed_at, k.rejection_reason, k.notes,
	k.submitted_at, k.created_at, k.updated_at`

func scanKYC(row rowScanner, extra ...any) (*models.KYCVerification, error) {
	k := &models.KYCVerification{}
	var (
		dob, phoneVerifiedAt, codeExpires        sql.NullTime
		reviewedAt, submittedAt                  sql.NullTime
		code, front, back, selfie, selfieWithDoc sql.NullString
		reason, notes                            sql.NullString
		reviewedBy                               uuid.NullUUID
		status                                   string
	)
	dest := []any{
		&k.ID, &k.UserID, &k.FirstName, &k.LastName, &dob, &k.Nationality,
		&k.ResidenceCountry, &k.DocumentType, &k.DocumentNumber,
		&k.PhoneNumber, &k.PhoneVerified, &phoneVerifiedAt, &code,
		&codeExpires, &k.PhoneVerificationAttempts,
		&front, &back, &selfie, &selfieWithDoc,
		&status, &reviewedBy, &reviewedAt, &reason, &notes,
		&submittedAt, &k.CreatedAt, &k.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	k.DateOfBirth = nullTime(dob)
	k.PhoneVerifiedAt = nullTime(phoneVerifiedAt)
	k.PhoneVerificationCode = nullString(code)
	k.PhoneVerificationExpires = nullTime(codeExpires)
	k.DocumentFront = nullString(front)
	k.DocumentBack = nullString(back)
	k.Selfie = nullString(selfie)
	k.SelfieWithDocument = nullString(selfieWithDoc)
	k.Status = models.VerificationStatus(status)
	k.ReviewedBy = nullUUID(reviewedBy)
	k.ReviewedAt = nullTime(reviewedAt)
	k.RejectionReason = nullString(reason)
	k.Notes = nullString(notes)
	k.SubmittedAt = nullTime(submittedAt)
	return k, nil
}

func (r *kycRepository) Create(ctx context.Context, k *models.KYCVerification) error {
	const q = `
		INSERT INTO kyc_verifications (
			user_id, first_name, last_name, date_of_birth, nationality,
			residence_country, document_type, document_number, phone_number, status
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at
	`
	if k.Status == "" {
		k.Status = models.VerificationDraft
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	if err := tx.QueryRowContext(ctx, q,
		k.UserID, k.FirstName, k.LastName, k.DateOfBirth, k.Nationality,
		k.ResidenceCountry, k.DocumentType, k.DocumentNumber, k.PhoneNumber, string(k.Status),
	).Scan(&k.ID, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return fmt.Errorf("insert kyc: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET kyc_id = $1, updated_at = NOW() WHERE id = $2`, k.ID, k.UserID); err != nil {
		return fmt.Errorf("link kyc to user: %w", err)
	}
	return tx.Commit()
}

func (r *kycRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.KYCVerification, error) {
	k, err := scanKYC(r.DB.QueryRowContext(ctx,
		`SELECT `+kycColumns+` FROM kyc_verifications k WHERE k.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kyc: %w", err)
	}
	return k, nil
}

func (r *kycRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCVerification, error) {
	k, err := scanKYC(r.DB.QueryRowContext(ctx,
		`SELECT `+kycColumns+` FROM kyc_verifications k
		 WHERE k.user_id = $1 ORDER BY k.created_at DESC LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest kyc: %w", err)
	}
	return k, nil
}

func (r *kycRepository) SaveDraft(ctx context.Context, k *models.KYCVerification) error {
	const q = `
		UPDATE kyc_verifications SET
			first_name = $2, last_name = $3, date_of_birth = $4, nationality = $5,
			residence_country = $6, document_type = $7, document_number = $8,
			phone_number = $9, phone_verified = $10, phone_verified_at = $11,
			phone_verification_code = $12, phone_verification_expires_at = $13,
			phone_verification_attempts = $14,
			document_front = $15, document_back = $16, selfie = $17, selfie_with_document = $18,
			status = $19, reviewed_by = $20, reviewed_at = $21, rejection_reason = $22, notes = $23,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'rejected')
		RETURNING updated_at
	`
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	err = tx.QueryRowContext(ctx, q,
		k.ID, k.FirstName, k.LastName, k.DateOfBirth, k.Nationality,
		k.ResidenceCountry, k.DocumentType, k.DocumentNumber,
		k.PhoneNumber, k.PhoneVerified, k.PhoneVerifiedAt,
		k.PhoneVerificationCode, k.PhoneVerificationExpires,
		k.PhoneVerificationAttempts,
		k.DocumentFront, k.DocumentBack, k.Selfie, k.SelfieWithDocument,
		string(k.Status), k.ReviewedBy, k.ReviewedAt, k.RejectionReason, k.Notes,
	).Scan(&k.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("save kyc draft: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET kyc_id = $1, updated_at = NOW() WHERE id = $2`, k.ID, k.UserID); err != nil {
		return fmt.Errorf("link kyc to user: %w", err)
	}
	return tx.Commit()
}

func (r *kycRepository) SetDocument(ctx context.Context, id uuid.UUID, doc models.DocumentType, url string) error {
	col, ok := documentColumns[doc]
	if !ok {
		return fmt.Errorf("unknown document type %q", doc)
	}
	q := `UPDATE kyc_verifications SET ` + col + ` = $1, updated_at = NOW()
	      WHERE id = $2 AND status IN ('draft', 'rejected')`
	res, err := r.DB.ExecContext(ctx, q, url, id)
	if err != nil {
		return fmt.Errorf("set %s: %w", col, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *kycRepository) StoreVerificationCode(ctx context.Context, l *models.PhoneVerificationLog) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	var attempts int
	err = tx.QueryRowContext(ctx, `
		UPDATE kyc_verifications SET
			phone_verification_code = $2,
			phone_verification_expires_at = $3,
			phone_verification_attempts = phone_verification_attempts + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING phone_verification_attempts`,
		l.KYCID, l.Code, l.ExpiresAt,
	).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("store code: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO phone_verification_logs (kyc_id, phone_number, method, code, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		l.KYCID, l.PhoneNumber, string(l.Method), l.Code, l.ExpiresAt,
	).Scan(&l.ID, &l.CreatedAt); err != nil {
		return 0, fmt.Errorf("insert phone log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return attempts, nil
}

func (r *kycRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.DB.QueryRowContext(ctx, `
		UPDATE kyc_verifications
		SET phone_verification_attempts = phone_verification_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING phone_verification_attempts`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

// MarkPhoneVerified flips phone_verified once and marks the newest log row.
func (r *kycRepository) MarkPhoneVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `
		UPDATE kyc_verifications SET
			phone_verified = TRUE,
			phone_verified_at = $2,
			phone_verification_code = NULL,
			phone_verification_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND phone_verified = FALSE`, id, at)
	if err != nil {
		return fmt.Errorf("mark phone verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE phone_verification_logs SET verified = TRUE, verified_at = $2
		WHERE id = (
			SELECT id FROM phone_verification_logs
			WHERE kyc_id = $1 ORDER BY created_at DESC LIMIT 1
		)`, id, at); err != nil {
		return fmt.Errorf("mark phone log verified: %w", err)
	}
	return tx.Commit()
}

func (r *kycRepository) ListPhoneLogs(ctx context.Context, kycID uuid.UUID) ([]*models.PhoneVerificationLog, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, kyc_id, phone_number, method, code, expires_at, verified, verified_at, created_at
		FROM phone_verification_logs
		WHERE kyc_id = $1
		ORDER BY created_at DESC`, kycID)
	if err != nil {
		return nil, fmt.Errorf("list phone logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.PhoneVerificationLog
	for rows.Next() {
		l := &models.PhoneVerificationLog{}
		var method string
		var verifiedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.KYCID, &l.PhoneNumber, &method, &l.Code,
			&l.ExpiresAt, &l.Verified, &verifiedAt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan phone log: %w", err)
		}
		l.Method = models.VerificationMethod(method)
		l.VerifiedAt = nullTime(verifiedAt)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Submit moves a complete draft to pending and mirrors it on the user.
func (r *kycRepository) Submit(ctx context.Context, id uuid.UUID, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		UPDATE kyc_verifications
		SET status = 'pending', submitted_at = $2, updated_at = NOW()
		WHERE id = $1
		  AND status IN ('draft', 'rejected')
		  AND document_front IS NOT NULL
		  AND selfie IS NOT NULL
		  AND selfie_with_document IS NOT NULL
		RETURNING user_id`, id, at).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("submit kyc: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET kyc_status = 'pending', kyc_id = $1, updated_at = NOW()
		WHERE id = $2`, id, userID); err != nil {
		return fmt.Errorf("mirror user status: %w", err)
	}
	return tx.Commit()
}

// Review locks the row, requires it to be pending and writes both statuses.
func (r *kycRepository) Review(ctx context.Context, d ReviewDecision) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	var (
		userID uuid.UUID
		status string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, status FROM kyc_verifications WHERE id = $1 FOR UPDATE`, d.KYCID,
	).Scan(&userID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock kyc: %w", err)
	}
	if models.VerificationStatus(status) != models.VerificationPending {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE kyc_verifications SET
			status = $2, reviewed_by = $3, reviewed_at = $4,
			rejection_reason = $5, notes = COALESCE($6, notes), updated_at = NOW()
		WHERE id = $1`,
		d.KYCID, string(d.Status), d.ReviewerID, d.At, d.Reason, d.Notes); err != nil {
		return fmt.Errorf("update kyc review: %w", err)
	}

	var verifiedAt sql.NullTime
	if d.Status == models.VerificationApproved {
		verifiedAt = sql.NullTime{Time: d.At, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET
			kyc_status = $2,
			kyc_verified_at = COALESCE($3, kyc_verified_at),
			updated_at = NOW()
		WHERE id = $1`,
		userID, string(d.Status), verifiedAt); err != nil {
		return fmt.Errorf("mirror user status: %w", err)
	}
	return tx.Commit()
}

func (r *kycRepository) ListPending(ctx context.Context) ([]*models.PendingKYC, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+kycColumns+`, u.email, u.name
		FROM kyc_verifications k
		JOIN users u ON u.id = k.user_id
		WHERE k.status = 'pending'
		ORDER BY k.submitted_at ASC NULLS LAST, k.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending kyc: %w", err)
	}
	defer rows.Close()

	var res []*models.PendingKYC
	for rows.Next() {
		var email, name string
		k, err := scanKYC(rows, &email, &name)
		if err != nil {
			return nil, fmt.Errorf("scan pending kyc: %w", err)
		}
		res = append(res, &models.PendingKYC{KYCVerification: *k, UserEmail: email, UserName: name})
	}
	return res, rows.Err()
}
