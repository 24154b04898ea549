package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"remesas/internal/authz"
	"remesas/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	id, email, password_hash, name, phone, country, nationality,
	residence_country, document_type, document_number, role, verified,
	kyc_status, kyc_id, kyc_verified_at, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		hash, phone, country, nationality sql.NullString
		residence, docType, docNumber     sql.NullString
		role, kycStatus                   string
		kycID                             uuid.NullUUID
		kycVerifiedAt                     sql.NullTime
	)
	if err := row.Scan(
		&u.ID, &u.Email, &hash, &u.Name, &phone, &country, &nationality,
		&residence, &docType, &docNumber, &role, &u.Verified,
		&kycStatus, &kycID, &kycVerifiedAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	u.Phone = phone.String
	u.Country = country.String
	u.Nationality = nationality.String
	u.ResidenceCountry = residence.String
	u.DocumentType = docType.String
	u.DocumentNumber = docNumber.String
	u.Role = authz.Role(role)
	u.KYCStatus = models.KYCStatus(kycStatus)
	u.KYCID = nullUUID(kycID)
	u.KYCVerifiedAt = nullTime(kycVerifiedAt)
	return u, nil
}

func optional(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (
			email, password_hash, name, phone, country, nationality,
			residence_country, document_type, document_number, role, verified, kyc_status
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at, updated_at
	`
	if user.KYCStatus == "" {
		user.KYCStatus = models.KYCStatusNone
	}
	err := r.DB.QueryRowContext(ctx, q,
		user.Email,
		optional(user.PasswordHash),
		user.Name,
		optional(user.Phone),
		optional(user.Country),
		optional(user.Nationality),
		optional(user.ResidenceCountry),
		optional(user.DocumentType),
		optional(user.DocumentNumber),
		string(user.Role),
		user.Verified,
		string(user.KYCStatus),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var res []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET verified = TRUE, updated_at = NOW() WHERE id = $1 AND verified = FALSE`, id)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}
