package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres with a fixed-size pool.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash TEXT,
		name VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(32),
		country VARCHAR(64),
		nationality VARCHAR(64),
		residence_country VARCHAR(64),
		document_type VARCHAR(32),
		document_number VARCHAR(64),
		role VARCHAR(20) NOT NULL DEFAULT 'cliente'
			CHECK (role IN ('cliente','administrador','gerencia')),
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		kyc_status VARCHAR(20) NOT NULL DEFAULT 'none'
			CHECK (kyc_status IN ('none','pending','approved','rejected')),
		kyc_id UUID,
		kyc_verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		token TEXT UNIQUE NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS kyc_verifications (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		first_name VARCHAR(128) NOT NULL DEFAULT '',
		last_name VARCHAR(128) NOT NULL DEFAULT '',
		date_of_birth DATE,
		nationality VARCHAR(64) NOT NULL DEFAULT '',
		residence_country VARCHAR(64) NOT NULL DEFAULT '',
		document_type VARCHAR(32) NOT NULL DEFAULT '',
		document_number VARCHAR(64) NOT NULL DEFAULT '',
		phone_number VARCHAR(32) NOT NULL DEFAULT '',
		phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
		phone_verified_at TIMESTAMPTZ,
		phone_verification_code VARCHAR(10),
		phone_verification_expires_at TIMESTAMPTZ,
		phone_verification_attempts INTEGER NOT NULL DEFAULT 0,
		document_front TEXT,
		document_back TEXT,
		selfie TEXT,
		selfie_with_document TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'draft'
			CHECK (status IN ('draft','pending','approved','rejected','expired')),
		reviewed_by UUID REFERENCES users(id),
		reviewed_at TIMESTAMPTZ,
		rejection_reason TEXT,
		notes TEXT,
		submitted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT kyc_pending_requires_documents CHECK (
			status NOT IN ('pending','approved')
			OR (document_front IS NOT NULL AND selfie IS NOT NULL AND selfie_with_document IS NOT NULL)
		)
	);`,

	`CREATE TABLE IF NOT EXISTS phone_verification_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		kyc_id UUID NOT NULL REFERENCES kyc_verifications(id) ON DELETE CASCADE,
		phone_number VARCHAR(32) NOT NULL,
		method VARCHAR(16) NOT NULL CHECK (method IN ('sms','whatsapp')),
		code VARCHAR(10) NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS password_resets (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		token_hash CHAR(64) NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS profile_update_requests (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		changes JSONB NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending','approved','rejected')),
		reviewed_by UUID REFERENCES users(id),
		reviewed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_user_id ON kyc_verifications(user_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_status ON kyc_verifications(status);`,
	`CREATE INDEX IF NOT EXISTS idx_phone_logs_kyc_id ON phone_verification_logs(kyc_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_password_resets_token_hash ON password_resets(token_hash);`,
	`CREATE INDEX IF NOT EXISTS idx_profile_updates_user_status ON profile_update_requests(user_id, status);`,
}

// RunMigrations applies the schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, q := range migrations {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
