package repositories

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrConflict: строка не в том статусе, который ожидал вызывающий.
	ErrConflict  = errors.New("state conflict")
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullUUID(nu uuid.NullUUID) *uuid.UUID {
	if !nu.Valid {
		return nil
	}
	id := nu.UUID
	return &id
}

// isUniqueViolation matches Postgres error 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// rollback is deferred right after BeginTx; it is a no-op after Commit.
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
