package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation reports whether err is a unique-constraint violation.
// The constraints themselves are the real enforcement mechanism for
// email/username/slug uniqueness; application-level pre-checks are only a
// fast path for nicer error messages.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return true
	}
	return false
}

// UniqueConstraintName extracts the violated constraint so callers can map
// it onto a field-specific conflict error.
func UniqueConstraintName(err error) string {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
