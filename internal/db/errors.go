package db

import (
	"errors"

	"distromart-be/internal/apperr"

	"github.com/lib/pq"
)

const (
	PgUniqueViolation      = "23505"
	PgCheckViolation       = "23514"
	PgSerializationFailure = "40001"
	PgDeadlockDetected     = "40P01"
	PgLockNotAvailable     = "55P03"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return pqCode(err) == PgUniqueViolation
}

// IsConstraint reports whether err is a unique violation on the named constraint.
func IsConstraint(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == PgUniqueViolation && pqErr.Constraint == constraint
	}
	return false
}

func IsCheckViolation(err error) bool {
	return pqCode(err) == PgCheckViolation
}

// IsConflict reports lock and serialization failures that are safe to retry.
func IsConflict(err error) bool {
	switch pqCode(err) {
	case PgSerializationFailure, PgDeadlockDetected, PgLockNotAvailable:
		return true
	}
	return false
}

// Wrap classifies a repository error. Typed errors pass through, lock and
// serialization failures become conflicts, everything else is a persistence
// failure under code.
func Wrap(err error, code string) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	if IsConflict(err) {
		return apperr.Conflict(code, err)
	}
	return apperr.Persistence(code, err)
}
