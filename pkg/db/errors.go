package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err is a unique constraint failure,
// optionally on a specific constraint. Postgres errors are matched by
// SQLSTATE; sqlite only offers message text.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		if pg.Code != pkgerrors.PGUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
