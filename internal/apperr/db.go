package apperr

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// FromDB classifies a gorm/driver error. notFoundMsg is used for
// gorm.ErrRecordNotFound; unique violations become Conflict.
func FromDB(err error, notFoundMsg string) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(notFoundMsg)
	}
	if IsUniqueViolation(err) {
		return Wrap(KindConflict, "record already exists", err)
	}
	return Internal("database error", err)
}

// IsUniqueViolation recognises duplicate-key errors from postgres, mysql and sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate entry")
}
