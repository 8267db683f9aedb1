package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
)

// Vendor codes for unique-index violations: one email per event, one fest
// pass per email, one slug per event, one account per email.
const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFailed   = "unique constraint failed"
	genericDuplicateHint = "duplicate key"
)

// isUniqueConstraintError reports whether err is a unique-index violation on
// any supported driver. Foreign key and NOT NULL failures do not count.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil {
		return myErr.Number == mysqlDuplicateEntry
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, sqliteUniqueFailed) || strings.Contains(lower, genericDuplicateHint)
}

// translateWriteError maps a unique violation to duplicate, passes domain
// errors through and wraps anything else with op.
func translateWriteError(err error, duplicate *apperrors.AppError, op string) error {
	if err == nil {
		return nil
	}
	if duplicate != nil && isUniqueConstraintError(err) {
		return duplicate
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return fmt.Errorf("%s: %w", op, err)
}
