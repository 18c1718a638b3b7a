package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pavitra93/go-property-management/shared/utils"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a referenced id does not exist
	ErrNotFound = errors.New("not found")
	// ErrPreconditionFailed is returned when a record changed since it was read
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrConstraintViolation is returned when a write would leave a dangling reference
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrTransient is returned when the database is unreachable or overloaded
	ErrTransient = errors.New("store temporarily unavailable")
	// ErrInvalidField is returned for writes to unknown or immutable columns
	ErrInvalidField = errors.New("invalid field")
)

var sentinels = []error{ErrNotFound, ErrPreconditionFailed, ErrConstraintViolation, ErrTransient, ErrInvalidField}

// Postgres SQLSTATE codes mapped onto the taxonomy.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgConnectionException  = "08"
	pgInsufficientResource = "53"
	pgAdminShutdown        = "57P01"
)

// classify maps a driver or gorm error onto one of the store sentinels.
// Errors that already carry a sentinel are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	case errors.Is(err, utils.ErrCircuitOpen), errors.Is(err, utils.ErrTooManyRequests):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation, pgErr.Code == pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrConstraintViolation, pgErr.Message)
		case pgErr.Code == pgSerializationFailure, pgErr.Code == pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrPreconditionFailed, pgErr.Message)
		case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == pgConnectionException || pgErr.Code[:2] == pgInsufficientResource),
			pgErr.Code == pgAdminShutdown:
			return fmt.Errorf("%w: %s", ErrTransient, pgErr.Message)
		}
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

// IsTransient reports whether err means the store could not be reached
func IsTransient(err error) bool {
	return errors.Is(classify(err), ErrTransient)
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
