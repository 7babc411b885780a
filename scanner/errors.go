package scanner

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Store error kinds, also used as log fields and metric labels.
const (
	StoreErrorConnection    = "connection"
	StoreErrorUniqueKey     = "unique_violation"
	StoreErrorMissingTable  = "undefined_table"
	StoreErrorSerialization = "serialization_failure"
	StoreErrorCanceled      = "canceled"
	StoreErrorUnknown       = "unknown"
)

// StoreError reports a failed registry or event-log operation.
type StoreError struct {
	Op   string
	Kind string
	Err  error
}

func (e *StoreError) Error() string {
	return "database error: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func newStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Kind: classifyStoreError(err), Err: err}
}

func classifyStoreError(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return StoreErrorUniqueKey
		case pgErr.Code == "42P01":
			return StoreErrorMissingTable
		case pgErr.Code == "40001":
			return StoreErrorSerialization
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return StoreErrorConnection
		}
		return StoreErrorUnknown
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StoreErrorCanceled
	case errors.As(err, &connectErr), errors.As(err, &netErr), errors.Is(err, driver.ErrBadConn):
		return StoreErrorConnection
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return StoreErrorUniqueKey
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "duplicate key value violates unique constraint"):
		return StoreErrorUniqueKey
	case strings.Contains(msg, "no such table"):
		return StoreErrorMissingTable
	case strings.Contains(msg, "database is closed"), strings.Contains(msg, "connection refused"):
		return StoreErrorConnection
	}
	return StoreErrorUnknown
}
