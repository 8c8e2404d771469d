package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the service reacts to
const (
	CodeUniqueViolation   = "23505"
	CodeInvalidCatalog    = "3D000"
	CodeDuplicateDatabase = "42P04"
	CodeDuplicateTable    = "42P07"
	CodeUndefinedTable    = "42P01"
)

var (
	// ErrTenantNotFound is returned when the selected tenant database does not exist
	ErrTenantNotFound = errors.New("tenant database not found")
	// ErrStorage marks failures reported by the database server or the connection
	ErrStorage = errors.New("storage error")
)

// StorageError wraps a driver error so callers can map it to a server error
// while keeping the driver message and SQLSTATE reachable.
func StorageError(op string, err error) error {
	if errors.Is(err, ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// PgCode returns the SQLSTATE carried by err, or "" when err is not a server error
func PgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given SQLSTATE
func HasCode(err error, code string) bool {
	return err != nil && PgCode(err) == code
}

func classify(err error, dbName string) error {
	if HasCode(err, CodeInvalidCatalog) {
		return fmt.Errorf("%w: %s", ErrTenantNotFound, dbName)
	}
	return err
}
