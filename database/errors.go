package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDatabase is matched by DatabaseError.
var ErrDatabase = errors.New("ormato: database error")

// DatabaseError wraps an error returned by the driver together with the
// statement that caused it. The driver error is kept unchanged and is
// reachable through errors.As.
type DatabaseError struct {
	SQL string
	Err error
}

// Error returns the error string.
func (e *DatabaseError) Error() string {
	return "ormato: database error: " + e.Err.Error()
}

// Unwrap returns the driver error.
func (e *DatabaseError) Unwrap() error { return e.Err }

// Is reports whether the target error matches ErrDatabase.
func (e *DatabaseError) Is(err error) bool { return err == ErrDatabase }

// IsDatabaseError returns true if the error is a DatabaseError.
func IsDatabaseError(err error) bool {
	var e *DatabaseError
	return err != nil && errors.As(err, &e)
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// sqlState extracts the SQLSTATE of a pgx or lib/pq error.
func sqlState(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	return "", false
}

func sqliteCode(err error) (int, bool) {
	var e *sqlite.Error
	if errors.As(err, &e) {
		return e.Code(), true
	}
	return 0, false
}

// IsUniqueViolation reports whether err resulted from a unique or primary
// key constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqlState(err); ok {
		return code == pgUniqueViolation
	}
	if code, ok := sqliteCode(err); ok &&
		(code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return true
	}
	return containsAny(err.Error(),
		"UNIQUE constraint failed",
		"duplicate key value violates unique constraint",
	)
}

// IsForeignKeyViolation reports whether err resulted from a foreign key
// constraint violation.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqlState(err); ok {
		return code == pgForeignKeyViolation
	}
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return containsAny(err.Error(),
		"FOREIGN KEY constraint failed",
		"violates foreign key constraint",
	)
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
