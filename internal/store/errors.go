package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrTokenInUse is returned when a session token is already bound to
	// another user.
	ErrTokenInUse = errors.New("session token already in use")

	// ErrStoreUnavailable is returned when the store cannot complete an
	// operation: lock timeout, contention or an unreachable engine. Nothing
	// was committed.
	ErrStoreUnavailable = errors.New("store unavailable")
)

const pqUniqueViolation = "23505"

// classify maps a driver error onto the store error taxonomy. A unique
// violation is reported as onConflict.
func classify(err error, onConflict error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if onConflict != nil && isUniqueViolation(err) {
		return onConflict
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
