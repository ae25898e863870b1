package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrSchemaMismatch is returned when the store holds a users table that
// this service did not create, such as the legacy CGI layout.
var ErrSchemaMismatch = errors.New("users table does not match the expected schema")

const usersColumns = "id, username, password_hash, session_token"

// VerifySchema checks that the users table exists with every column the
// repositories read and write.
func VerifySchema(ctx context.Context, conn DBTX) error {
	if err := selectNoUsers(ctx, conn, usersColumns); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// guardExistingUsers fails when a users table exists but lacks the expected
// columns. A missing table is fine; migrations will create it.
func guardExistingUsers(ctx context.Context, conn DBTX) error {
	if err := selectNoUsers(ctx, conn, "1"); err != nil {
		return nil
	}
	return VerifySchema(ctx, conn)
}

func selectNoUsers(ctx context.Context, conn DBTX, columns string) error {
	rows, err := conn.QueryContext(ctx, "SELECT "+columns+" FROM users WHERE 1 = 0")
	if err != nil {
		return err
	}
	return rows.Close()
}
