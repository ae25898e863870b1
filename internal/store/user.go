package store

import (
	"context"
	"database/sql"

	"github.com/webserv/sessionauth/internal/db"
	"github.com/webserv/sessionauth/types"
)

// UserRepository handles persistence for user records.
type UserRepository struct {
	conn    db.DBTX
	dialect db.Dialect
}

func NewUserRepository(conn db.DBTX, dialect db.Dialect) *UserRepository {
	return &UserRepository{conn: conn, dialect: dialect}
}

// WithTx returns a repository bound to the given transaction.
func (r *UserRepository) WithTx(tx db.DBTX) *UserRepository {
	return &UserRepository{conn: tx, dialect: r.dialect}
}

const userColumns = `id, username, password_hash, session_token`

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = ?`
	return r.getOne(ctx, query, username)
}

// GetBySessionToken looks up the user currently holding token.
func (r *UserRepository) GetBySessionToken(ctx context.Context, token string) (types.User, error) {
	if token == "" {
		return types.User{}, ErrNotFound
	}
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE session_token = ?`
	return r.getOne(ctx, query, token)
}

// Create inserts a new user. The unique index on username makes the
// existence check and the insert a single atomic step.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (types.User, error) {
	const query = `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
		RETURNING id`
	user := types.User{Username: username, PasswordHash: passwordHash}
	err := r.conn.QueryRowContext(ctx, r.dialect.Rebind(query), username, passwordHash).Scan(&user.ID)
	if err != nil {
		return types.User{}, classify(err, ErrDuplicateUsername)
	}
	return user, nil
}

// CreateIfAbsent inserts a user unless the username is taken. It reports
// whether a row was inserted and never aborts an enclosing transaction on
// a duplicate.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, username, passwordHash string) (bool, error) {
	const query = `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
		ON CONFLICT (username) DO NOTHING`
	result, err := r.conn.ExecContext(ctx, r.dialect.Rebind(query), username, passwordHash)
	if err != nil {
		return false, classify(err, nil)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, classify(err, nil)
	}
	return affected > 0, nil
}

// SetSessionToken overwrites the user's session token unconditionally.
func (r *UserRepository) SetSessionToken(ctx context.Context, id int64, token string) error {
	const query = `UPDATE users SET session_token = ? WHERE id = ?`
	result, err := r.conn.ExecContext(ctx, r.dialect.Rebind(query), token, id)
	if err != nil {
		return classify(err, ErrTokenInUse)
	}
	return expectAffected(result)
}

// ClearSessionToken removes token from whichever user holds it and returns
// that user. ErrNotFound means no user held the token.
func (r *UserRepository) ClearSessionToken(ctx context.Context, token string) (types.Identity, error) {
	if token == "" {
		return types.Identity{}, ErrNotFound
	}
	const query = `
		UPDATE users
		SET session_token = NULL
		WHERE session_token = ?
		RETURNING id, username`
	var identity types.Identity
	err := r.conn.QueryRowContext(ctx, r.dialect.Rebind(query), token).Scan(&identity.UserID, &identity.Username)
	if err != nil {
		return types.Identity{}, classify(err, nil)
	}
	return identity, nil
}

// UpdatePasswordHash replaces the stored hash only if it still equals
// oldHash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, oldHash, newHash string) error {
	const query = `UPDATE users SET password_hash = ? WHERE id = ? AND password_hash = ?`
	result, err := r.conn.ExecContext(ctx, r.dialect.Rebind(query), newHash, id, oldHash)
	if err != nil {
		return classify(err, nil)
	}
	return expectAffected(result)
}

// Count returns the number of user records.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM users`
	var total int
	if err := r.conn.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, classify(err, nil)
	}
	return total, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	var token sql.NullString
	err := r.conn.QueryRowContext(ctx, r.dialect.Rebind(query), arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&token,
	)
	if err != nil {
		return types.User{}, classify(err, nil)
	}
	user.SessionToken = token.String
	return user, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err, nil)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
