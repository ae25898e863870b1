package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webserv/sessionauth/internal/db"
)

func newRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewUserRepository(conn, db.Postgres), mock
}

func TestCreateReturnsID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users \(username, password_hash\)\s+VALUES \(\$1, \$2\)\s+RETURNING id`).
		WithArgs("alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user, err := repo.Create(context.Background(), "alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "alice", user.Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "hash").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	_, err := repo.Create(context.Background(), "alice", "hash")
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestCreateLockTimeoutIsUnavailable(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})

	_, err := repo.Create(context.Background(), "alice", "hash")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrDuplicateUsername)
}

func TestGetBySessionToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "session_token"}).
		AddRow(int64(3), "bob", "hash", "tok")
	mock.ExpectQuery(`FROM users\s+WHERE session_token = \$1`).
		WithArgs("tok").
		WillReturnRows(rows)

	user, err := repo.GetBySessionToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "bob", user.Username)
	assert.True(t, user.HasSession())
}

func TestGetBySessionTokenEmptySkipsQuery(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	_, err := repo.GetBySessionToken(context.Background(), "")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsernameNullToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "session_token"}).
		AddRow(int64(3), "bob", "hash", nil)
	mock.ExpectQuery(`WHERE username = \$1`).WithArgs("bob").WillReturnRows(rows)

	user, err := repo.GetByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, user.HasSession())
}

func TestGetByUsernameNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE username = \$1`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetSessionToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET session_token = \$1 WHERE id = \$2`).
		WithArgs("tok", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetSessionToken(context.Background(), 3, "tok"))

	mock.ExpectExec(`UPDATE users SET session_token`).
		WithArgs("tok", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.SetSessionToken(context.Background(), 4, "tok"), ErrNotFound)

	mock.ExpectExec(`UPDATE users SET session_token`).
		WithArgs("dup", int64(3)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_session_token_key"})
	require.ErrorIs(t, repo.SetSessionToken(context.Background(), 3, "dup"), ErrTokenInUse)
}

func TestClearSessionToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SET session_token = NULL\s+WHERE session_token = \$1\s+RETURNING id, username`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(int64(3), "bob"))

	identity, err := repo.ClearSessionToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "bob", identity.Username)

	mock.ExpectQuery(`SET session_token = NULL`).WithArgs("gone").WillReturnError(sql.ErrNoRows)
	_, err = repo.ClearSessionToken(context.Background(), "gone")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePasswordHashIsConditional(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET password_hash = \$1 WHERE id = \$2 AND password_hash = \$3`).
		WithArgs("new", int64(1), "old").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePasswordHash(context.Background(), 1, "old", "new")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateIfAbsent(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`ON CONFLICT \(username\) DO NOTHING`).
		WithArgs("alice", "h").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`ON CONFLICT \(username\) DO NOTHING`).
		WithArgs("alice", "h").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.CreateIfAbsent(context.Background(), "alice", "h")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.CreateIfAbsent(context.Background(), "alice", "h")
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil, nil))
	assert.ErrorIs(t, classify(sql.ErrNoRows, nil), ErrNotFound)
	assert.ErrorIs(t, classify(errors.New("connection refused"), nil), ErrStoreUnavailable)
	assert.ErrorIs(t, classify(&pq.Error{Code: "23505"}, nil), ErrStoreUnavailable, "unexpected conflicts are unavailable")
}
