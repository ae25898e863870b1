package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webserv/sessionauth/internal/store"
)

func TestCreateUserRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.credentials.CreateUser(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = f.credentials.CreateUser(ctx, "alice", "pw2")
	require.ErrorIs(t, err, store.ErrDuplicateUsername)

	total, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	user, err := f.repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, f.credentials.hasher.Matches(user.PasswordHash, "pw1"), "first record is not overwritten")
	assert.Equal(t, []string{EventUserRegistered}, f.events.types())
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, tc := range []struct{ username, password string }{
		{"", "pw"},
		{"   ", "pw"},
		{"alice", ""},
	} {
		_, err := f.credentials.CreateUser(ctx, tc.username, tc.password)
		require.ErrorIs(t, err, ErrValidation, "%q/%q", tc.username, tc.password)
	}

	_, err := f.credentials.CreateUser(ctx, "alice", strings.Repeat("x", 100))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestCreateUserNeverStoresPlaintext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.credentials.CreateUser(ctx, "alice", "pw1")
	require.NoError(t, err)

	user, err := f.repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotContains(t, user.PasswordHash, "pw1")
	assert.Len(t, user.PasswordHash, 60)
}

func TestVerifyCredentialsRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.credentials.CreateUser(ctx, "alice", "pw1")
	require.NoError(t, err)

	user, ok, err := f.credentials.VerifyCredentials(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, user.ID)

	_, ok, err = f.credentials.VerifyCredentials(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.credentials.VerifyCredentials(ctx, "nobody", "pw1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyCredentialsUpgradesLegacyDigest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sum := sha256.Sum256([]byte("secret123"))
	legacy := hex.EncodeToString(sum[:])
	_, err := f.repo.Create(ctx, "bob", legacy)
	require.NoError(t, err)

	_, ok, err := f.credentials.VerifyCredentials(ctx, "bob", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.credentials.VerifyCredentials(ctx, "bob", "secret123")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := f.repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, legacy, stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))

	_, ok, err = f.credentials.VerifyCredentials(ctx, "bob", "secret123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClearSessionTokenUnknownIsNoop(t *testing.T) {
	f := newFixture(t)

	_, cleared, err := f.credentials.ClearSessionToken(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.False(t, cleared)

	_, cleared, err = f.credentials.ClearSessionToken(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, cleared)
}
