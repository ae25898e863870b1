package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webserv/sessionauth/internal/store"
	"github.com/webserv/sessionauth/types"
	"golang.org/x/crypto/bcrypt"
)

// downRepository fails every call the way a locked or unreachable store does.
type downRepository struct{}

func unavailable() error {
	return fmt.Errorf("%w: database is locked", store.ErrStoreUnavailable)
}

func (downRepository) GetByUsername(context.Context, string) (types.User, error) {
	return types.User{}, unavailable()
}

func (downRepository) GetBySessionToken(context.Context, string) (types.User, error) {
	return types.User{}, unavailable()
}

func (downRepository) Create(context.Context, string, string) (types.User, error) {
	return types.User{}, unavailable()
}

func (downRepository) SetSessionToken(context.Context, int64, string) error {
	return unavailable()
}

func (downRepository) ClearSessionToken(context.Context, string) (types.Identity, error) {
	return types.Identity{}, unavailable()
}

func (downRepository) UpdatePasswordHash(context.Context, int64, string, string) error {
	return unavailable()
}

func TestStoreUnavailablePropagates(t *testing.T) {
	events := &recordingPublisher{}
	credentials := NewCredentialStore(downRepository{}, NewBcryptHasher(bcrypt.MinCost), events)
	sessions := NewSessionManager(credentials, events)
	ctx := context.Background()

	_, err := credentials.CreateUser(ctx, "alice", "pw")
	require.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, err = sessions.Login(ctx, "alice", "pw")
	require.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, _, err = sessions.Authenticate(ctx, "tok")
	require.ErrorIs(t, err, store.ErrStoreUnavailable)

	require.ErrorIs(t, sessions.Logout(ctx, "tok"), store.ErrStoreUnavailable)
	require.Empty(t, events.types())
}
