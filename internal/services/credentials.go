package services

import (
	"context"
	"errors"
	"strings"

	"github.com/webserv/sessionauth/internal/store"
	"github.com/webserv/sessionauth/types"
)

// UserRepository defines persistence operations for user records.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetBySessionToken(ctx context.Context, token string) (types.User, error)
	Create(ctx context.Context, username, passwordHash string) (types.User, error)
	SetSessionToken(ctx context.Context, id int64, token string) error
	ClearSessionToken(ctx context.Context, token string) (types.Identity, error)
	UpdatePasswordHash(ctx context.Context, id int64, oldHash, newHash string) error
}

// CredentialStore maps usernames to password hashes and session tokens.
// Every method is a self-contained store operation; nothing is cached
// between calls.
type CredentialStore struct {
	repo   UserRepository
	hasher PasswordHasher
	events EventPublisher
}

func NewCredentialStore(repo UserRepository, hasher PasswordHasher, events EventPublisher) *CredentialStore {
	if events == nil {
		events = NopPublisher{}
	}
	return &CredentialStore{repo: repo, hasher: hasher, events: events}
}

// CreateUser hashes password and inserts a new user. It fails with
// ErrValidation for empty fields and store.ErrDuplicateUsername when the
// username is taken.
func (s *CredentialStore) CreateUser(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, ErrValidation
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return 0, err
	}

	user, err := s.repo.Create(ctx, username, hashed)
	if err != nil {
		return 0, err
	}

	s.events.Publish(ctx, newEvent(EventUserRegistered, types.Identity{UserID: user.ID, Username: user.Username}))
	return user.ID, nil
}

// VerifyCredentials returns the matching user, or false when the username
// is unknown or the password is wrong. Only store failures are errors.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, username, password string) (types.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, false, nil
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if b, ok := s.hasher.(interface{ burn(string) }); ok {
				b.burn(password)
			}
			return types.User{}, false, nil
		}
		return types.User{}, false, err
	}

	if !s.hasher.Matches(user.PasswordHash, password) {
		return types.User{}, false, nil
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, &user, password)
	}
	return user, true, nil
}

// upgradeHash replaces an outdated digest. Losing the race to a concurrent
// upgrade is fine; any other failure leaves the old digest in place.
func (s *CredentialStore) upgradeHash(ctx context.Context, user *types.User, password string) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, user.PasswordHash, hashed); err == nil {
		user.PasswordHash = hashed
	}
}

// SetSessionToken overwrites the user's session token, invalidating any
// previous one.
func (s *CredentialStore) SetSessionToken(ctx context.Context, userID int64, token string) error {
	return s.repo.SetSessionToken(ctx, userID, token)
}

// FindUserByToken resolves an exact token match to its owner.
func (s *CredentialStore) FindUserByToken(ctx context.Context, token string) (types.Identity, bool, error) {
	if token == "" {
		return types.Identity{}, false, nil
	}
	user, err := s.repo.GetBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Identity{}, false, nil
		}
		return types.Identity{}, false, err
	}
	return types.Identity{UserID: user.ID, Username: user.Username}, true, nil
}

// ClearSessionToken nulls the token of whichever user holds it. A token
// nobody holds is not an error; the boolean reports whether one was cleared.
func (s *CredentialStore) ClearSessionToken(ctx context.Context, token string) (types.Identity, bool, error) {
	if token == "" {
		return types.Identity{}, false, nil
	}
	identity, err := s.repo.ClearSessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Identity{}, false, nil
		}
		return types.Identity{}, false, err
	}
	return identity, true, nil
}
