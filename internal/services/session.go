package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/webserv/sessionauth/internal/store"
	"github.com/webserv/sessionauth/types"
)

const maxMintAttempts = 3

// SessionManager issues, validates and revokes opaque session tokens.
// A user holds at most one live token; issuing a new one replaces the old.
type SessionManager struct {
	credentials *CredentialStore
	events      EventPublisher
	newToken    func() (string, error)
}

func NewSessionManager(credentials *CredentialStore, events EventPublisher) *SessionManager {
	if events == nil {
		events = NopPublisher{}
	}
	return &SessionManager{
		credentials: credentials,
		events:      events,
		newToken:    mintRandomToken,
	}
}

// MintToken returns a fresh token with 122 bits of randomness. It does not
// touch the store.
func (m *SessionManager) MintToken() (string, error) {
	return m.newToken()
}

func mintRandomToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return id.String(), nil
}

// Authenticate resolves a cookie value to its user. An absent, empty or
// stale value is simply not authenticated.
func (m *SessionManager) Authenticate(ctx context.Context, cookieValue string) (types.Identity, bool, error) {
	token := strings.TrimSpace(cookieValue)
	if token == "" {
		return types.Identity{}, false, nil
	}
	return m.credentials.FindUserByToken(ctx, token)
}

// Login verifies credentials and binds a new token to the user, returning
// it. It fails with ErrInvalidCredentials without saying which part was wrong.
func (m *SessionManager) Login(ctx context.Context, username, password string) (string, error) {
	user, ok, err := m.credentials.VerifyCredentials(ctx, username, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	var token string
	for attempt := 0; ; attempt++ {
		token, err = m.MintToken()
		if err != nil {
			return "", err
		}
		err = m.credentials.SetSessionToken(ctx, user.ID, token)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrTokenInUse) || attempt+1 >= maxMintAttempts {
			return "", err
		}
	}

	identity := types.Identity{UserID: user.ID, Username: user.Username}
	if user.HasSession() {
		m.events.Publish(ctx, newEvent(EventSessionReplaced, identity))
	}
	m.events.Publish(ctx, newEvent(EventSessionStarted, identity))
	return token, nil
}

// Logout revokes the token carried by cookieValue. Unknown or empty values
// are a no-op. Only a store failure is reported.
func (m *SessionManager) Logout(ctx context.Context, cookieValue string) error {
	identity, cleared, err := m.credentials.ClearSessionToken(ctx, strings.TrimSpace(cookieValue))
	if err != nil {
		return err
	}
	if cleared {
		m.events.Publish(ctx, newEvent(EventSessionEnded, identity))
	}
	return nil
}
