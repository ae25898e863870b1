package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webserv/sessionauth/config"
	"github.com/webserv/sessionauth/internal/db"
	"github.com/webserv/sessionauth/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	repo        *store.UserRepository
	credentials *CredentialStore
	sessions    *SessionManager
	events      *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := config.Config{
		Store: config.StoreConfig{
			Driver:      config.DriverSQLite,
			SQLitePath:  filepath.Join(t.TempDir(), "users.db"),
			LockTimeout: 2 * time.Second,
		},
	}
	require.NoError(t, db.Migrate(cfg))
	conn, err := db.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	repo := store.NewUserRepository(conn, db.SQLite)
	events := &recordingPublisher{}
	credentials := NewCredentialStore(repo, NewBcryptHasher(bcrypt.MinCost), events)
	return fixture{
		repo:        repo,
		credentials: credentials,
		sessions:    NewSessionManager(credentials, events),
		events:      events,
	}
}
