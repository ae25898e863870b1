package handlers

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/webserv/sessionauth/config"
	"github.com/webserv/sessionauth/internal/db"
	"github.com/webserv/sessionauth/internal/services"
	"github.com/webserv/sessionauth/internal/store"
	"github.com/webserv/sessionauth/internal/views"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	router http.Handler
	repo   *store.UserRepository
	conn   *sql.DB
}

func newTestApp(t *testing.T) testApp {
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
	return testApp{
		router: newRouter(repo),
		repo:   repo,
		conn:   conn,
	}
}

func newRouter(repo services.UserRepository) http.Handler {
	credentials := services.NewCredentialStore(repo, services.NewBcryptHasher(bcrypt.MinCost), nil)
	sessions := services.NewSessionManager(credentials, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	AuthRouter(r, NewAuthHandler(credentials, sessions, views.Must(), logger, false))
	return r
}

func postForm(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func withCookie(req *http.Request, value string) *http.Request {
	req.Header.Set("Cookie", SessionCookieName+"="+value)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// sessionToken extracts the session cookie value set by a response.
func sessionToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c.Value
		}
	}
	t.Fatalf("no %s cookie in %v", SessionCookieName, rec.Header().Values("Set-Cookie"))
	return ""
}
