// Package legacy imports accounts from a users.db written by the previous
// CGI deployment.
//
// The old table is users(id, username, password, session_id) with
// passwords stored as unsalted hex SHA-256 digests. Digests are copied as
// they are and upgraded to bcrypt on each user's next login. Session ids
// are not carried over.
package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/webserv/sessionauth/internal/db"
	"github.com/webserv/sessionauth/internal/services"
	"github.com/webserv/sessionauth/internal/store"
	_ "modernc.org/sqlite"
)

// Result counts what an import did.
type Result struct {
	Imported int
	// Skipped rows name a username that already exists in the destination.
	Skipped int
	// Invalid rows have an empty username or a password that is not a
	// SHA-256 digest.
	Invalid int
}

// ErrSourceIsDestination is returned when the legacy file is the store
// being imported into.
var ErrSourceIsDestination = errors.New("legacy source is the destination store")

// CheckDistinct fails when srcPath and destPath name the same SQLite file.
func CheckDistinct(srcPath, destPath string) error {
	srcAbs, err := filepath.Abs(srcPath)
	if err != nil {
		return err
	}
	destAbs, err := filepath.Abs(destPath)
	if err != nil {
		return err
	}
	if srcAbs == destAbs {
		return fmt.Errorf("%w: %s", ErrSourceIsDestination, srcAbs)
	}

	srcInfo, err := os.Stat(srcAbs)
	if err != nil {
		return nil
	}
	destInfo, err := os.Stat(destAbs)
	if err != nil {
		return nil
	}
	if os.SameFile(srcInfo, destInfo) {
		return fmt.Errorf("%w: %s", ErrSourceIsDestination, srcAbs)
	}
	return nil
}

type account struct {
	username string
	digest   string
}

// OpenSource opens a legacy users.db read-only.
func OpenSource(ctx context.Context, path string) (*sql.DB, error) {
	dsn := (&url.URL{Scheme: "file", Opaque: path, RawQuery: "mode=ro"}).String()
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open legacy store %s: %w", path, err)
	}
	return conn, nil
}

// Import copies every legacy account into dest in a single transaction.
// Existing usernames are left untouched, so a rerun imports nothing new.
func Import(ctx context.Context, src, dest *sql.DB, repo *store.UserRepository, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	accounts, err := readAccounts(ctx, src)
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = db.WithTx(ctx, dest, nil, func(ctx context.Context, tx db.DBTX) error {
		txRepo := repo.WithTx(tx)
		result = Result{}
		for _, a := range accounts {
			if a.username == "" || !services.IsLegacyDigest(a.digest) {
				result.Invalid++
				logger.WarnContext(ctx, "skipping invalid legacy account", "username", a.username)
				continue
			}
			inserted, err := txRepo.CreateIfAbsent(ctx, a.username, a.digest)
			if err != nil {
				return err
			}
			if inserted {
				result.Imported++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("import legacy accounts: %w", err)
	}

	logger.InfoContext(ctx, "legacy import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"invalid", result.Invalid,
	)
	return result, nil
}

func readAccounts(ctx context.Context, src *sql.DB) ([]account, error) {
	rows, err := src.QueryContext(ctx, `SELECT username, password FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read legacy users: %w", err)
	}
	defer rows.Close()

	var accounts []account
	for rows.Next() {
		var username, digest sql.NullString
		if err := rows.Scan(&username, &digest); err != nil {
			return nil, fmt.Errorf("scan legacy user: %w", err)
		}
		accounts = append(accounts, account{
			username: strings.TrimSpace(username.String),
			digest:   strings.ToLower(strings.TrimSpace(digest.String)),
		})
	}
	return accounts, rows.Err()
}
