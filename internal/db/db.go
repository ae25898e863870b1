package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/webserv/sessionauth/config"
	_ "modernc.org/sqlite"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
)

// Open connects to the configured credential store and verifies the
// connection. The returned pool is safe for concurrent use; each store
// operation borrows a connection for its own duration only.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	dialect, err := DialectFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), DSN(cfg))
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// DSN builds the driver connection string for the configured store.
func DSN(cfg config.Config) string {
	lockTimeoutMS := strconv.FormatInt(cfg.Store.LockTimeout.Milliseconds(), 10)

	if cfg.Store.Driver == config.DriverPostgres {
		u := postgresURL(cfg)
		q := u.Query()
		q.Set("lock_timeout", lockTimeoutMS)
		u.RawQuery = q.Encode()
		return u.String()
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%s)", lockTimeoutMS))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + cfg.Store.SQLitePath + "?" + q.Encode()
}

// MigrationURL builds the golang-migrate database URL for the configured store.
func MigrationURL(cfg config.Config) string {
	if cfg.Store.Driver == config.DriverPostgres {
		return postgresURL(cfg).String()
	}
	return "sqlite://" + cfg.Store.SQLitePath
}

func postgresURL(cfg config.Config) *url.URL {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port),
		User:   url.UserPassword(cfg.Database.User, cfg.Database.Password),
		Path:   cfg.Database.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u
}
