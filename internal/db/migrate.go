package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/webserv/sessionauth/config"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending up migrations for the configured store. It
// refuses to touch a store whose users table has a foreign layout, and
// leaves such a store unmodified.
func Migrate(cfg config.Config) error {
	if err := checkExistingSchema(cfg); err != nil {
		return err
	}

	migrator, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// Rollback reverts the given number of applied migrations.
func Rollback(cfg config.Config, steps int) error {
	if steps < 1 {
		return fmt.Errorf("steps must be >= 1")
	}

	migrator, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}

func checkExistingSchema(cfg config.Config) error {
	dialect, err := DialectFor(cfg)
	if err != nil {
		return err
	}
	conn, err := sql.Open(dialect.DriverName(), DSN(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()
	return guardExistingUsers(ctx, conn)
}

func newMigrator(cfg config.Config) (*migrate.Migrate, error) {
	dialect, err := DialectFor(cfg)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, MigrationURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}
