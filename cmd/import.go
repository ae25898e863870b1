/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/webserv/sessionauth/config"
	"github.com/webserv/sessionauth/internal/db"
	"github.com/webserv/sessionauth/internal/legacy"
	"github.com/webserv/sessionauth/internal/store"
)

var importSource string

// importCmd copies accounts from a legacy users.db into the configured store.
var importCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Import accounts from a legacy users.db",
	Long: `Copies usernames and password digests from a users.db written by the
previous deployment. Existing usernames are skipped and sessions are not
carried over. Usage:

	sessionauth import-legacy --from /var/www/cgi-bin/users.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()

		if cfg.Store.Driver == config.DriverSQLite {
			if err := legacy.CheckDistinct(importSource, cfg.Store.SQLitePath); err != nil {
				return err
			}
		}

		if cfg.AutoMigrate {
			if err := db.Migrate(cfg); err != nil {
				return err
			}
		}

		src, err := legacy.OpenSource(ctx, importSource)
		if err != nil {
			return err
		}
		defer src.Close()

		dialect, err := db.DialectFor(cfg)
		if err != nil {
			return err
		}
		dest, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer dest.Close()

		result, err := legacy.Import(ctx, src, dest, store.NewUserRepository(dest, dialect), logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d existing, %d invalid\n",
			result.Imported, result.Skipped, result.Invalid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importSource, "from", "users.db", "path to the legacy users.db")
}
