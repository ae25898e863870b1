/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/webserv/sessionauth/internal/mq"
	"github.com/webserv/sessionauth/internal/services"
)

// eventsCmd groups session event tooling.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect session lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print session events from the configured bus as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		ctx := cmd.Context()

		bus, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if bus == nil {
			return errors.New("EVENTS_BACKEND is not configured")
		}
		defer bus.Close()

		out := json.NewEncoder(cmd.OutOrStdout())
		err = bus.Subscribe(ctx, cfg.Events.Channel, func(ctx context.Context, msg mq.Message) error {
			event, err := services.DecodeEvent(msg)
			if err != nil {
				logger.WarnContext(ctx, "dropping undecodable event", "id", msg.ID, "error", err)
				return nil
			}
			return out.Encode(event)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe %s: %w", cfg.Events.Channel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
