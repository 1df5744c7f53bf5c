package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wantanidea/wantanidea-cli/internal/models"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

// NewAccountCmd creates the account command.
func NewAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show account information",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.RequireSession(cmd.Context()); err != nil {
				return err
			}

			resp, err := app.Session.Account(cmd.Context())
			if err != nil {
				return err
			}

			return app.OK(json.RawMessage(resp.Data))
		},
	}
}

// NewStatsCmd creates the stats command group.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "View and update activity stats",
	}

	cmd.AddCommand(newStatsShowCmd(), newStatsUpdateCmd())

	return cmd
}

func newStatsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show activity stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.RequireSession(cmd.Context()); err != nil {
				return err
			}

			stats, err := app.Session.Stats(cmd.Context())
			if err != nil {
				return err
			}

			return app.OK(stats, output.WithSummary(fmt.Sprintf("%d ideas submitted", stats.IdeasSubmitted)))
		},
	}
}

func newStatsUpdateCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update activity stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.RequireSession(cmd.Context()); err != nil {
				return err
			}
			if data == "" {
				return output.ErrUsage("--data is required")
			}

			var stats models.Stats
			if err := json.Unmarshal([]byte(data), &stats); err != nil {
				return output.ErrUsageHint("Invalid JSON data", fmt.Sprintf("JSON parse error: %v", err))
			}

			if err := app.Session.UpdateStats(cmd.Context(), &stats); err != nil {
				return err
			}

			return app.OK(&stats, output.WithSummary("Stats updated"))
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON stats object (required)")

	return cmd
}
