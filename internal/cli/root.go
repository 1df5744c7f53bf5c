// Package cli wires the cobra command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wantanidea/wantanidea-cli/internal/appctx"
	"github.com/wantanidea/wantanidea-cli/internal/commands"
	"github.com/wantanidea/wantanidea-cli/internal/config"
	"github.com/wantanidea/wantanidea-cli/internal/output"
	"github.com/wantanidea/wantanidea-cli/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "wai",
		Short:         "Command-line client for WantAnIdea",
		Long:          "wai is a CLI for the WantAnIdea idea-sharing platform: manage your account, profile, and session from the terminal.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and version commands
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				BaseURL: flags.BaseURL,
			})
			if err != nil {
				return err
			}

			app := appctx.NewApp(cfg)
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().StringVar(&flags.BaseURL, "base-url", "", "API base URL")
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for ops, -vv for requests)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show session statistics")

	return cmd
}

// Execute runs the root command.
func Execute() {
	cmd := NewRootCmd()

	cmd.AddCommand(commands.NewAuthCmd())
	cmd.AddCommand(commands.NewProfileCmd())
	cmd.AddCommand(commands.NewStatsCmd())
	cmd.AddCommand(commands.NewAccountCmd())
	cmd.AddCommand(commands.NewAPICmd())

	executedCmd, err := cmd.ExecuteC()
	if err == nil {
		return
	}

	apiErr := output.AsError(err)

	// Use app.Err() when the app is available (for --stats support)
	if app := appctx.FromContext(executedCmd.Context()); app != nil {
		_ = app.Err(err)
		os.Exit(apiErr.ExitCode())
	}

	// Fallback: app not available, e.g. during setup
	writer := output.New(output.Options{Format: output.FormatAuto, Writer: os.Stdout})
	_ = writer.Err(err)
	os.Exit(apiErr.ExitCode())
}
