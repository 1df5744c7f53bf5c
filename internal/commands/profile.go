package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wantanidea/wantanidea-cli/internal/models"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

// NewProfileCmd creates the profile command group.
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and update your profile",
	}

	cmd.AddCommand(
		newProfileShowCmd(),
		newProfileUpdateCmd(),
		newProfilePreferencesCmd(),
	)

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.RequireSession(cmd.Context()); err != nil {
				return err
			}

			user := app.Session.CurrentUser()
			return app.OK(user, output.WithSummary(fmt.Sprintf("%s <%s>", user.Name, user.Email)))
		},
	}
}

func newProfileUpdateCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		Long:  "Update profile fields from a JSON object, e.g. --data '{\"bio\":\"...\"}'. The server's returned profile replaces the local one wholesale.",
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

			var changes map[string]any
			if err := json.Unmarshal([]byte(data), &changes); err != nil {
				return output.ErrUsageHint("Invalid JSON data", fmt.Sprintf("JSON parse error: %v", err))
			}

			user, err := app.Session.UpdateProfile(cmd.Context(), changes)
			if err != nil {
				return err
			}

			return app.OK(user, output.WithSummary("Profile updated"))
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON object of profile fields (required)")

	return cmd
}

func newProfilePreferencesCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Show or update notification preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.RequireSession(cmd.Context()); err != nil {
				return err
			}

			if data == "" {
				prefs := app.Session.CurrentUser().Preferences
				if prefs == nil {
					prefs = models.DefaultPreferences()
				}
				return app.OK(prefs)
			}

			var prefs models.Preferences
			if err := json.Unmarshal([]byte(data), &prefs); err != nil {
				return output.ErrUsageHint("Invalid JSON data", fmt.Sprintf("JSON parse error: %v", err))
			}

			if err := app.Session.UpdatePreferences(cmd.Context(), &prefs); err != nil {
				return err
			}

			return app.OK(&prefs, output.WithSummary("Preferences updated"))
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON preferences object (shows current when omitted)")

	return cmd
}
