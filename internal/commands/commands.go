// Package commands implements the CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/wantanidea/wantanidea-cli/internal/appctx"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

// appFrom pulls the App out of the command context.
func appFrom(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, output.ErrUsage("app not initialized")
	}
	return app, nil
}
