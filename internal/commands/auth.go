package commands

import (
	"fmt"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wantanidea/wantanidea-cli/internal/auth"
	"github.com/wantanidea/wantanidea-cli/internal/models"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Manage WantAnIdea authentication including login, registration, logout, and status.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthRegisterCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
		newAuthRefreshCmd(),
		newAuthSocialCmd(),
		newAuthForgotPasswordCmd(),
		newAuthResetPasswordCmd(),
		newAuthVerifyEmailCmd(),
		newAuthResendVerificationCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if email == "" {
				return output.ErrUsage("--email is required")
			}
			if password == "" {
				pw, err := readPassword("Password: ")
				if err != nil {
					return err
				}
				password = pw
			}

			user, err := app.Session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			return app.OK(user, output.WithSummary(fmt.Sprintf("Logged in as %s", user.Name)))
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted if omitted)")

	return cmd
}

func newAuthRegisterCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if email == "" {
				return output.ErrUsage("--email is required")
			}
			if password == "" {
				pw, err := readPassword("Password: ")
				if err != nil {
					return err
				}
				password = pw
			}

			user, err := app.Session.Register(cmd.Context(), models.RegisterRequest{
				Email:    email,
				Password: password,
				Name:     name,
			})
			if err != nil {
				return err
			}

			return app.OK(user, output.WithSummary(fmt.Sprintf("Welcome, %s", user.Name)))
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long:  "Clear the stored session. Sessions are client-owned, so no server call is made.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if err := app.Session.Logout(); err != nil {
				return err
			}

			return app.OK(map[string]string{"status": "logged_out"},
				output.WithSummary("Logged out"))
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if err := app.Bootstrap(cmd.Context()); err != nil && !output.IsAuth(err) {
				return err
			}

			if !app.Session.IsAuthenticated() {
				return app.OK(map[string]any{"authenticated": false},
					output.WithSummary("Not logged in"))
			}

			user := app.Session.CurrentUser()
			return app.OK(map[string]any{
				"authenticated": true,
				"email":         user.Email,
				"name":          user.Name,
				"keyring":       app.Store.UsingKeyring(),
			}, output.WithSummary(fmt.Sprintf("Logged in as %s", user.Name)))
		},
	}
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if err := app.API.Refresh(cmd.Context()); err != nil {
				return err
			}

			return app.OK(map[string]string{"status": "refreshed"},
				output.WithSummary("Token refreshed"))
		},
	}
}

func newAuthSocialCmd() *cobra.Command {
	var code string

	providers := make([]string, 0, len(auth.SocialProviders))
	for p := range auth.SocialProviders {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	cmd := &cobra.Command{
		Use:   "social <provider>",
		Short: "Sign in via an OAuth provider",
		Long:  "Sign in with a provider code or token obtained out of band. Providers: " + strings.Join(providers, ", ") + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if code == "" {
				return output.ErrUsage("--code is required")
			}

			user, err := app.Session.SocialLogin(cmd.Context(), args[0], code)
			if err != nil {
				return err
			}

			return app.OK(user, output.WithSummary(fmt.Sprintf("Logged in as %s", user.Name)))
		},
	}

	cmd.Flags().StringVarP(&code, "code", "c", "", "Provider authorization code or token")

	return cmd
}

func newAuthForgotPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.Session.ForgotPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.OK(nil, output.WithSummary("Password reset email requested"))
		},
	}
}

func newAuthResetPasswordCmd() *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a password with an emailed token",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if token == "" {
				return output.ErrUsage("--token is required")
			}
			if password == "" {
				pw, err := readPassword("New password: ")
				if err != nil {
					return err
				}
				password = pw
			}
			if err := app.Session.ResetPassword(cmd.Context(), token, password); err != nil {
				return err
			}
			return app.OK(nil, output.WithSummary("Password reset"))
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Reset token from the email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password (prompted if omitted)")

	return cmd
}

func newAuthVerifyEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Verify an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.Session.VerifyEmail(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.OK(nil, output.WithSummary("Email verified"))
		},
	}
}

func newAuthResendVerificationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend-verification <email>",
		Short: "Resend the verification email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.Session.ResendVerification(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.OK(nil, output.WithSummary("Verification email sent"))
		},
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", output.ErrUsage("could not read password from terminal")
	}
	return string(data), nil
}
