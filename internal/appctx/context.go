// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wantanidea/wantanidea-cli/internal/api"
	"github.com/wantanidea/wantanidea-cli/internal/auth"
	"github.com/wantanidea/wantanidea-cli/internal/config"
	"github.com/wantanidea/wantanidea-cli/internal/observability"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands. It has an
// explicit lifecycle: created once per invocation, bootstrapped on first use
// of session state, gone at process exit. No package-level session state.
type App struct {
	Config    *config.Config
	Store     *auth.Store
	API       *api.Client
	Session   *auth.Session
	Output    *output.Writer
	Collector *observability.SessionCollector

	// Flags holds the global flag values
	Flags GlobalFlags

	bootstrapOnce sync.Once
	bootstrapErr  error
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	BaseURL string
	Verbose int // 0=off, 1=operations, 2=operations+requests
	Stats   bool
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	store := auth.NewStore(config.GlobalConfigDir())
	collector := observability.NewSessionCollector()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient(cfg, store,
		api.WithCollector(collector),
		api.WithLogger(logger),
	)
	session := auth.NewSession(store, client)

	format := output.FormatAuto
	switch cfg.Format {
	case "json":
		format = output.FormatJSON
	case "text":
		format = output.FormatText
	case "quiet":
		format = output.FormatQuiet
	}

	return &App{
		Config:    cfg,
		Store:     store,
		API:       client,
		Session:   session,
		Collector: collector,
		Output: output.New(output.Options{
			Format: format,
			Writer: os.Stdout,
		}),
	}
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	if a.Flags.Quiet {
		a.Output = output.New(output.Options{
			Format: output.FormatQuiet,
			Writer: os.Stdout,
		})
	} else if a.Flags.JSON {
		a.Output = output.New(output.Options{
			Format: output.FormatJSON,
			Writer: os.Stdout,
		})
	}

	verboseLevel := a.Flags.Verbose
	if debugEnv := os.Getenv("WANTANIDEA_DEBUG"); debugEnv != "" {
		if level, err := strconv.Atoi(debugEnv); err == nil {
			if level > verboseLevel {
				verboseLevel = level
			}
		} else if debugEnv == "true" {
			verboseLevel = 2
		}
	}

	if verboseLevel > 0 {
		level := slog.LevelInfo
		if verboseLevel > 1 {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		a.API = api.NewClient(a.Config, a.Store,
			api.WithCollector(a.Collector),
			api.WithLogger(logger),
		)
		a.Session = auth.NewSession(a.Store, a.API)
	}
}

// Bootstrap restores the session once per invocation. Commands that need the
// current user call it before reading session state; it settles (success or
// failure) before returning.
func (a *App) Bootstrap(ctx context.Context) error {
	a.bootstrapOnce.Do(func() {
		a.bootstrapErr = a.Session.Bootstrap(ctx)
	})
	return a.bootstrapErr
}

// RequireSession bootstraps and fails with an auth error when no session
// exists.
func (a *App) RequireSession(ctx context.Context) error {
	if err := a.Bootstrap(ctx); err != nil {
		return err
	}
	if !a.Session.IsAuthenticated() {
		return output.ErrAuth("Not logged in")
	}
	return nil
}

// OK outputs a success response, appending session stats when --stats is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	err := a.Output.OK(data, opts...)
	a.maybePrintStats()
	return err
}

// Err outputs an error response, printing stats to stderr if --stats is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}
	a.maybePrintStats()
	return nil
}

func (a *App) maybePrintStats() {
	if !a.Flags.Stats || a.Collector == nil || a.Flags.Quiet || a.Flags.JSON {
		return
	}
	stats := a.Collector.Summary()

	var parts []string
	duration := stats.EndTime.Sub(stats.StartTime)
	if duration < time.Second {
		parts = append(parts, fmt.Sprintf("%dms", duration.Milliseconds()))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fs", duration.Seconds()))
	}
	if stats.TotalRequests == 1 {
		parts = append(parts, "1 request")
	} else if stats.TotalRequests > 1 {
		parts = append(parts, fmt.Sprintf("%d requests", stats.TotalRequests))
	}
	if stats.RefreshCycles > 0 {
		parts = append(parts, fmt.Sprintf("%d token refresh", stats.RefreshCycles))
	}
	if stats.TotalRetries > 0 {
		parts = append(parts, fmt.Sprintf("%d retries", stats.TotalRetries))
	}
	if stats.FailedRequests > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", stats.FailedRequests))
	}

	fmt.Fprintf(os.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
