// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/spkenv/spenv/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	verbosity int
	quiet     bool
	cfgFile   string
}

// NewRootCommand builds the spenv command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &app.opts
	rootCmd := &cobra.Command{
		Use:   "spenv",
		Short: "Compose layered runtime environments from spec files",
		Long: TitleStyle.Render("spenv") + SubtitleStyle.Render(" - Compose layered runtime environments from spec files") + `

spenv reads .spenv.yaml files from the current directory, its parents and
explicit includes, merges them into one environment and keeps a lock file
that records exactly which files and layers produced it.

` + SubtitleStyle.Render("Examples:") + `
  spenv init                Create a .spenv.yaml in the current directory
  spenv show                Show the resolved files and layer stack
  spenv script -o env.d     Write the environment startup scripts
  spenv lock                Record the environment in .spenv.lock.yaml
  spenv check --strict      Fail when the environment drifted from the lock`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd.Context(), true)
		},
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/spenv/config.cue)")

	rootCmd.AddCommand(
		newInitCommand(),
		newShowCommand(app),
		newScriptCommand(app),
		newLockCommand(app),
		newCheckCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the command's exit code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler(app)),
	); err != nil {
		os.Exit(int(exitCode(err)))
	}
}

// setup loads configuration and installs the logger. It runs before every
// command. With strict unset, an unreadable explicit config file is only
// logged.
func (a *App) setup(ctx context.Context, strict bool) error {
	opts := &a.opts
	warning, err := a.loadConfig(ctx, opts.cfgFile)
	if err != nil {
		if strict {
			return err
		}
		warning = err
	}
	a.verbose = opts.verbosity > 0 || a.cfg.UI.Verbose
	slog.SetDefault(newLogger(a.stderr, logLevel(opts, a.cfg.Log.Level)))
	if warning != nil {
		slog.Warn("using default configuration", "error", warning)
	}
	return nil
}

// logLevel picks the slog level: -q wins, then -v/-vv, then the configured level.
func logLevel(opts *rootOptions, configured config.LogLevel) slog.Level {
	switch {
	case opts.quiet:
		return slog.LevelError
	case opts.verbosity >= 2:
		return slog.LevelDebug
	case opts.verbosity == 1:
		return slog.LevelInfo
	default:
		return configured.SlogLevel()
	}
}

// newLogger returns a slog logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  log.Level(level),
	})
	return slog.New(handler)
}
