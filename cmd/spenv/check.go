// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/spkenv/spenv/internal/lock"
	"github.com/spkenv/spenv/internal/watch"
	"github.com/spkenv/spenv/pkg/types"
)

type checkOptions struct {
	resolveFlags
	strict bool
	watch  bool
}

func newCheckCommand(app *App) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the environment still matches its lock file",
		Long: `Verify that the environment still matches .spenv.lock.yaml.

Drift is reported as a warning unless --strict is given (or lock.strict is
set in the configuration), in which case the exit code is 1 on drift and 2
when the lock file is missing. With --watch the check re-runs whenever a
contributing spec file or the lock file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			strict := opts.strict || app.cfg.Lock.Strict
			if opts.watch {
				return runWatch(cmd, app, opts, strict)
			}
			return runCheck(cmd, app, &opts.resolveFlags, strict)
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero on drift or a missing lock")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-run the check when spec files change")
	return cmd
}

// runCheck resolves, fingerprints and compares against the lock file. In
// strict mode the drift status becomes the exit code; otherwise only a
// missing lock is reported through the exit code.
func runCheck(cmd *cobra.Command, app *App, flags *resolveFlags, strict bool) error {
	drift, res, err := app.checkResolved(cmd.Context(), flags)
	if err != nil {
		return classifyError(err)
	}
	reportDrift(cmd.OutOrStdout(), res.Result.LockPath(), drift, strict)
	if code := checkExitCode(drift.Status, strict); !code.IsSuccess() {
		return &ExitError{Code: code}
	}
	return nil
}

func checkExitCode(status lock.Status, strict bool) types.ExitCode {
	if strict || status == lock.StatusMissing {
		return status.ExitCode()
	}
	return types.ExitMatch
}

// checkResolved resolves the environment and compares it with its lock file.
func (a *App) checkResolved(ctx context.Context, flags *resolveFlags) (*lock.DriftResult, *resolution, error) {
	res, err := a.resolve(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	fp, err := a.computeFingerprint(ctx, res)
	if err != nil {
		return nil, nil, err
	}
	drift, err := a.lockManager(res).Check(fp)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range drift.Changes {
		slog.Debug("lock drift", "kind", c.Kind, "subject", c.Subject, "expected", c.Expected, "actual", c.Actual)
	}
	return drift, res, nil
}

// runWatch checks once, then re-checks on every relevant file change until
// the command context is cancelled. Later failures are reported and the
// previously tracked files stay watched.
func runWatch(cmd *cobra.Command, app *App, opts *checkOptions, strict bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	recheck := func(ctx context.Context) ([]string, error) {
		drift, res, err := app.checkResolved(ctx, &opts.resolveFlags)
		if err != nil {
			return nil, err
		}
		reportDrift(out, res.Result.LockPath(), drift, strict)
		return watchedFiles(res), nil
	}

	files, err := recheck(ctx)
	if err != nil {
		return classifyError(err)
	}

	var w *watch.Watcher
	w, err = watch.New(watch.Config{
		Files:  files,
		Stderr: cmd.ErrOrStderr(),
		OnChange: func(ctx context.Context, changed []string) error {
			slog.Info("spec files changed", "files", changed)
			fmt.Fprintln(out)
			next, err := recheck(ctx)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", ErrorStyle.Render("Error:"),
					formatErrorForDisplay(classifyError(err), app.verbose))
				return nil
			}
			return w.Track(next)
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n", SubtitleStyle.Render("Watching for changes, press Ctrl+C to stop"))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchedFiles lists the contributing spec files plus the lock file.
func watchedFiles(res *resolution) []string {
	files := make([]string, 0, len(res.Result.Entries)+1)
	for _, p := range res.Result.Paths() {
		files = append(files, string(p))
	}
	return append(files, string(res.Result.LockPath()))
}
