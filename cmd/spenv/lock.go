// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spkenv/spenv/internal/lock"
	"github.com/spkenv/spenv/pkg/types"
)

type lockOptions struct {
	resolveFlags
	update bool
	force  bool
	check  bool
}

func newLockCommand(app *App) *cobra.Command {
	opts := &lockOptions{}
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Record the resolved environment in .spenv.lock.yaml",
		Long: `Record the resolved environment in .spenv.lock.yaml next to the starting spec.

The lock stores the hash of every contributing spec file and the digest every
layer resolved to. By default an existing lock is an error; use --update to
replace it or --force to write regardless. --check compares instead of
writing and exits 0 on match, 1 on drift and 2 when no lock exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.check {
				return runCheck(cmd, app, &opts.resolveFlags, true)
			}
			return runLock(cmd, app, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.update, "update", false, "replace an existing lock file")
	cmd.Flags().BoolVar(&opts.force, "force", false, "write the lock file whether or not one exists")
	cmd.Flags().BoolVar(&opts.check, "check", false, "verify the lock file instead of writing it")
	cmd.MarkFlagsMutuallyExclusive("update", "force", "check")
	return cmd
}

func (o *lockOptions) mode() lock.Mode {
	switch {
	case o.force:
		return lock.ModeForce
	case o.update:
		return lock.ModeUpdate
	default:
		return lock.ModeCreate
	}
}

func runLock(cmd *cobra.Command, app *App, opts *lockOptions) error {
	ctx := cmd.Context()
	res, err := app.resolve(ctx, &opts.resolveFlags)
	if err != nil {
		return classifyError(err)
	}
	fp, err := app.computeFingerprint(ctx, res)
	if err != nil {
		return classifyError(err)
	}
	mgr := app.lockManager(res)
	rec, err := mgr.Generate(fp, opts.mode())
	if err != nil {
		return classifyError(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(string(mgr.Path())))
	fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render("fingerprint:"), rec.Fingerprint)
	fmt.Fprintf(out, "  %s %d file(s), %d layer(s)\n", SubtitleStyle.Render("inputs:"), len(rec.Sources), len(rec.Layers))
	return nil
}

// reportDrift prints the outcome of a lock check.
func reportDrift(w io.Writer, path types.FilesystemPath, drift *lock.DriftResult, strict bool) {
	switch drift.Status {
	case lock.StatusMatch:
		fmt.Fprintf(w, "%s Environment matches %s\n", SuccessStyle.Render("✓"), path)
	case lock.StatusMissing:
		fmt.Fprintf(w, "%s No lock file found at %s\n", WarningStyle.Render("!"), path)
		fmt.Fprintf(w, "\nRun %s to create it\n", CmdStyle.Render("'spenv lock'"))
	case lock.StatusDrift:
		label := WarningStyle.Render("! Environment differs from the lock file:")
		if strict {
			label = ErrorStyle.Render("✗ Environment differs from the lock file:")
		}
		fmt.Fprintln(w, label)
		for _, c := range drift.Changes {
			fmt.Fprintf(w, "  - %s\n", c)
		}
		fmt.Fprintf(w, "\nRun %s to update the lock file\n", CmdStyle.Render("'spenv lock --update'"))
	}
}
