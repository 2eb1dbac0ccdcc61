// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/spkenv/spenv/internal/envscript"
	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

type scriptOptions struct {
	resolveFlags
	outputDir string
}

func newScriptCommand(app *App) *cobra.Command {
	opts := &scriptOptions{}
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Render the environment operations as startup scripts",
		Long: `Render the composed environment operations as shell startup scripts.

Operations are grouped by priority into one script per priority, named
NN_spenv.sh so that sourcing them in lexical order applies them in order.
With --output-dir, NN_spenv.sh files left there by an earlier run are
removed first. Without it all scripts are printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := app.resolve(cmd.Context(), &opts.resolveFlags)
			if err != nil {
				return classifyError(err)
			}
			frags, err := envscript.New(runtime.GOOS).Fragments(res.Env.Ops)
			if err != nil {
				return classifyError(err)
			}
			scripts := envscript.Group(frags)
			if opts.outputDir == "" {
				for _, s := range scripts {
					fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", s.Name, s.Content)
				}
				return nil
			}
			return writeScripts(cmd, opts.outputDir, scripts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "write one script per priority into this directory")
	return cmd
}

// writeScripts writes each script into dir, creating it when needed. Scripts
// left by an earlier run are removed first so a dropped priority is not
// sourced again.
func writeScripts(cmd *cobra.Command, dir string, scripts []envscript.Script) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &spec.IOError{Op: "mkdir", Path: types.FilesystemPath(dir), Cause: err}
	}
	stale, err := doublestar.Glob(os.DirFS(dir), "*"+envscript.ScriptSuffix)
	if err != nil {
		return &spec.IOError{Op: "glob", Path: types.FilesystemPath(dir), Cause: err}
	}
	for _, name := range stale {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return &spec.IOError{Op: "remove", Path: types.FilesystemPath(path), Cause: err}
		}
		slog.Debug("removed stale startup script", "path", path)
	}
	for _, s := range scripts {
		path := filepath.Join(dir, s.Name)
		if err := os.WriteFile(path, []byte(s.Content), 0o644); err != nil {
			return &spec.IOError{Op: "write", Path: types.FilesystemPath(path), Cause: err}
		}
		slog.Debug("wrote startup script", "path", path, "priority", s.Priority)
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", SuccessStyle.Render("✓"), path)
	}
	if len(scripts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("No environment operations to write"))
	}
	return nil
}
