// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/charmbracelet/fang"

	"github.com/spkenv/spenv/internal/config"
	"github.com/spkenv/spenv/internal/discovery"
	"github.com/spkenv/spenv/internal/issue"
	"github.com/spkenv/spenv/internal/layer"
	"github.com/spkenv/spenv/internal/lock"
	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

// classifyError maps core failures to an ActionableError linked to the issue
// catalog. Errors that are already actionable, exit signals, and unknown
// failures are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var (
		ae      *issue.ActionableError
		exitErr *ExitError
	)
	if errors.As(err, &ae) || errors.As(err, &exitErr) {
		return err
	}

	ctx := issue.NewErrorContext().Wrap(err)
	switch {
	case errors.Is(err, discovery.ErrSpecNotFound):
		var nf *discovery.SpecNotFoundError
		if errors.As(err, &nf) {
			ctx.WithResource(string(nf.Path))
		}
		ctx.WithOperation("find spec").
			WithIssue(issue.SpecNotFoundId).
			WithSuggestions(
				"Run 'spenv init' to create "+spec.FileName,
				"Use -f to start from another directory",
			)
	case errors.Is(err, spec.ErrUnsupportedAPIVersion):
		var ue *spec.UnsupportedAPIVersionError
		if errors.As(err, &ue) {
			ctx.WithResource(string(ue.Path))
		}
		ctx.WithOperation("load spec").
			WithIssue(issue.UnsupportedAPIVersionId).
			WithSuggestion(fmt.Sprintf("Set 'api: %s' at the top of the file", spec.APIVersion))
	case errors.Is(err, spec.ErrInvalidMountSpec):
		ctx.WithOperation("load spec").
			WithIssue(issue.InvalidMountSpecId).
			WithSuggestion("Bind destinations must be absolute paths under " + spec.RuntimeRoot)
	case errors.Is(err, spec.ErrParse):
		var pe *spec.ParseError
		if errors.As(err, &pe) {
			ctx.WithResource(string(pe.Path))
		}
		ctx.WithOperation("parse spec").
			WithIssue(issue.SpecParseErrorId)
	case errors.Is(err, spec.ErrInvalidEnvOp):
		ctx.WithOperation("render environment").
			WithIssue(issue.SpecParseErrorId).
			WithSuggestion("Shell scripts cannot carry NUL bytes; remove them from environment values")
	case errors.Is(err, discovery.ErrCircularInclude):
		ctx.WithOperation("resolve includes").
			WithIssue(issue.CircularIncludeId).
			WithSuggestion("Remove one of the includes that closes the loop")
	case errors.Is(err, discovery.ErrWalkDepthExceeded):
		ctx.WithOperation("walk parent directories").
			WithIssue(issue.WalkDepthExceededId).
			WithSuggestions(
				"Use --no-inherit to stop at the starting spec",
				"Raise discovery.max_depth in the configuration file",
			)
	case errors.Is(err, lock.ErrLockAlreadyExists):
		ctx.WithOperation("create lock file").
			WithIssue(issue.LockAlreadyExistsId).
			WithSuggestions(
				"Use 'spenv lock --update' to refresh it",
				"Use 'spenv lock --force' to overwrite it",
			)
	case errors.Is(err, lock.ErrLockMissing):
		ctx.WithOperation("update lock file").
			WithIssue(issue.LockMissingId).
			WithSuggestion("Run 'spenv lock' to create it")
	case errors.Is(err, layer.ErrUnknownLayer):
		var ul *layer.UnknownLayerError
		if errors.As(err, &ul) {
			ctx.WithResource(ul.Reference)
			for _, s := range ul.Similar {
				ctx.WithSuggestion("Did you mean " + s + "?")
			}
		}
		ctx.WithOperation("resolve layer").
			WithIssue(issue.UnknownLayerId).
			WithSuggestion("Map the tag to a digest under layers.tags in the configuration file")
	case errors.Is(err, config.ErrInvalidConfig):
		ctx.WithOperation("load configuration").
			WithIssue(issue.ConfigLoadFailedId)
	case errors.Is(err, fs.ErrPermission):
		ctx.WithOperation("access file").
			WithIssue(issue.PermissionDeniedId)
	default:
		return err
	}
	return ctx.BuildError()
}

// formatErrorForDisplay formats an error for user display. Actionable errors
// list their suggestions, and verbose mode adds the error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// errorHandler returns the fang error handler for app. Silent exit errors
// print nothing; actionable errors are printed with their suggestions, and in
// verbose mode followed by the rendered issue catalog entry.
func errorHandler(app *App) fang.ErrorHandler {
	return func(w io.Writer, styles fang.Styles, err error) {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err == nil {
			return
		}
		var ae *issue.ActionableError
		if !errors.As(err, &ae) {
			fang.DefaultErrorHandler(w, styles, err)
			return
		}
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(ae, app.verbose))
		if !app.verbose || ae.Issue == 0 {
			return
		}
		if entry := issue.Get(ae.Issue); entry != nil {
			rendered, renderErr := entry.Render(app.glamourStyle())
			if renderErr != nil {
				rendered = entry.Markdown()
			}
			fmt.Fprintln(w, strings.TrimRight(rendered, "\n"))
		}
	}
}

// exitCode returns the process exit code for an error returned by the root
// command.
func exitCode(err error) types.ExitCode {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
