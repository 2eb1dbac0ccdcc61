// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"

	"github.com/spkenv/spenv/internal/discovery"
	"github.com/spkenv/spenv/internal/issue"
	"github.com/spkenv/spenv/internal/layer"
	"github.com/spkenv/spenv/internal/lock"
	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		wantIssue    issue.Id
		wantResource string
		wantSuggest  string
	}{
		{
			name:         "spec not found",
			err:          &discovery.SpecNotFoundError{Path: "/work/proj"},
			wantIssue:    issue.SpecNotFoundId,
			wantResource: "/work/proj",
			wantSuggest:  "spenv init",
		},
		{
			name:         "parse error",
			err:          fmt.Errorf("resolving: %w", &spec.ParseError{Path: "/work/.spenv.yaml", Cause: errors.New("bad indent")}),
			wantIssue:    issue.SpecParseErrorId,
			wantResource: "/work/.spenv.yaml",
		},
		{
			name:        "unsupported api",
			err:         &spec.UnsupportedAPIVersionError{Path: "/work/.spenv.yaml", Found: "spenv/v9", Want: spec.APIVersion},
			wantIssue:   issue.UnsupportedAPIVersionId,
			wantSuggest: "api: spenv/v0",
		},
		{
			name:        "invalid mount",
			err:         &spec.InvalidMountSpecError{Path: "/work/.spenv.yaml", Reason: "dest outside /spfs"},
			wantIssue:   issue.InvalidMountSpecId,
			wantSuggest: spec.RuntimeRoot,
		},
		{
			name:        "unrenderable environment",
			err:         fmt.Errorf("/work/.spenv.yaml: environment entry 0: %w", fmt.Errorf("%w: value of BAD", spec.ErrInvalidEnvOp)),
			wantIssue:   issue.SpecParseErrorId,
			wantSuggest: "NUL",
		},
		{
			name:      "circular include",
			err:       &discovery.CircularIncludeError{Path: "/a.yaml", Chain: []types.FilesystemPath{"/a.yaml", "/b.yaml"}},
			wantIssue: issue.CircularIncludeId,
		},
		{
			name:        "walk depth",
			err:         fmt.Errorf("%w after 3 directories", discovery.ErrWalkDepthExceeded),
			wantIssue:   issue.WalkDepthExceededId,
			wantSuggest: "--no-inherit",
		},
		{
			name:        "lock exists",
			err:         fmt.Errorf("writing: %w", lock.ErrLockAlreadyExists),
			wantIssue:   issue.LockAlreadyExistsId,
			wantSuggest: "--update",
		},
		{
			name:      "lock missing",
			err:       lock.ErrLockMissing,
			wantIssue: issue.LockMissingId,
		},
		{
			name:         "unknown layer with suggestions",
			err:          fmt.Errorf("resolving layer py: %w", &layer.UnknownLayerError{Reference: "py", Similar: []string{"py/3.11"}}),
			wantIssue:    issue.UnknownLayerId,
			wantResource: "py",
			wantSuggest:  "Did you mean py/3.11?",
		},
		{
			name:      "permission denied",
			err:       &spec.IOError{Op: "read", Path: "/root/.spenv.yaml", Cause: fs.ErrPermission},
			wantIssue: issue.PermissionDeniedId,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := classifyError(tt.err)
			var ae *issue.ActionableError
			if !errors.As(got, &ae) {
				t.Fatalf("classifyError() = %T, want *issue.ActionableError", got)
			}
			if ae.Issue != tt.wantIssue {
				t.Errorf("Issue = %d, want %d", ae.Issue, tt.wantIssue)
			}
			if tt.wantResource != "" && ae.Resource != tt.wantResource {
				t.Errorf("Resource = %q, want %q", ae.Resource, tt.wantResource)
			}
			if tt.wantSuggest != "" && !strings.Contains(strings.Join(ae.Suggestions, "\n"), tt.wantSuggest) {
				t.Errorf("Suggestions = %q, want one containing %q", ae.Suggestions, tt.wantSuggest)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error does not wrap the original")
			}
		})
	}
}

func TestClassifyErrorPassThrough(t *testing.T) {
	t.Parallel()

	plain := errors.New("something else")
	if got := classifyError(plain); got != plain {
		t.Errorf("classifyError(plain) = %v, want unchanged", got)
	}
	exit := &ExitError{Code: types.ExitDrift}
	if got := classifyError(exit); got != exit {
		t.Errorf("classifyError(exit) = %v, want unchanged", got)
	}
	if classifyError(nil) != nil {
		t.Error("classifyError(nil) != nil")
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	if got := exitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: types.ExitLockMissing})); got != types.ExitLockMissing {
		t.Errorf("exitCode(ExitError) = %d, want %d", got, types.ExitLockMissing)
	}
	if got := exitCode(errors.New("boom")); got != 1 {
		t.Errorf("exitCode(plain) = %d, want 1", got)
	}
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	styles := fang.Styles{}

	t.Run("silent exit error prints nothing", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		errorHandler(NewApp(Dependencies{}))(&buf, styles, &ExitError{Code: types.ExitDrift})
		if buf.Len() != 0 {
			t.Errorf("handler wrote %q", buf.String())
		}
	})

	t.Run("actionable error lists suggestions", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := classifyError(lock.ErrLockAlreadyExists)
		errorHandler(NewApp(Dependencies{}))(&buf, styles, err)
		assertContains(t, buf.String(), "Error:", "failed to create lock file", "--force")
	})

	t.Run("verbose adds chain and issue entry", func(t *testing.T) {
		t.Parallel()
		err := classifyError(&discovery.SpecNotFoundError{Path: "/nowhere"})

		var plain bytes.Buffer
		errorHandler(NewApp(Dependencies{}))(&plain, styles, err)

		app := NewApp(Dependencies{})
		app.verbose = true
		var verbose bytes.Buffer
		errorHandler(app)(&verbose, styles, err)

		assertContains(t, verbose.String(), "Error chain:", "/nowhere")
		if verbose.Len() <= plain.Len()+len("Error chain:") {
			t.Errorf("verbose output does not include the issue entry:\n%s", verbose.String())
		}
	})
}
