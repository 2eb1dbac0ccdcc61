// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spkenv/spenv/pkg/types"
)

var (
	// ErrSpecNotFound is the sentinel error wrapped by SpecNotFoundError.
	ErrSpecNotFound = errors.New("spec not found")

	// ErrCircularInclude is the sentinel error wrapped by CircularIncludeError.
	ErrCircularInclude = errors.New("circular include")

	// ErrWalkDepthExceeded is returned when the inheritance walk climbs more
	// directories than Options.MaxDepth allows.
	ErrWalkDepthExceeded = errors.New("inheritance walk depth exceeded")
)

type (
	// SpecNotFoundError reports an include that does not exist, or a start
	// path from which no spec is reachable.
	SpecNotFoundError struct {
		Path   types.FilesystemPath
		Reason string
	}

	// CircularIncludeError reports an include chain that returns to a
	// document still being expanded. Chain lists the documents from the
	// first repeated one to the include that closed the loop.
	CircularIncludeError struct {
		Path  types.FilesystemPath
		Chain []types.FilesystemPath
	}
)

func (e *SpecNotFoundError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("no spec found at %s", e.Path)
	}
	return fmt.Sprintf("no spec found at %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrSpecNotFound for errors.Is() compatibility.
func (e *SpecNotFoundError) Unwrap() error { return ErrSpecNotFound }

func (e *CircularIncludeError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, p := range e.Chain {
		parts[i] = string(p)
	}
	return fmt.Sprintf("circular include of %s: %s", e.Path, strings.Join(parts, " -> "))
}

// Unwrap returns ErrCircularInclude for errors.Is() compatibility.
func (e *CircularIncludeError) Unwrap() error { return ErrCircularInclude }
