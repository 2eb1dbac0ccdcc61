// SPDX-License-Identifier: MPL-2.0

package spec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spkenv/spenv/pkg/types"
)

var (
	// ErrParse is the sentinel error wrapped by ParseError.
	ErrParse = errors.New("malformed spec document")

	// ErrUnsupportedAPIVersion is the sentinel error wrapped by UnsupportedAPIVersionError.
	ErrUnsupportedAPIVersion = errors.New("unsupported api version")

	// ErrInvalidMountSpec is the sentinel error wrapped by InvalidMountSpecError.
	ErrInvalidMountSpec = errors.New("invalid bind mount")

	// ErrIO is the sentinel error wrapped by IOError.
	ErrIO = errors.New("spec file i/o failure")

	// ErrInvalidSolverOptions is returned when package_options holds a
	// recognized key with the wrong type or value.
	ErrInvalidSolverOptions = errors.New("invalid package options")
)

type (
	// ParseError reports a document that is not valid YAML or does not match
	// the spec schema.
	ParseError struct {
		Path  types.FilesystemPath
		Cause error
	}

	// UnsupportedAPIVersionError reports a missing or unknown api tag.
	UnsupportedAPIVersionError struct {
		Path  types.FilesystemPath
		Found string
		Want  string
	}

	// InvalidMountSpecError reports a malformed entry under contents.
	InvalidMountSpecError struct {
		Path   types.FilesystemPath
		Index  int
		Reason string
	}

	// IOError reports a filesystem failure together with the offending path.
	IOError struct {
		Op    string
		Path  types.FilesystemPath
		Cause error
	}
)

func (e *ParseError) Error() string {
	msg := e.Cause.Error()
	if strings.HasPrefix(msg, string(e.Path)+":") {
		return "parsing " + msg
	}
	return fmt.Sprintf("parsing %s: %s", e.Path, msg)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Cause} }

func (e *UnsupportedAPIVersionError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("%s: missing api field (expected %q)", e.Path, e.Want)
	}
	return fmt.Sprintf("%s: unsupported api %q (expected %q)", e.Path, e.Found, e.Want)
}

// Unwrap returns ErrUnsupportedAPIVersion for errors.Is() compatibility.
func (e *UnsupportedAPIVersionError) Unwrap() error { return ErrUnsupportedAPIVersion }

func (e *InvalidMountSpecError) Error() string {
	return fmt.Sprintf("%s: contents[%d]: %s", e.Path, e.Index, e.Reason)
}

// Unwrap returns ErrInvalidMountSpec for errors.Is() compatibility.
func (e *InvalidMountSpecError) Unwrap() error { return ErrInvalidMountSpec }

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns both the sentinel and the underlying cause so callers can
// also match fs.ErrNotExist and friends.
func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Cause} }
