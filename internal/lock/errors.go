// SPDX-License-Identifier: MPL-2.0

package lock

import (
	"errors"
	"fmt"

	"github.com/spkenv/spenv/pkg/types"
)

var (
	// ErrLockAlreadyExists is returned by ModeCreate when a record exists.
	ErrLockAlreadyExists = errors.New("lock file already exists")

	// ErrLockMissing is returned by ModeUpdate and Read when no record exists.
	ErrLockMissing = errors.New("lock file missing")

	// ErrInvalidRecord is returned when a lock file cannot be decoded or
	// carries an unknown api tag.
	ErrInvalidRecord = errors.New("invalid lock record")

	// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
	ErrInvalidMode = errors.New("invalid lock mode")
)

type (
	// PreconditionError reports a lock mode whose precondition on the
	// existing file does not hold. It unwraps to ErrLockAlreadyExists or
	// ErrLockMissing.
	PreconditionError struct {
		Path types.FilesystemPath
		Mode Mode
		err  error
	}

	// InvalidModeError is returned by Generate for a Mode outside the defined set.
	InvalidModeError struct {
		Value string
	}
)

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %v (mode %s)", e.Path, e.err, e.Mode)
}

// Unwrap returns the precondition sentinel.
func (e *PreconditionError) Unwrap() error { return e.err }

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid lock mode %q (valid: create, update, force)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }
