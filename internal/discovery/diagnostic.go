// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
)

const (
	// SeverityWarning indicates a recoverable resolution warning.
	SeverityWarning Severity = "warning"
	// SeverityInfo indicates a noteworthy but expected resolution event.
	SeverityInfo Severity = "info"

	// CodeDuplicateSkipped marks a document reached a second time without a cycle.
	CodeDuplicateSkipped DiagnosticCode = "duplicate_spec_skipped"
	// CodeParentWithoutSpec marks an ancestor directory walked past because it had no spec.
	CodeParentWithoutSpec DiagnosticCode = "parent_without_spec"
	// CodeReachedRoot marks an inheritance walk that ended at the filesystem root.
	CodeReachedRoot DiagnosticCode = "walk_reached_root"
	// CodeEmptyInclude marks an empty entry in an include list.
	CodeEmptyInclude DiagnosticCode = "empty_include_ignored"
)

// ErrInvalidSeverity is returned by Severity.IsValid for unknown levels.
var ErrInvalidSeverity = errors.New("invalid diagnostic severity")

type (
	// Severity represents diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// Diagnostic is a non-fatal event recorded during resolution. Diagnostics
	// are returned to the caller rather than written anywhere.
	Diagnostic struct {
		Severity Severity
		Code     DiagnosticCode
		Message  string
		Path     string
	}
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityInfo:
		return true, nil
	}
	return false, []error{fmt.Errorf("%w: %q", ErrInvalidSeverity, string(s))}
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.Path, d.Message)
}
