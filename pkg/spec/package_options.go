// SPDX-License-Identifier: MPL-2.0

package spec

import (
	"fmt"
	"slices"
)

// Solver names accepted in package_options.solver.
const (
	SolverStep    = "step"
	SolverResolvo = "resolvo"
)

// SolverOptions is the typed view of the keys in package_options that the
// package resolver understands. Unknown keys are left in the map untouched.
type SolverOptions struct {
	BinaryOnly   bool
	Repositories []string
	Solver       string
}

// DefaultSolverOptions returns the options used when package_options is absent.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{BinaryOnly: true, Solver: SolverStep}
}

// ParseSolverOptions reads the recognized keys out of a composed
// package_options map.
func ParseSolverOptions(opts map[string]any) (SolverOptions, error) {
	out := DefaultSolverOptions()

	if v, ok := opts["binary_only"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return out, fmt.Errorf("%w: binary_only must be a bool, got %T", ErrInvalidSolverOptions, v)
		}
		out.BinaryOnly = b
	}

	if v, ok := opts["repositories"]; ok {
		repos, err := stringList(v)
		if err != nil {
			return out, fmt.Errorf("%w: repositories: %w", ErrInvalidSolverOptions, err)
		}
		out.Repositories = repos
	}

	if v, ok := opts["solver"]; ok {
		s, isString := v.(string)
		if !isString || !slices.Contains([]string{SolverStep, SolverResolvo}, s) {
			return out, fmt.Errorf("%w: solver must be %q or %q, got %v", ErrInvalidSolverOptions, SolverStep, SolverResolvo, v)
		}
		out.Solver = s
	}
	return out, nil
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return slices.Clone(list), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("entry %d must be a string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of strings, got %T", v)
}
