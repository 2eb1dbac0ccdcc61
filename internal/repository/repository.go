// SPDX-License-Identifier: MPL-2.0

// Package repository computes which named package repositories are searched.
//
// Selection is a pure function of its inputs. Environment toggles are applied
// first and command-line toggles second; a knob given on the command line
// replaces the environment value for that knob entirely.
package repository

import "slices"

// Well-known repository names.
const (
	Local  = "local"
	Origin = "origin"
)

// DefaultNames is used when no defaults are configured.
var DefaultNames = []string{Local, Origin}

type (
	// Toggles holds the knobs one precedence tier can set.
	Toggles struct {
		Enable    []string
		Disable   []string
		LocalOnly bool
		NoLocal   bool
	}

	// Params are the inputs of Select.
	Params struct {
		Defaults []string
		Env      Toggles
		Flags    Toggles
	}

	// Repository is one entry of a selection.
	Repository struct {
		Name    string
		Enabled bool
	}

	// Selection is an ordered, duplicate-free list of repositories.
	Selection []Repository
)

// Select applies defaults, then environment toggles, then flag toggles.
// Unknown names pass through; checking that a repository is configured is
// left to the package resolver.
func Select(p Params) Selection {
	defaults := p.Defaults
	if defaults == nil {
		defaults = DefaultNames
	}
	var sel Selection
	for _, name := range defaults {
		sel = sel.set(name, true)
	}

	env := p.Env
	if len(p.Flags.Enable) > 0 {
		env.Enable = nil
	}
	if len(p.Flags.Disable) > 0 {
		env.Disable = nil
	}
	if p.Flags.LocalOnly || p.Flags.NoLocal {
		env.LocalOnly, env.NoLocal = false, false
	}

	sel = sel.apply(env)
	return sel.apply(p.Flags)
}

func (s Selection) apply(t Toggles) Selection {
	for _, name := range t.Enable {
		s = s.set(name, true)
	}
	for _, name := range t.Disable {
		s = s.set(name, false)
	}
	if t.LocalOnly {
		for i := range s {
			s[i].Enabled = false
		}
		s = s.set(Local, true)
	}
	if t.NoLocal {
		s = s.set(Local, false)
	}
	return s
}

// set updates the entry for name, appending it when absent.
func (s Selection) set(name string, enabled bool) Selection {
	if name == "" {
		return s
	}
	if i := slices.IndexFunc(s, func(r Repository) bool { return r.Name == name }); i >= 0 {
		s[i].Enabled = enabled
		return s
	}
	return append(s, Repository{Name: name, Enabled: enabled})
}

// Enabled returns the names of enabled repositories in order.
func (s Selection) Enabled() []string {
	var out []string
	for _, r := range s {
		if r.Enabled {
			out = append(out, r.Name)
		}
	}
	return out
}

// Disabled returns the names of disabled repositories in order.
func (s Selection) Disabled() []string {
	var out []string
	for _, r := range s {
		if !r.Enabled {
			out = append(out, r.Name)
		}
	}
	return out
}
