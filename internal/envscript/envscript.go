// SPDX-License-Identifier: MPL-2.0

// Package envscript renders composed environment operations into ordered
// shell fragments. It does not touch the filesystem; callers persist the
// scripts it returns.
package envscript

import (
	"fmt"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/spkenv/spenv/internal/compose"
	"github.com/spkenv/spenv/pkg/platform"
	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

const (
	// DefaultPriority applies to operations not preceded by a priority entry in
	// their own document.
	DefaultPriority = 0

	// ScriptSuffix ends the name of every script ScriptName returns.
	ScriptSuffix = "_spenv.sh"
)

type (
	// Fragment is the rendered form of one operation.
	Fragment struct {
		Priority int
		// Index is the operation's position in the composed operation list.
		Index  int
		Kind   spec.EnvOpKind
		Text   string
		Source types.FilesystemPath
	}

	// Generator renders fragments using a fixed default list separator.
	Generator struct {
		separator string
	}

	// Script is a group of fragments sharing one priority.
	Script struct {
		Priority int
		Name     string
		Content  string
	}
)

// New returns a Generator using the PATH separator of goos.
func New(goos string) *Generator {
	return &Generator{separator: platform.EnvPathSeparator(goos)}
}

// Separator returns the default separator used by prepend and append.
func (g *Generator) Separator() string { return g.separator }

// Fragments renders ops and returns them sorted by (priority, index). A
// priority operation sets the priority of the operations after it in the
// same document and produces no fragment itself.
func (g *Generator) Fragments(ops []compose.Op) ([]Fragment, error) {
	frags := make([]Fragment, 0, len(ops))
	priority := DefaultPriority
	doc := -1
	for i, op := range ops {
		if op.DocIndex != doc {
			doc = op.DocIndex
			priority = DefaultPriority
		}
		if op.Kind == spec.OpPriority {
			priority = op.Priority
			continue
		}
		text, err := g.render(op.EnvOp)
		if err != nil {
			return nil, fmt.Errorf("%s: environment entry %d: %w", op.Source, i, err)
		}
		frags = append(frags, Fragment{Priority: priority, Index: i, Kind: op.Kind, Text: text, Source: op.Source})
	}

	slices.SortStableFunc(frags, func(a, b Fragment) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return a.Index - b.Index
	})
	return frags, nil
}

func (g *Generator) render(op spec.EnvOp) (string, error) {
	sep := op.Separator
	if sep == "" {
		sep = g.separator
	}
	switch op.Kind {
	case spec.OpSet:
		quoted, err := syntax.Quote(op.Value, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("%w: value of %s: %w", spec.ErrInvalidEnvOp, op.Name, err)
		}
		return fmt.Sprintf("export %s=%s", op.Name, quoted), nil
	case spec.OpPrepend:
		return fmt.Sprintf(`export %s="%s%s${%s}"`, op.Name, escapeDouble(op.Value), escapeDouble(sep), op.Name), nil
	case spec.OpAppend:
		return fmt.Sprintf(`export %s="${%s}%s%s"`, op.Name, op.Name, escapeDouble(sep), escapeDouble(op.Value)), nil
	case spec.OpComment:
		return commentLines(op.Comment), nil
	}
	return "", fmt.Errorf("%w: cannot render %q", spec.ErrInvalidEnvOp, op.Kind)
}

// escapeDouble escapes the characters that stay special inside double quotes.
func escapeDouble(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '"', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func commentLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("# "+l, " ")
	}
	return strings.Join(lines, "\n")
}

// Render joins sorted fragments into a single script body.
func Render(frags []Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Group splits sorted fragments into one script per priority, named so that
// a lexical sort of the names matches sourcing order.
func Group(frags []Fragment) []Script {
	var scripts []Script
	for start := 0; start < len(frags); {
		end := start
		for end < len(frags) && frags[end].Priority == frags[start].Priority {
			end++
		}
		p := frags[start].Priority
		scripts = append(scripts, Script{
			Priority: p,
			Name:     ScriptName(p),
			Content:  Render(frags[start:end]),
		})
		start = end
	}
	return scripts
}

// ScriptName returns the file name used for fragments of priority p.
func ScriptName(p int) string {
	return fmt.Sprintf("%02d%s", p, ScriptSuffix)
}
