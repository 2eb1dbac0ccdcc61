// SPDX-License-Identifier: MPL-2.0

// Package compose merges an ordered list of spec documents into a single
// resolved environment.
//
// Each field has a named merge strategy; one driver applies them all, one
// document at a time, so that Compose(a, b, c) equals
// Compose(a, b).Append(c).
package compose

import (
	"slices"

	"golang.org/x/exp/maps"

	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

type (
	// Op is an environment operation tagged with the document it came from.
	// DocIndex is the document's position in Environment.Sources.
	Op struct {
		spec.EnvOp
		DocIndex int
		Source   types.FilesystemPath
	}

	// Environment is the composed result. It is owned by the caller that
	// produced it and is not safe for concurrent mutation.
	Environment struct {
		Layers         []string
		Ops            []Op
		Contents       []spec.BindMount
		Packages       []string
		PackageOptions map[string]any
		// Sources lists the contributing documents in application order.
		Sources []types.FilesystemPath

		layerSeen map[string]struct{}
	}

	// Strategy merges one field of doc into env. docIndex is the position doc
	// takes in env.Sources.
	Strategy struct {
		Name  string
		Apply func(env *Environment, docIndex int, doc *spec.Document)
	}
)

// Strategies lists the field merge policies in the order the driver applies them.
var Strategies = []Strategy{
	{Name: "layers: concatenate, keep first occurrence", Apply: mergeLayers},
	{Name: "environment: concatenate, tag with origin", Apply: mergeOps},
	{Name: "contents: concatenate", Apply: mergeContents},
	{Name: "packages: concatenate", Apply: mergePackages},
	{Name: "package_options: last wins per key", Apply: mergePackageOptions},
}

// Compose merges docs in order, lowest precedence first.
func Compose(docs []*spec.Document) *Environment {
	return New().Append(docs...)
}

// New returns an empty environment.
func New() *Environment {
	return &Environment{layerSeen: make(map[string]struct{})}
}

// Append merges further documents into e and returns e.
func (e *Environment) Append(docs ...*spec.Document) *Environment {
	e.ensureSeen()
	for _, doc := range docs {
		idx := len(e.Sources)
		for _, s := range Strategies {
			s.Apply(e, idx, doc)
		}
		e.Sources = append(e.Sources, doc.Path)
	}
	return e
}

// AppendLayers adds layers produced outside the spec files, such as the
// package resolver's output, under the same first-seen rule.
func (e *Environment) AppendLayers(layers ...string) {
	e.ensureSeen()
	e.Layers = appendUnique(e.Layers, e.layerSeen, layers)
}

// ensureSeen rebuilds the layer index for environments not built by New.
func (e *Environment) ensureSeen() {
	if e.layerSeen != nil {
		return
	}
	e.layerSeen = make(map[string]struct{}, len(e.Layers))
	for _, l := range e.Layers {
		e.layerSeen[l] = struct{}{}
	}
}

// EnvOps returns the bare operations without origin tags.
func (e *Environment) EnvOps() []spec.EnvOp {
	ops := make([]spec.EnvOp, len(e.Ops))
	for i, op := range e.Ops {
		ops[i] = op.EnvOp
	}
	return ops
}

// OptionKeys returns the package option keys in sorted order.
func (e *Environment) OptionKeys() []string {
	keys := maps.Keys(e.PackageOptions)
	slices.Sort(keys)
	return keys
}

func mergeLayers(env *Environment, _ int, doc *spec.Document) {
	env.Layers = appendUnique(env.Layers, env.layerSeen, doc.Layers)
}

func mergeOps(env *Environment, idx int, doc *spec.Document) {
	for _, op := range doc.Environment {
		env.Ops = append(env.Ops, Op{EnvOp: op, DocIndex: idx, Source: doc.Path})
	}
}

func mergeContents(env *Environment, _ int, doc *spec.Document) {
	env.Contents = append(env.Contents, doc.Contents...)
}

func mergePackages(env *Environment, _ int, doc *spec.Document) {
	env.Packages = append(env.Packages, doc.Packages...)
}

func mergePackageOptions(env *Environment, _ int, doc *spec.Document) {
	if len(doc.PackageOptions) == 0 {
		return
	}
	if env.PackageOptions == nil {
		env.PackageOptions = make(map[string]any, len(doc.PackageOptions))
	}
	maps.Copy(env.PackageOptions, doc.PackageOptions)
}

func appendUnique[T comparable](dst []T, seen map[T]struct{}, src []T) []T {
	for _, v := range src {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}
