// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spkenv/spenv/pkg/fspath"
	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

// DefaultMaxDepth bounds the number of parent directories the inheritance
// walk may climb.
const DefaultMaxDepth = 256

const (
	// OriginCLIInclude marks a document named by --include.
	OriginCLIInclude Origin = iota
	// OriginEnvInclude marks a document named by the include environment list.
	OriginEnvInclude
	// OriginInclude marks a document pulled in by another document's includes.
	OriginInclude
	// OriginInTree marks the starting document or one of its ancestors.
	OriginInTree
	// OriginLocalOverride marks the local override file.
	OriginLocalOverride
)

type (
	// Origin records how a document entered the resolution.
	Origin int

	// Options configures a resolution. The zero value resolves the current
	// directory using each document's own inherit flag.
	Options struct {
		// Start is the file or directory resolution begins at.
		Start types.FilesystemPath
		// CLIIncludes are loaded first, in order.
		CLIIncludes []types.FilesystemPath
		// EnvIncludes is the raw include list from the environment, split
		// with filepath.SplitList.
		EnvIncludes string
		// Inherit overrides the starting document's inherit flag when non-nil.
		Inherit *bool
		// HomeDir expands "~" in include paths.
		HomeDir types.FilesystemPath
		// MaxDepth bounds the inheritance walk; zero means DefaultMaxDepth.
		MaxDepth int
	}

	// Entry is one resolved document with its origin.
	Entry struct {
		Document *spec.Document
		Origin   Origin
	}

	// Result is the ordered output of Resolve, lowest precedence first.
	Result struct {
		Entries     []Entry
		Diagnostics []Diagnostic
		// StartDir is the canonical directory resolution started in.
		StartDir types.FilesystemPath
		// StartSpec is the canonical starting document path, or empty when no
		// spec exists at the start point.
		StartSpec types.FilesystemPath
	}

	resolver struct {
		opts   Options
		result *Result
		seen   map[types.FilesystemPath]bool
		stack  []types.FilesystemPath
	}
)

// String returns a human-readable origin name.
func (o Origin) String() string {
	switch o {
	case OriginCLIInclude:
		return "cli-include"
	case OriginEnvInclude:
		return "env-include"
	case OriginInclude:
		return "include"
	case OriginInTree:
		return "in-tree"
	case OriginLocalOverride:
		return "local-override"
	default:
		return "unknown"
	}
}

// Documents returns the resolved documents in order.
func (r *Result) Documents() []*spec.Document {
	docs := make([]*spec.Document, len(r.Entries))
	for i, e := range r.Entries {
		docs[i] = e.Document
	}
	return docs
}

// Paths returns the canonical paths of the resolved documents in order.
func (r *Result) Paths() []types.FilesystemPath {
	paths := make([]types.FilesystemPath, len(r.Entries))
	for i, e := range r.Entries {
		paths[i] = e.Document.Path
	}
	return paths
}

// LockPath returns where the lock record for this resolution lives: next to
// the starting spec, or inside the start directory when there is none.
func (r *Result) LockPath() types.FilesystemPath {
	return fspath.JoinStr(r.StartDir, spec.LockFileName)
}

// Resolve produces the ordered document list for opts. Any failure aborts
// the whole resolution; no partial result is returned.
func Resolve(opts Options) (*Result, error) {
	if opts.Start == "" {
		opts.Start = "."
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	r := &resolver{
		opts:   opts,
		result: &Result{},
		seen:   make(map[types.FilesystemPath]bool),
	}

	includeCount := 0
	for _, inc := range opts.CLIIncludes {
		if err := r.loadInclude(inc, OriginCLIInclude); err != nil {
			return nil, err
		}
		includeCount++
	}
	for _, inc := range filepath.SplitList(opts.EnvIncludes) {
		if strings.TrimSpace(inc) == "" {
			r.diag(SeverityInfo, CodeEmptyInclude, "empty entry in include list", "")
			continue
		}
		if err := r.loadInclude(types.FilesystemPath(inc), OriginEnvInclude); err != nil {
			return nil, err
		}
		includeCount++
	}

	startDir, startSpec, err := locateStart(opts.Start)
	if err != nil {
		return nil, err
	}
	r.result.StartDir = startDir

	chain, err := r.walkTree(startDir, startSpec)
	if err != nil {
		return nil, err
	}
	if len(chain) > 0 {
		r.result.StartSpec = chain[len(chain)-1].Path
	}
	for _, doc := range chain {
		if err := r.emit(doc, OriginInTree); err != nil {
			return nil, err
		}
	}

	overridePath := fspath.JoinStr(startDir, spec.LocalOverrideFileName)
	hasOverride, err := isFile(overridePath)
	if err != nil {
		return nil, err
	}
	if hasOverride {
		doc, err := r.load(overridePath)
		if err != nil {
			return nil, err
		}
		if err := r.emit(doc, OriginLocalOverride); err != nil {
			return nil, err
		}
	}

	if includeCount == 0 && len(chain) == 0 && !hasOverride {
		return nil, &SpecNotFoundError{Path: startDir, Reason: "no " + spec.FileName + " and no includes given"}
	}
	return r.result, nil
}

// locateStart canonicalizes start and returns its directory together with
// the spec path to try there.
func locateStart(start types.FilesystemPath) (types.FilesystemPath, types.FilesystemPath, error) {
	canonical, err := fspath.Canonical(start)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", &SpecNotFoundError{Path: start, Reason: "start path does not exist"}
		}
		return "", "", &spec.IOError{Op: "resolve", Path: start, Cause: err}
	}
	info, err := os.Stat(string(canonical))
	if err != nil {
		return "", "", &spec.IOError{Op: "stat", Path: canonical, Cause: err}
	}
	if info.IsDir() {
		return canonical, fspath.JoinStr(canonical, spec.FileName), nil
	}
	return fspath.Dir(canonical), canonical, nil
}

// walkTree loads the starting document and, while inheritance is enabled,
// its ancestors. The returned chain is ordered parent first.
func (r *resolver) walkTree(startDir, startSpec types.FilesystemPath) ([]*spec.Document, error) {
	exists, err := isFile(startSpec)
	if err != nil || !exists {
		return nil, err
	}
	start, err := r.load(startSpec)
	if err != nil {
		return nil, err
	}

	chain := []*spec.Document{start}
	inherit := start.Inherit
	if r.opts.Inherit != nil {
		inherit = *r.opts.Inherit
	}

	dir := startDir
	for depth := 0; inherit; depth++ {
		if depth >= r.opts.MaxDepth {
			return nil, fmt.Errorf("%w: climbed %d directories above %s", ErrWalkDepthExceeded, depth, startDir)
		}
		parent := fspath.Dir(dir)
		if parent == dir {
			r.diag(SeverityInfo, CodeReachedRoot, "inheritance walk reached the filesystem root", string(dir))
			break
		}
		dir = parent

		candidate := fspath.JoinStr(dir, spec.FileName)
		found, err := isFile(candidate)
		if err != nil {
			return nil, err
		}
		if !found {
			r.diag(SeverityInfo, CodeParentWithoutSpec, "no spec in ancestor directory", string(dir))
			continue
		}
		doc, err := r.load(candidate)
		if err != nil {
			return nil, err
		}
		slog.Debug("inherited parent spec", "path", doc.Path, "inherit", doc.Inherit)
		chain = append(chain, doc)
		inherit = doc.Inherit
	}

	slices.Reverse(chain)
	return chain, nil
}

// loadInclude resolves a top-level include path and emits it. The path must exist.
func (r *resolver) loadInclude(p types.FilesystemPath, origin Origin) error {
	resolved := fspath.ExpandHome(p, r.opts.HomeDir)
	exists, err := isFile(resolved)
	if err != nil {
		return err
	}
	if !exists {
		return &SpecNotFoundError{Path: resolved, Reason: origin.String() + " does not exist"}
	}
	doc, err := r.load(resolved)
	if err != nil {
		return err
	}
	return r.emit(doc, origin)
}

// emit appends doc after its own includes. A document already emitted is
// skipped; a document still being expanded is a cycle.
func (r *resolver) emit(doc *spec.Document, origin Origin) error {
	if i := slices.Index(r.stack, doc.Path); i >= 0 {
		chain := append(slices.Clone(r.stack[i:]), doc.Path)
		return &CircularIncludeError{Path: doc.Path, Chain: chain}
	}
	if r.seen[doc.Path] {
		r.diag(SeverityWarning, CodeDuplicateSkipped, "document already loaded earlier; keeping first position", string(doc.Path))
		return nil
	}

	r.stack = append(r.stack, doc.Path)
	for _, inc := range doc.IncludePaths(r.opts.HomeDir) {
		exists, err := isFile(inc)
		if err != nil {
			return err
		}
		if !exists {
			return &SpecNotFoundError{Path: inc, Reason: "included from " + string(doc.Path)}
		}
		child, err := r.load(inc)
		if err != nil {
			return err
		}
		if err := r.emit(child, OriginInclude); err != nil {
			return err
		}
	}
	r.stack = r.stack[:len(r.stack)-1]

	r.seen[doc.Path] = true
	r.result.Entries = append(r.result.Entries, Entry{Document: doc, Origin: origin})
	return nil
}

func (r *resolver) load(p types.FilesystemPath) (*spec.Document, error) {
	doc, err := spec.Load(p, spec.LoadOptions{HomeDir: r.opts.HomeDir})
	if err != nil {
		return nil, fmt.Errorf("loading spec: %w", err)
	}
	return doc, nil
}

func (r *resolver) diag(sev Severity, code DiagnosticCode, msg, path string) {
	slog.Debug(msg, "code", code, "path", path)
	r.result.Diagnostics = append(r.result.Diagnostics, Diagnostic{Severity: sev, Code: code, Message: msg, Path: path})
}

// isFile reports whether p names an existing regular file (after following
// symlinks). Missing paths are not an error.
func isFile(p types.FilesystemPath) (bool, error) {
	info, err := os.Stat(string(p))
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrInvalid):
		return false, nil
	default:
		return false, &spec.IOError{Op: "stat", Path: p, Cause: err}
	}
}
