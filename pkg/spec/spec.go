// SPDX-License-Identifier: MPL-2.0

package spec

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"

	"github.com/spkenv/spenv/pkg/cueutil"
	"github.com/spkenv/spenv/pkg/fspath"
	"github.com/spkenv/spenv/pkg/types"
)

// Well-known names.
const (
	// APIVersion is the only api tag this release understands.
	APIVersion = "spenv/v0"

	// FileName is the spec file looked up in each directory.
	FileName = ".spenv.yaml"

	// LocalOverrideFileName is the uncommitted per-checkout override applied last.
	LocalOverrideFileName = ".spenv.local.yaml"

	// LockFileName is the lock record written next to the top-level spec.
	LockFileName = ".spenv.lock.yaml"
)

//go:embed spec_schema.cue
var schemaBytes []byte

type (
	// Document is a parsed spec file. Path is its canonical absolute path and
	// identifies the document.
	Document struct {
		Path           types.FilesystemPath
		API            string
		Description    types.DescriptionText
		Inherit        bool
		Includes       []string
		Layers         []string
		Environment    []EnvOp
		Contents       []BindMount
		Packages       []string
		PackageOptions map[string]any
	}

	// LoadOptions carries caller-resolved context. The package never reads
	// process environment.
	LoadOptions struct {
		// HomeDir expands "~" in includes and bind sources. Empty disables expansion.
		HomeDir types.FilesystemPath
	}

	rawDocument struct {
		API            string         `json:"api"`
		Description    string         `json:"description,omitempty"`
		Inherit        bool           `json:"inherit,omitempty"`
		Includes       []string       `json:"includes,omitempty"`
		Layers         []string       `json:"layers,omitempty"`
		Environment    []rawEnvOp     `json:"environment,omitempty"`
		Contents       []rawBindMount `json:"contents,omitempty"`
		Packages       []string       `json:"packages,omitempty"`
		PackageOptions map[string]any `json:"package_options,omitempty"`
	}
)

// Load reads and parses the spec file at path. The path is canonicalized
// (absolute, symlinks resolved) before it becomes the document identity.
func Load(path types.FilesystemPath, opts LoadOptions) (*Document, error) {
	canonical, err := fspath.Canonical(path)
	if err != nil {
		return nil, &IOError{Op: "resolve", Path: path, Cause: unwrapPathError(err)}
	}
	data, err := os.ReadFile(string(canonical))
	if err != nil {
		return nil, &IOError{Op: "read", Path: canonical, Cause: unwrapPathError(err)}
	}
	return Parse(data, canonical, opts)
}

// Parse parses data as the spec file located at path. Path should already be
// canonical; it anchors relative includes and bind sources.
func Parse(data []byte, path types.FilesystemPath, opts LoadOptions) (*Document, error) {
	filename := string(path)
	value, err := cueutil.ExtractYAML(data, cueutil.WithFilename(filename))
	if err != nil {
		return nil, &ParseError{Path: path, Cause: err}
	}
	if err := checkAPIVersion(value, path); err != nil {
		return nil, err
	}

	result, err := cueutil.DecodeValue[rawDocument](schemaBytes, value, "#Spec",
		cueutil.WithFilename(filename), cueutil.WithConcrete(true))
	if err != nil {
		return nil, &ParseError{Path: path, Cause: err}
	}
	return result.Value.build(path, opts)
}

func checkAPIVersion(value cue.Value, path types.FilesystemPath) error {
	apiValue := value.LookupPath(cue.ParsePath("api"))
	if !apiValue.Exists() {
		return &UnsupportedAPIVersionError{Path: path, Want: APIVersion}
	}
	found, err := apiValue.String()
	if err != nil {
		found = fmt.Sprint(apiValue)
	}
	if found != APIVersion {
		return &UnsupportedAPIVersionError{Path: path, Found: found, Want: APIVersion}
	}
	return nil
}

func (r *rawDocument) build(path types.FilesystemPath, opts LoadOptions) (*Document, error) {
	doc := &Document{
		Path:           path,
		API:            r.API,
		Description:    types.DescriptionText(r.Description),
		Inherit:        r.Inherit,
		Includes:       r.Includes,
		Layers:         r.Layers,
		Packages:       r.Packages,
		PackageOptions: r.PackageOptions,
	}
	if ok, errs := doc.Description.IsValid(); !ok {
		return nil, &ParseError{Path: path, Cause: errors.Join(errs...)}
	}

	for i, rawOp := range r.Environment {
		op, err := rawOp.toEnvOp()
		if err != nil {
			return nil, &ParseError{Path: path, Cause: fmt.Errorf("environment[%d]: %w", i, err)}
		}
		doc.Environment = append(doc.Environment, op)
	}

	for i, rawMount := range r.Contents {
		mount, err := rawMount.toBindMount(path, i, opts.HomeDir)
		if err != nil {
			return nil, err
		}
		doc.Contents = append(doc.Contents, mount)
	}
	return doc, nil
}

// Dir returns the directory containing the document.
func (d *Document) Dir() types.FilesystemPath { return fspath.Dir(d.Path) }

// IncludePaths returns the document's includes with "~" expanded against
// home and relative entries anchored at the document directory. Existence is
// not checked.
func (d *Document) IncludePaths(home types.FilesystemPath) []types.FilesystemPath {
	out := make([]types.FilesystemPath, 0, len(d.Includes))
	for _, inc := range d.Includes {
		out = append(out, fspath.ResolveRelative(types.FilesystemPath(inc), d.Dir(), home))
	}
	return out
}

func unwrapPathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
