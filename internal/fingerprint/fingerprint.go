// SPDX-License-Identifier: MPL-2.0

// Package fingerprint computes content hashes over the files and layers that
// define a resolved environment.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

// Prefix tags every hash produced by this package.
const Prefix = "sha256:"

type (
	// FileHash is the content hash of one contributing source file. Path is
	// relative to the fingerprint base directory when the file lives below
	// it, and absolute otherwise.
	FileHash struct {
		Path   string
		SHA256 string
	}

	// LayerDigest pairs a layer reference with the concrete digest it
	// resolved to.
	LayerDigest struct {
		Reference string
		Digest    string
	}

	// Fingerprint is the combined hash plus its inputs.
	Fingerprint struct {
		Value  string
		Files  []FileHash
		Layers []LayerDigest
	}
)

// HashFile returns the prefixed SHA-256 of the file's contents.
func HashFile(path types.FilesystemPath) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", &spec.IOError{Op: "open", Path: path, Cause: unwrapPath(err)}
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", &spec.IOError{Op: "read", Path: path, Cause: err}
	}
	return Prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Compute hashes every source file and combines the result with layers.
// The order of sources and layers is significant.
func Compute(base types.FilesystemPath, sources []types.FilesystemPath, layers []LayerDigest) (*Fingerprint, error) {
	files := make([]FileHash, 0, len(sources))
	for _, src := range sources {
		sum, err := HashFile(src)
		if err != nil {
			return nil, err
		}
		files = append(files, FileHash{Path: DisplayPath(base, src), SHA256: sum})
	}
	return &Fingerprint{
		Value:  Combine(files, layers),
		Files:  files,
		Layers: layers,
	}, nil
}

// Combine hashes the ordered (file hash, path) pairs followed by the ordered
// (reference, digest) pairs.
func Combine(files []FileHash, layers []LayerDigest) string {
	h := sha256.New()
	io.WriteString(h, "files\n")
	for _, f := range files {
		fmt.Fprintf(h, "%s\x00%s\n", f.SHA256, f.Path)
	}
	io.WriteString(h, "layers\n")
	for _, l := range layers {
		fmt.Fprintf(h, "%s\x00%s\n", l.Reference, l.Digest)
	}
	return Prefix + hex.EncodeToString(h.Sum(nil))
}

// DisplayPath returns p relative to base, using forward slashes, when p is
// inside base. Other paths are returned unchanged.
func DisplayPath(base, p types.FilesystemPath) string {
	if base == "" {
		return string(p)
	}
	rel, err := filepath.Rel(string(base), string(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return string(p)
	}
	return filepath.ToSlash(rel)
}

func unwrapPath(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
