// SPDX-License-Identifier: MPL-2.0

// Package fspath provides typed wrappers around path/filepath functions that
// accept and return types.FilesystemPath, plus the home expansion and
// canonicalization used when resolving spec and include paths.
package fspath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spkenv/spenv/pkg/types"
)

// Join wraps filepath.Join, accepting and returning types.FilesystemPath.
func Join(elem ...types.FilesystemPath) types.FilesystemPath {
	strs := make([]string, len(elem))
	for i, e := range elem {
		strs[i] = string(e)
	}
	return types.FilesystemPath(filepath.Join(strs...))
}

// JoinStr joins a typed base path with raw string segments such as
// well-known file names.
func JoinStr(base types.FilesystemPath, elem ...string) types.FilesystemPath {
	parts := make([]string, 1, 1+len(elem))
	parts[0] = string(base)
	parts = append(parts, elem...)
	return types.FilesystemPath(filepath.Join(parts...))
}

// Dir wraps filepath.Dir for FilesystemPath.
func Dir(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Dir(string(p)))
}

// Base wraps filepath.Base for FilesystemPath.
func Base(p types.FilesystemPath) string {
	return filepath.Base(string(p))
}

// Abs wraps filepath.Abs for FilesystemPath.
func Abs(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return types.FilesystemPath(abs), nil
}

// Clean wraps filepath.Clean for FilesystemPath.
func Clean(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Clean(string(p)))
}

// IsAbs wraps filepath.IsAbs for FilesystemPath.
func IsAbs(p types.FilesystemPath) bool {
	return filepath.IsAbs(string(p))
}

// Canonical returns the absolute path of p with every symbolic link
// resolved. The path must exist.
func Canonical(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(string(abs))
	if err != nil {
		return "", fmt.Errorf("resolving symlinks in %s: %w", abs, err)
	}
	return types.FilesystemPath(resolved), nil
}

// ExpandHome replaces a leading "~" path element with home. Paths such as
// "~user/x" are returned unchanged, as is every path when home is empty.
func ExpandHome(p types.FilesystemPath, home types.FilesystemPath) types.FilesystemPath {
	s := string(p)
	if home == "" || !strings.HasPrefix(s, "~") {
		return p
	}
	rest := s[1:]
	if rest == "" {
		return home
	}
	if rest[0] != '/' && rest[0] != os.PathSeparator {
		return p
	}
	return JoinStr(home, rest[1:])
}

// ResolveRelative expands "~" against home and anchors relative results at
// baseDir. The returned path is cleaned but symlinks are left untouched.
func ResolveRelative(p, baseDir, home types.FilesystemPath) types.FilesystemPath {
	expanded := ExpandHome(p, home)
	if IsAbs(expanded) {
		return Clean(expanded)
	}
	return Join(baseDir, expanded)
}
