// SPDX-License-Identifier: MPL-2.0

package spec

import (
	"path"
	"strings"

	"github.com/spkenv/spenv/pkg/fspath"
	"github.com/spkenv/spenv/pkg/types"
)

// RuntimeRoot is the mount point of the runtime filesystem. Bind destinations
// must live under it.
const RuntimeRoot = "/spfs"

type (
	// BindMount maps a host path into the runtime filesystem. ReadOnly is
	// advisory and honored by the runtime collaborator.
	BindMount struct {
		Source   types.FilesystemPath
		Dest     string
		ReadOnly bool
	}

	rawBindMount struct {
		Bind     string `json:"bind,omitempty"`
		Source   string `json:"source,omitempty"`
		Dest     string `json:"dest,omitempty"`
		ReadOnly bool   `json:"readonly,omitempty"`
	}
)

// toBindMount validates r and resolves its source against the document directory.
func (r rawBindMount) toBindMount(docPath types.FilesystemPath, index int, home types.FilesystemPath) (BindMount, error) {
	src := r.Bind
	if src == "" {
		src = r.Source
	}
	if r.Bind != "" && r.Source != "" && r.Bind != r.Source {
		return BindMount{}, &InvalidMountSpecError{Path: docPath, Index: index, Reason: "bind and source disagree"}
	}
	if strings.TrimSpace(src) == "" {
		return BindMount{}, &InvalidMountSpecError{Path: docPath, Index: index, Reason: "source path is empty"}
	}
	dest, reason := normalizeDest(r.Dest)
	if reason != "" {
		return BindMount{}, &InvalidMountSpecError{Path: docPath, Index: index, Reason: reason}
	}

	return BindMount{
		Source:   fspath.ResolveRelative(types.FilesystemPath(src), fspath.Dir(docPath), home),
		Dest:     dest,
		ReadOnly: r.ReadOnly,
	}, nil
}

// normalizeDest cleans dest and checks that it lies under RuntimeRoot. The
// returned reason is empty when dest is acceptable.
func normalizeDest(dest string) (string, string) {
	if strings.TrimSpace(dest) == "" {
		return "", "dest is empty"
	}
	if !strings.HasPrefix(dest, "/") {
		return "", "dest " + dest + " must be an absolute path under " + RuntimeRoot
	}
	clean := path.Clean(dest)
	if clean != RuntimeRoot && !strings.HasPrefix(clean, RuntimeRoot+"/") {
		return "", "dest " + dest + " is outside " + RuntimeRoot
	}
	return clean, ""
}
