// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MinimalSpec returns a valid spec document. Extra lines are appended as-is.
func MinimalSpec(inherit bool, extra ...string) string {
	var sb strings.Builder
	sb.WriteString("api: spenv/v0\n")
	fmt.Fprintf(&sb, "inherit: %v\n", inherit)
	for _, line := range extra {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// WriteSpec writes content as dir/.spenv.yaml and returns its path.
func WriteSpec(t testing.TB, dir, content string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(dir, ".spenv.yaml"), content)
}
