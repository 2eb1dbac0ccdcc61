// SPDX-License-Identifier: MPL-2.0

package fingerprint

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func paths(dir string, names ...string) []types.FilesystemPath {
	out := make([]types.FilesystemPath, len(names))
	for i, n := range names {
		out[i] = types.FilesystemPath(filepath.Join(dir, n))
	}
	return out
}

func TestHashFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"empty": ""})

	got, err := HashFile(types.FilesystemPath(filepath.Join(dir, "empty")))
	if err != nil {
		t.Fatal(err)
	}
	// SHA-256 of the empty input
	if want := "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"; got != want {
		t.Errorf("HashFile() = %s, want %s", got, want)
	}

	_, err = HashFile(types.FilesystemPath(filepath.Join(dir, "missing")))
	if !errors.Is(err, spec.ErrIO) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestCompute_DeterministicAndOrderSensitive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.yaml": "api: spenv/v0\n", "b.yaml": "api: spenv/v0\nlayers: [x]\n"})
	layers := []LayerDigest{{Reference: "python/3.11", Digest: "sha256:" + strings.Repeat("1", 64)}}
	base := types.FilesystemPath(dir)

	first, err := Compute(base, paths(dir, "a.yaml", "b.yaml"), layers)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compute(base, paths(dir, "a.yaml", "b.yaml"), layers)
	if err != nil {
		t.Fatal(err)
	}
	if first.Value != second.Value {
		t.Error("identical inputs produced different fingerprints")
	}

	swapped, err := Compute(base, paths(dir, "b.yaml", "a.yaml"), layers)
	if err != nil {
		t.Fatal(err)
	}
	if swapped.Value == first.Value {
		t.Error("reordering source files did not change the fingerprint")
	}

	if first.Files[0].Path != "a.yaml" {
		t.Errorf("Files[0].Path = %q, want relative a.yaml", first.Files[0].Path)
	}
	if !strings.HasPrefix(first.Value, Prefix) || len(first.Value) != len(Prefix)+64 {
		t.Errorf("Value = %q, want sha256:<64 hex>", first.Value)
	}
}

func TestCombine_LayerDigestMatters(t *testing.T) {
	t.Parallel()

	files := []FileHash{{Path: "a.yaml", SHA256: "sha256:aa"}}
	one := Combine(files, []LayerDigest{{Reference: "tag", Digest: "sha256:01"}})
	two := Combine(files, []LayerDigest{{Reference: "tag", Digest: "sha256:02"}})
	if one == two {
		t.Error("repointing a tag did not change the fingerprint")
	}

	swapped := Combine(files, []LayerDigest{{Reference: "x", Digest: "y"}, {Reference: "y", Digest: "x"}})
	plain := Combine(files, []LayerDigest{{Reference: "y", Digest: "x"}, {Reference: "x", Digest: "y"}})
	if swapped == plain {
		t.Error("layer order did not change the fingerprint")
	}
}

func TestCompute_ContentNotMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.yaml": "api: spenv/v0\n"})
	base := types.FilesystemPath(dir)
	before, err := Compute(base, paths(dir, "a.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}

	// rewrite identical content; mtime changes, content does not
	writeFiles(t, dir, map[string]string{"a.yaml": "api: spenv/v0\n"})
	same, _ := Compute(base, paths(dir, "a.yaml"), nil)
	if same.Value != before.Value {
		t.Error("rewriting identical content changed the fingerprint")
	}

	writeFiles(t, dir, map[string]string{"a.yaml": "api: spenv/v0\ninherit: true\n"})
	changed, _ := Compute(base, paths(dir, "a.yaml"), nil)
	if changed.Value == before.Value {
		t.Error("changing content did not change the fingerprint")
	}
}

func TestDisplayPath(t *testing.T) {
	t.Parallel()

	base := types.FilesystemPath(filepath.Join(string(filepath.Separator), "work", "proj"))
	tests := []struct {
		in   types.FilesystemPath
		want string
	}{
		{types.FilesystemPath(filepath.Join(string(base), ".spenv.yaml")), ".spenv.yaml"},
		{types.FilesystemPath(filepath.Join(string(base), "sub", "x.yaml")), "sub/x.yaml"},
		{types.FilesystemPath(filepath.Join(string(filepath.Separator), "work", "other.yaml")), filepath.Join(string(filepath.Separator), "work", "other.yaml")},
	}
	for _, tt := range tests {
		if got := DisplayPath(base, tt.in); got != tt.want {
			t.Errorf("DisplayPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := DisplayPath("", "/x/y"); got != "/x/y" {
		t.Errorf("DisplayPath with empty base = %q", got)
	}
}
