// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// specBody returns a spec with one layer named after the document so tests
// can identify documents by their layers.
func specBody(name string, inherit bool, includes ...string) string {
	var b strings.Builder
	b.WriteString("api: spenv/v0\n")
	if inherit {
		b.WriteString("inherit: true\n")
	}
	if len(includes) > 0 {
		b.WriteString("includes:\n")
		for _, inc := range includes {
			b.WriteString("  - " + inc + "\n")
		}
	}
	b.WriteString("layers: [" + name + "]\n")
	return b.String()
}

func writeSpecDir(t *testing.T, dir, name string, inherit bool, includes ...string) string {
	t.Helper()
	return writeFile(t, filepath.Join(dir, spec.FileName), specBody(name, inherit, includes...))
}

func layerNames(r *Result) []string {
	var names []string
	for _, e := range r.Entries {
		names = append(names, e.Document.Layers...)
	}
	return names
}

func assertNames(t *testing.T, r *Result, want ...string) {
	t.Helper()
	got := layerNames(r)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("documents = %v, want %v", got, want)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestResolve_NoInheritReturnsSingleInTreeDocument(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	writeSpecDir(t, root, "parent", false)
	child := filepath.Join(root, "child")
	writeSpecDir(t, child, "child", false)
	cliInc := writeFile(t, filepath.Join(root, "inc", "cli.yaml"), specBody("cli", false))
	envInc := writeFile(t, filepath.Join(root, "inc", "env.yaml"), specBody("env", false))
	writeFile(t, filepath.Join(child, spec.LocalOverrideFileName), specBody("local", false))

	res, err := Resolve(Options{
		Start:       types.FilesystemPath(child),
		CLIIncludes: []types.FilesystemPath{types.FilesystemPath(cliInc)},
		EnvIncludes: envInc,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertNames(t, res, "cli", "env", "child", "local")

	wantOrigins := []Origin{OriginCLIInclude, OriginEnvInclude, OriginInTree, OriginLocalOverride}
	for i, e := range res.Entries {
		if e.Origin != wantOrigins[i] {
			t.Errorf("Entries[%d].Origin = %v, want %v", i, e.Origin, wantOrigins[i])
		}
	}
	inTree := 0
	for _, e := range res.Entries {
		if e.Origin == OriginInTree {
			inTree++
		}
	}
	if inTree != 1 {
		t.Errorf("in-tree documents = %d, want 1", inTree)
	}
}

func TestResolve_ParentChainOrderedParentFirst(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 5} {
		root := canonicalTempDir(t)
		dir := root
		var want []string
		for i := range n {
			dir = filepath.Join(dir, "d"+string(rune('a'+i)))
			name := "doc" + string(rune('a'+i))
			// every document inherits except the topmost one
			writeSpecDir(t, dir, name, i != 0)
			want = append(want, name)
		}

		res, err := Resolve(Options{Start: types.FilesystemPath(dir)})
		if err != nil {
			t.Fatalf("n=%d: Resolve() error = %v", n, err)
		}
		if len(res.Entries) != n {
			t.Errorf("n=%d: got %d documents, want %d", n, len(res.Entries), n)
		}
		assertNames(t, res, want...)
	}
}

func TestResolve_SkipsParentsWithoutSpec(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	writeSpecDir(t, root, "top", false)
	leaf := filepath.Join(root, "empty1", "empty2", "leaf")
	writeSpecDir(t, leaf, "leaf", true)

	res, err := Resolve(Options{Start: types.FilesystemPath(leaf)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertNames(t, res, "top", "leaf")

	skipped := 0
	for _, d := range res.Diagnostics {
		if d.Code == CodeParentWithoutSpec {
			skipped++
		}
	}
	if skipped != 2 {
		t.Errorf("parent_without_spec diagnostics = %d, want 2", skipped)
	}
}

func TestResolve_InheritOverride(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	writeSpecDir(t, root, "grand", false)
	parent := filepath.Join(root, "p")
	writeSpecDir(t, parent, "parent", false)
	child := filepath.Join(parent, "c")
	writeSpecDir(t, child, "child", false)

	t.Run("force inherit applies to the start document only", func(t *testing.T) {
		t.Parallel()
		res, err := Resolve(Options{Start: types.FilesystemPath(child), Inherit: boolPtr(true)})
		if err != nil {
			t.Fatal(err)
		}
		// parent has inherit:false, so the walk stops there inclusively
		assertNames(t, res, "parent", "child")
	})

	t.Run("no inherit wins over the document", func(t *testing.T) {
		t.Parallel()
		inheriting := filepath.Join(root, "q")
		writeSpecDir(t, inheriting, "inheriting", true)
		res, err := Resolve(Options{Start: types.FilesystemPath(inheriting), Inherit: boolPtr(false)})
		if err != nil {
			t.Fatal(err)
		}
		assertNames(t, res, "inheriting")
	})
}

func TestResolve_SpecNotFound(t *testing.T) {
	t.Parallel()

	empty := canonicalTempDir(t)
	_, err := Resolve(Options{Start: types.FilesystemPath(empty)})
	if !errors.Is(err, ErrSpecNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrSpecNotFound", err)
	}
	var nf *SpecNotFoundError
	if !errors.As(err, &nf) || nf.Path != types.FilesystemPath(empty) {
		t.Errorf("SpecNotFoundError = %+v, want path %s", nf, empty)
	}
}

func TestResolve_MissingStartSpecAllowedWithIncludes(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	inc := writeFile(t, filepath.Join(root, "shared.yaml"), specBody("shared", false))
	work := filepath.Join(root, "work")
	if err := os.Mkdir(work, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(Options{Start: types.FilesystemPath(work), CLIIncludes: []types.FilesystemPath{types.FilesystemPath(inc)}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertNames(t, res, "shared")
	if res.StartSpec != "" {
		t.Errorf("StartSpec = %q, want empty", res.StartSpec)
	}
	if want := types.FilesystemPath(filepath.Join(work, spec.LockFileName)); res.LockPath() != want {
		t.Errorf("LockPath() = %q, want %q", res.LockPath(), want)
	}
}

func TestResolve_LocalOverrideAlone(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, spec.LocalOverrideFileName), specBody("local", false))

	res, err := Resolve(Options{Start: types.FilesystemPath(root)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertNames(t, res, "local")
}

func TestResolve_MissingIncludeFails(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	writeSpecDir(t, root, "root", false)
	missing := filepath.Join(root, "nope.yaml")

	tests := []struct {
		name string
		opts Options
	}{
		{"cli", Options{Start: types.FilesystemPath(root), CLIIncludes: []types.FilesystemPath{types.FilesystemPath(missing)}}},
		{"env", Options{Start: types.FilesystemPath(root), EnvIncludes: missing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Resolve(tt.opts); !errors.Is(err, ErrSpecNotFound) {
				t.Errorf("Resolve() error = %v, want ErrSpecNotFound", err)
			}
		})
	}
}

func TestResolve_EnvIncludeListSplitsAndSkipsEmpty(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	a := writeFile(t, filepath.Join(root, "a.yaml"), specBody("a", false))
	b := writeFile(t, filepath.Join(root, "b.yaml"), specBody("b", false))
	writeSpecDir(t, root, "root", false)

	list := strings.Join([]string{a, "", b}, string(os.PathListSeparator))
	res, err := Resolve(Options{Start: types.FilesystemPath(root), EnvIncludes: list})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertNames(t, res, "a", "b", "root")
}

func TestResolve_NestedIncludesLoadBeforeIncluder(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	home := filepath.Join(root, "home")
	writeFile(t, filepath.Join(home, "team.yaml"), specBody("team", false))
	writeFile(t, filepath.Join(root, "shared", "base.yaml"), specBody("base", false, "~/team.yaml"))
	project := filepath.Join(root, "project")
	writeSpecDir(t, project, "project", false, "../shared/base.yaml")

	res, err := Resolve(Options{Start: types.FilesystemPath(project), HomeDir: types.FilesystemPath(home)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertNames(t, res, "team", "base", "project")
	if res.Entries[0].Origin != OriginInclude || res.Entries[2].Origin != OriginInTree {
		t.Errorf("origins = %v, %v", res.Entries[0].Origin, res.Entries[2].Origin)
	}
}

func TestResolve_CircularInclude(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "a.yaml"), specBody("a", false, "b.yaml"))
	writeFile(t, filepath.Join(root, "b.yaml"), specBody("b", false, "a.yaml"))
	writeSpecDir(t, root, "root", false, "a.yaml")

	_, err := Resolve(Options{Start: types.FilesystemPath(root)})
	if !errors.Is(err, ErrCircularInclude) {
		t.Fatalf("Resolve() error = %v, want ErrCircularInclude", err)
	}
	var circ *CircularIncludeError
	if !errors.As(err, &circ) {
		t.Fatalf("error should be *CircularIncludeError, got %T", err)
	}
	if len(circ.Chain) != 3 || circ.Chain[0] != circ.Chain[2] {
		t.Errorf("Chain = %v, want a -> b -> a", circ.Chain)
	}
}

func TestResolve_DuplicateIncludeKeepsFirstPosition(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "common.yaml"), specBody("common", false))
	writeFile(t, filepath.Join(root, "x.yaml"), specBody("x", false, "common.yaml"))
	writeSpecDir(t, root, "root", false, "x.yaml", "common.yaml")

	res, err := Resolve(Options{Start: types.FilesystemPath(root)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertNames(t, res, "common", "x", "root")

	found := false
	for _, d := range res.Diagnostics {
		if d.Code == CodeDuplicateSkipped && d.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Error("expected a duplicate_spec_skipped diagnostic")
	}
}

func TestResolve_UnsupportedAPIAbortsResolution(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, spec.FileName), "api: spenv/v1\n")
	child := filepath.Join(root, "child")
	writeSpecDir(t, child, "child", true)

	res, err := Resolve(Options{Start: types.FilesystemPath(child)})
	if !errors.Is(err, spec.ErrUnsupportedAPIVersion) {
		t.Fatalf("Resolve() error = %v, want ErrUnsupportedAPIVersion", err)
	}
	if res != nil {
		t.Error("Resolve() returned a partial result alongside the error")
	}
}

func TestResolve_WalkDepthBounded(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	deep := filepath.Join(root, "a", "b", "c")
	writeSpecDir(t, deep, "deep", true)

	_, err := Resolve(Options{Start: types.FilesystemPath(deep), MaxDepth: 2})
	if !errors.Is(err, ErrWalkDepthExceeded) {
		t.Fatalf("Resolve() error = %v, want ErrWalkDepthExceeded", err)
	}
}

func TestResolve_StartAtFileAndSymlink(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	realDir := filepath.Join(root, "real")
	specPath := writeSpecDir(t, realDir, "real", false)

	res, err := Resolve(Options{Start: types.FilesystemPath(specPath)})
	if err != nil {
		t.Fatalf("Resolve(file) error = %v", err)
	}
	if res.StartSpec != types.FilesystemPath(specPath) || res.StartDir != types.FilesystemPath(realDir) {
		t.Errorf("StartSpec=%q StartDir=%q", res.StartSpec, res.StartDir)
	}

	link := filepath.Join(root, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	res, err = Resolve(Options{Start: types.FilesystemPath(link)})
	if err != nil {
		t.Fatalf("Resolve(symlink) error = %v", err)
	}
	if res.StartDir != types.FilesystemPath(realDir) {
		t.Errorf("StartDir = %q, want canonical %q", res.StartDir, realDir)
	}
	if got := res.Paths(); len(got) != 1 || got[0] != types.FilesystemPath(specPath) {
		t.Errorf("Paths() = %v", got)
	}
}

func TestOriginString(t *testing.T) {
	t.Parallel()

	if OriginLocalOverride.String() != "local-override" || Origin(99).String() != "unknown" {
		t.Error("unexpected Origin.String() output")
	}
}
