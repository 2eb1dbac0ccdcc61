// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// startWatcher runs w until the test ends and returns the Run error channel.
func startWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func waitChanged(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case changed := <-ch:
		return changed
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return nil
	}
}

func TestWatcherTrackedFileChange(t *testing.T) {
	t.Parallel()

	dir := canonicalTempDir(t)
	spec := filepath.Join(dir, "shared.yaml")
	writeFile(t, spec, "api: spenv/v0\n")

	got := make(chan []string, 4)
	w, err := New(Config{
		Files:    []string{spec},
		Debounce: 50 * time.Millisecond,
		Stderr:   &bytes.Buffer{},
		OnChange: func(_ context.Context, changed []string) error {
			got <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "unrelated.txt"), "x")
	writeFile(t, filepath.Join(dir, "shared.yaml.swp"), "x")
	writeFile(t, spec, "api: spenv/v0\ninherit: false\n")

	changed := waitChanged(t, got)
	if !slices.Equal(changed, []string{spec}) {
		t.Errorf("changed = %v, want [%s]", changed, spec)
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := canonicalTempDir(t)
	spec := filepath.Join(dir, ".spenv.yaml")
	writeFile(t, spec, "api: spenv/v0\n")

	var (
		mu    sync.Mutex
		calls int
	)
	done := make(chan []string, 4)
	w, err := New(Config{
		Files:    []string{spec},
		Debounce: 150 * time.Millisecond,
		Stderr:   &bytes.Buffer{},
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			calls++
			mu.Unlock()
			done <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	for i := range 3 {
		writeFile(t, spec, "api: spenv/v0\n# edit "+string(rune('a'+i))+"\n")
		time.Sleep(10 * time.Millisecond)
	}

	waitChanged(t, done)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callbacks = %d, want 1", calls)
	}
}

func TestWatcherNewSpecNextToTrackedFile(t *testing.T) {
	t.Parallel()

	dir := canonicalTempDir(t)
	spec := filepath.Join(dir, ".spenv.yaml")
	writeFile(t, spec, "api: spenv/v0\n")

	got := make(chan []string, 4)
	w, err := New(Config{
		Files:    []string{spec},
		Debounce: 50 * time.Millisecond,
		Stderr:   &bytes.Buffer{},
		OnChange: func(_ context.Context, changed []string) error {
			got <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	override := filepath.Join(dir, ".spenv.local.yaml")
	writeFile(t, override, "api: spenv/v0\n")

	if changed := waitChanged(t, got); !slices.Contains(changed, override) {
		t.Errorf("changed = %v, want it to contain %s", changed, override)
	}
}

func TestWatcherTrack(t *testing.T) {
	t.Parallel()

	root := canonicalTempDir(t)
	a := filepath.Join(root, "a", ".spenv.yaml")
	b := filepath.Join(root, "b", ".spenv.yaml")
	for _, p := range []string{a, b} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, p, "api: spenv/v0\n")
	}

	w, err := New(Config{Files: []string{a}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = w.fsw.Close() })

	if err := w.Track([]string{b}); err != nil {
		t.Fatalf("Track() error: %v", err)
	}
	if got := w.Tracked(); !slices.Equal(got, []string{b}) {
		t.Errorf("Tracked() = %v, want [%s]", got, b)
	}
	want := []string{filepath.Dir(a), filepath.Dir(b)}
	slices.Sort(want)
	if got := w.Dirs(); !slices.Equal(got, want) {
		t.Errorf("Dirs() = %v, want %v", got, want)
	}

	if err := w.Track([]string{filepath.Join(root, "missing", "x.yaml")}); err == nil {
		t.Error("Track() on a missing directory should fail")
	}
}

func TestWatcherRelevant(t *testing.T) {
	t.Parallel()

	dir := canonicalTempDir(t)
	tracked := filepath.Join(dir, "base.yaml")
	writeFile(t, tracked, "api: spenv/v0\n")

	w, err := New(Config{Files: []string{tracked}, Ignore: []string{"*.bak"}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = w.fsw.Close() })

	tests := []struct {
		name string
		want bool
	}{
		{"base.yaml", true},
		{".spenv.yaml", true},
		{".spenv.local.yaml", true},
		{".spenv.lock.yaml", true},
		{".spenv.lock-2803561.tmp", false},
		{".spenv.yaml.swp", false},
		{".spenv.yaml~", false},
		{"base.yaml.bak", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		if got := w.relevant(filepath.Join(dir, tt.name)); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	dir := canonicalTempDir(t)
	w, err := New(Config{Files: []string{filepath.Join(dir, ".spenv.yaml")}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	cancel, errCh := startWatcher(t, w)

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() returned error on cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestWatcherDoubleRun(t *testing.T) {
	t.Parallel()

	dir := canonicalTempDir(t)
	w, err := New(Config{Files: []string{filepath.Join(dir, ".spenv.yaml")}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestWatcherInvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Ignore: []string{"[unterminated"}}); err == nil {
		t.Error("New() with an invalid ignore pattern should fail")
	}
	if _, err := New(Config{Patterns: []string{"{a,b"}}); err == nil {
		t.Error("New() with an invalid watch pattern should fail")
	}
}

func TestDefaultIgnoresIsCopy(t *testing.T) {
	t.Parallel()

	got := DefaultIgnores()
	got[0] = "changed"
	if DefaultIgnores()[0] == "changed" {
		t.Error("DefaultIgnores() returned the package slice")
	}
}
