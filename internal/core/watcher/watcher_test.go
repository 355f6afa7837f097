// # internal/core/watcher/watcher_test.go
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustFilter(t *testing.T, dirs, files []string) *Filter {
	t.Helper()
	f, err := NewFilter(dirs, files, nil)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 1)
	w, err := NewWatcher(100*time.Millisecond, mustFilter(t, []string{"node_modules"}, []string{"*.d.ts"}), func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "app.ts")
	os.WriteFile(testFile, []byte("export default {}"), 0644)

	select {
	case paths := <-changedFiles:
		found := false
		for _, p := range paths {
			if p == testFile {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected to find %s in changed files %v", testFile, paths)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timed out waiting for file change event")
	}

	// Excluded by pattern and by extension.
	os.WriteFile(filepath.Join(tmpDir, "types.d.ts"), []byte("declare const x: number"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "notes.md"), []byte("# notes"), 0644)

	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			base := filepath.Base(p)
			if base == "types.d.ts" || base == "notes.md" {
				t.Errorf("Excluded file %s triggered event", base)
			}
		}
	case <-time.After(500 * time.Millisecond):
		// Expected
	}

	// New directory should be recursively watched after create.
	subdir := filepath.Join(tmpDir, "models")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "user.js")
	if err := os.WriteFile(subFile, []byte("export default {}"), 0644); err != nil {
		t.Fatal(err)
	}

	foundNested := false
	timeout := time.After(2 * time.Second)
	for !foundNested {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == subFile {
					foundNested = true
					break
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for nested file event in newly created directory")
		}
	}
}

func TestWatcher_RemoveTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "model.js")
	if err := os.WriteFile(target, []byte("export default {}"), 0644); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == target {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for remove event for %s", target)
		}
	}
}

func TestFilter(t *testing.T) {
	f := mustFilter(t, []string{"node_modules", ".*"}, []string{"*.d.ts", "*.min.js"})

	cases := []struct {
		path string
		skip bool
	}{
		{"src/models/app.ts", false},
		{"src/models/app.tsx", false},
		{"src/models/app.JS", false},
		{"src/types.d.ts", true},
		{"vendor/lib.min.js", true},
		{"README.md", true},
		{"Makefile", true},
	}
	for _, tc := range cases {
		if got := f.SkipFile(tc.path); got != tc.skip {
			t.Errorf("SkipFile(%q) = %v, want %v", tc.path, got, tc.skip)
		}
	}

	if !f.SkipDir("/repo/node_modules") {
		t.Error("expected node_modules to be skipped")
	}
	if !f.SkipDir("/repo/.git") {
		t.Error("expected dot directories to be skipped")
	}
	if f.SkipDir("/repo/src") {
		t.Error("expected src to be walked")
	}
}

func TestNewFilter_InvalidPattern(t *testing.T) {
	if _, err := NewFilter([]string{"[unclosed"}, nil, nil); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
