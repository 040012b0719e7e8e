package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverFiltersBySuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.log"), "hello\n")
	writeFile(t, filepath.Join(dir, "nested", "deep.log"), "hi\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "nope\n")

	r := New([]string{dir}, ".log", false)
	summary := r.Discover()

	if summary.LogFiles != 2 {
		t.Errorf("expected 2 log files, got %d (warnings: %v)", summary.LogFiles, summary.Warnings)
	}
	sources := r.Sources()
	for _, src := range sources {
		if filepath.Ext(src.Path) != ".log" {
			t.Errorf("unexpected source %s", src.Path)
		}
	}
}

func TestRediscoveryPreservesIdentity(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	writeFile(t, logPath, "one\n")

	r := New([]string{dir}, ".log", false)
	r.Discover()

	first := r.Sources()
	if len(first) != 1 {
		t.Fatalf("expected 1 source, got %d", len(first))
	}

	// Mutate liveness sideways, rescan, and verify the entry was not reset.
	r.SetLiveness(logPath, model.LivenessDenied)
	r.Discover()

	again := r.Sources()
	if len(again) != 1 {
		t.Fatalf("expected 1 source after rescan, got %d", len(again))
	}
	if again[0].Path != first[0].Path {
		t.Errorf("identity changed across rescans: %s vs %s", first[0].Path, again[0].Path)
	}
	if again[0].Liveness != model.LivenessDenied {
		t.Errorf("rescan reset liveness to %s", again[0].Liveness)
	}
}

func TestDiscoverMarksVanishedSourcesMissing(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	writeFile(t, logPath, "one\n")

	r := New([]string{dir}, ".log", false)
	r.Discover()

	if err := os.Remove(logPath); err != nil {
		t.Fatal(err)
	}
	r.Discover()

	sources := r.Sources()
	if len(sources) != 1 {
		t.Fatalf("expected missing source to be retained, got %d sources", len(sources))
	}
	if sources[0].Liveness != model.LivenessMissing {
		t.Errorf("expected liveness missing, got %s", sources[0].Liveness)
	}
}

func TestDiscoverGlobPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "one.log"), "1\n")
	writeFile(t, filepath.Join(dir, "b", "two.log"), "2\n")

	r := New([]string{filepath.Join(dir, "**", "*.log")}, ".log", false)
	summary := r.Discover()

	if summary.LogFiles != 2 {
		t.Errorf("expected 2 files from glob, got %d", summary.LogFiles)
	}
}

func TestAddFileSource(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "extra.txt")
	writeFile(t, logPath, "x\n")

	r := New(nil, ".log", false)

	src, warnings, err := r.Add(logPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !src.SessionAdded {
		t.Error("expected session-added flag")
	}
	if len(warnings) == 0 {
		t.Error("expected suffix warning for .txt file")
	}

	// Duplicate add warns instead of failing.
	_, warnings, err = r.Add(logPath)
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if len(warnings) == 0 {
		t.Error("expected duplicate warning")
	}
	if got := len(r.Sources()); got != 1 {
		t.Errorf("expected deduplicated source set, got %d entries", got)
	}
}

func TestAddMissingPath(t *testing.T) {
	r := New(nil, ".log", false)
	_, _, err := r.Add(filepath.Join(t.TempDir(), "nope.log"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddDirectoryBecomesRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "svc.log"), "line\n")

	r := New(nil, ".log", false)
	if _, _, err := r.Add(dir); err != nil {
		t.Fatalf("add dir: %v", err)
	}

	sources := r.Sources()
	if len(sources) != 1 {
		t.Fatalf("expected 1 discovered file under added dir, got %d", len(sources))
	}
	if got := r.Roots(); len(got) != 1 {
		t.Errorf("expected added dir tracked as root, got %v", got)
	}
}
