package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/config"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/filter"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/registry"
)

func testConfig(t *testing.T, dirs ...string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LogDirs = dirs
	return cfg
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscoverAndVisibleLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeLines(t, path,
		"2026-02-17 12:00:00 - INFO - started",
		"2026-02-17 12:00:01 - ERROR - boom",
		"2026-02-17 12:00:02 - DEBUG - detail",
	)

	e := New(testConfig(t, dir), filepath.Join(t.TempDir(), "session.toml"))
	summary := e.Discover()
	if summary.LogFiles != 1 {
		t.Fatalf("expected 1 log file discovered, got %d (warnings: %v)", summary.LogFiles, summary.Warnings)
	}

	e.PollOnce(time.Now())

	lines, err := e.VisibleLines(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 visible lines, got %d", len(lines))
	}

	// Restrict to errors only; the window must shrink accordingly.
	if err := e.SetFilterSpec(filter.Spec{Severities: []model.Severity{model.SeverityError}}); err != nil {
		t.Fatal(err)
	}
	lines, err = e.VisibleLines(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0].Message != "boom" {
		t.Fatalf("expected only the error line, got %+v", lines)
	}
}

func TestVisibleLinesUnknownSource(t *testing.T) {
	e := New(testConfig(t, t.TempDir()), filepath.Join(t.TempDir(), "session.toml"))
	e.Discover()

	if _, err := e.VisibleLines("/no/such/file.log", 10); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidPatternKeepsPreviousFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeLines(t, path, "2026-02-17 12:00:00 - ERROR - boom")

	e := New(testConfig(t, dir), filepath.Join(t.TempDir(), "session.toml"))
	e.Discover()
	e.PollOnce(time.Now())

	if err := e.SetFilterSpec(filter.Spec{Pattern: "boom"}); err != nil {
		t.Fatal(err)
	}
	err := e.SetFilterSpec(filter.Spec{Pattern: "[unclosed"})
	if !errors.Is(err, filter.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
	if got := e.FilterSpec().Pattern; got != "boom" {
		t.Errorf("previous filter should remain active, got pattern %q", got)
	}

	lines, err := e.VisibleLines(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 {
		t.Errorf("previous filter should still match, got %d lines", len(lines))
	}
}

func TestAddSourceErrors(t *testing.T) {
	e := New(testConfig(t, t.TempDir()), filepath.Join(t.TempDir(), "session.toml"))
	e.Discover()

	if _, _, err := e.AddSource("/no/such/path.log"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddAndRemoveSource(t *testing.T) {
	e := New(testConfig(t, t.TempDir()), filepath.Join(t.TempDir(), "session.toml"))
	e.Discover()

	extra := filepath.Join(t.TempDir(), "extra.log")
	writeLines(t, extra, "2026-02-17 12:00:00 - INFO - hello")

	src, warnings, err := e.AddSource(extra)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	e.PollOnce(time.Now())

	lines, err := e.VisibleLines(src.Path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected the added source to be tailed, got %d lines", len(lines))
	}

	if !e.RemoveSource(src.Path) {
		t.Fatal("expected removal to succeed")
	}
	if _, err := e.VisibleLines(src.Path, 0); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("removed source should be gone, got %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	sessionPath := filepath.Join(t.TempDir(), "session.toml")
	extra := filepath.Join(t.TempDir(), "extra.log")
	writeLines(t, extra, "2026-02-17 12:00:00 - WARN - careful")

	cfg := testConfig(t, t.TempDir())
	cfg.SettingsPath = filepath.Join(t.TempDir(), "settings.toml")

	e := New(cfg, sessionPath)
	e.Discover()
	if _, _, err := e.AddSource(extra); err != nil {
		t.Fatal(err)
	}
	if err := e.SetFilterSpec(filter.Spec{
		Pattern:    "careful",
		Severities: []model.Severity{model.SeverityWarn},
		Window:     filter.Window{Preset: "1h"},
	}); err != nil {
		t.Fatal(err)
	}
	e.SetToggles(Toggles{AutoScroll: false, StructuredPreview: true})
	if err := e.SaveSession(); err != nil {
		t.Fatal(err)
	}

	// A fresh engine restores the saved sources, spec, and toggles.
	e2 := New(cfg, sessionPath)
	e2.Discover()
	state, err := e2.LoadSession()
	if err != nil {
		t.Fatalf("load should not fail: %v", err)
	}
	if len(state.Sources) != 1 {
		t.Fatalf("expected 1 session source, got %v", state.Sources)
	}

	spec := e2.FilterSpec()
	if spec.Pattern != "careful" {
		t.Errorf("expected pattern restored, got %q", spec.Pattern)
	}
	if len(spec.Severities) != 1 || spec.Severities[0] != model.SeverityWarn {
		t.Errorf("expected WARN severity restored, got %v", spec.Severities)
	}
	if spec.Window.Preset != "1h" {
		t.Errorf("expected 1h window restored, got %+v", spec.Window)
	}
	if toggles := e2.Toggles(); toggles.AutoScroll || !toggles.StructuredPreview {
		t.Errorf("expected toggles restored, got %+v", toggles)
	}

	// The restored source is tailed again.
	e2.PollOnce(time.Now())
	if lines, err := e2.VisibleLines(state.Sources[0], 0); err != nil || len(lines) != 1 {
		t.Errorf("restored source not tailed: lines=%v err=%v", lines, err)
	}
}

func TestSubscribeReceivesFilteredLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeLines(t, path, "2026-02-17 12:00:00 - INFO - old line")

	e := New(testConfig(t, dir), filepath.Join(t.TempDir(), "session.toml"))
	e.Discover()
	e.PollOnce(time.Now()) // backfill

	if err := e.SetFilterSpec(filter.Spec{Pattern: "wanted"}); err != nil {
		t.Fatal(err)
	}
	ch := e.Subscribe()

	writeLines(t, path,
		"2026-02-17 12:00:01 - INFO - wanted line",
		"2026-02-17 12:00:02 - INFO - unrelated",
	)
	e.PollOnce(time.Now())

	select {
	case line := <-ch:
		if line.Message != "wanted line" {
			t.Errorf("expected the matching line, got %q", line.Message)
		}
	default:
		t.Fatal("expected a broadcast line")
	}
	select {
	case line := <-ch:
		t.Errorf("unexpected extra broadcast: %q", line.Raw)
	default:
	}
}

func TestValidateFilterSample(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "app.log"),
		"2026-02-17 12:00:00 - ERROR - one",
		"2026-02-17 12:00:01 - INFO - two",
	)

	e := New(testConfig(t, dir), filepath.Join(t.TempDir(), "session.toml"))
	e.Discover()
	e.PollOnce(time.Now())

	res := e.ValidateFilter(filter.Spec{Severities: []model.Severity{model.SeverityError}})
	if res.CompileErr != nil {
		t.Fatal(res.CompileErr)
	}
	if res.SampleSize != 2 || res.MatchCount != 1 {
		t.Errorf("expected 1/2 matches, got %d/%d", res.MatchCount, res.SampleSize)
	}

	res = e.ValidateFilter(filter.Spec{Pattern: "[bad"})
	if res.CompileErr == nil {
		t.Error("expected compile error to be reported")
	}
}
