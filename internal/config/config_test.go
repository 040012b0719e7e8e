package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeSettings(t, "[log_viewer]\nlog_dirs = \"/var/log\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxBufferLines != 500 {
		t.Errorf("expected max_buffer_lines default 500, got %d", cfg.MaxBufferLines)
	}
	if cfg.DefaultShowLines != 40 || cfg.MinShowLines != 10 || cfg.ShowStep != 10 {
		t.Errorf("unexpected show-line defaults: %d/%d/%d",
			cfg.DefaultShowLines, cfg.MinShowLines, cfg.ShowStep)
	}
	if cfg.CSVMaxRows != 20 || cfg.CSVMaxCols != 10 {
		t.Errorf("unexpected csv defaults: %d/%d", cfg.CSVMaxRows, cfg.CSVMaxCols)
	}
	if len(cfg.LogDirs) != 1 || cfg.LogDirs[0] != "/var/log" {
		t.Errorf("unexpected log dirs: %v", cfg.LogDirs)
	}
	if cfg.FileSuffix != ".log" {
		t.Errorf("expected .log suffix, got %q", cfg.FileSuffix)
	}
}

func TestLoadClampsRanges(t *testing.T) {
	path := writeSettings(t, `[log_viewer]
log_dirs = "/var/log"
refresh_hz = 100
csv_max_rows = 999999
csv_max_cols = 0
max_buffer_lines = -5
default_show_lines = 3
min_show_lines = 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RefreshHz != 20 {
		t.Errorf("expected refresh_hz clamped to 20, got %v", cfg.RefreshHz)
	}
	if cfg.CSVMaxRows != 5000 {
		t.Errorf("expected csv_max_rows clamped to 5000, got %d", cfg.CSVMaxRows)
	}
	if cfg.CSVMaxCols != 1 {
		t.Errorf("expected csv_max_cols clamped to 1, got %d", cfg.CSVMaxCols)
	}
	if cfg.MaxBufferLines != 500 {
		t.Errorf("expected invalid buffer size replaced with default, got %d", cfg.MaxBufferLines)
	}
	if cfg.DefaultShowLines < cfg.MinShowLines {
		t.Errorf("default_show_lines %d below min_show_lines %d",
			cfg.DefaultShowLines, cfg.MinShowLines)
	}
}

func TestLoadSkipsRelativeDirs(t *testing.T) {
	path := writeSettings(t, "[log_viewer]\nlog_dirs = \"relative/path, /abs/ok\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.LogDirs) != 1 || cfg.LogDirs[0] != "/abs/ok" {
		t.Errorf("expected only absolute entry kept, got %v", cfg.LogDirs)
	}
}

func TestSaveSourcesMerges(t *testing.T) {
	path := writeSettings(t, "[log_viewer]\nlog_dirs = \"/var/log\"\n")

	if err := SaveSources(path, []string{"/srv/app/logs", "/var/log"}); err != nil {
		t.Fatalf("save sources: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(cfg.LogDirs) != 2 {
		t.Fatalf("expected 2 merged dirs, got %v", cfg.LogDirs)
	}
	joined := strings.Join(cfg.LogDirs, ",")
	if !strings.Contains(joined, "/srv/app/logs") || !strings.Contains(joined, "/var/log") {
		t.Errorf("merge missing entries: %v", cfg.LogDirs)
	}
}

func TestSaveSourcesCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")

	if err := SaveSources(path, []string{"/srv/app/logs"}); err != nil {
		t.Fatalf("save sources: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "log_dirs") {
		t.Errorf("expected settings file with log_dirs, got:\n%s", raw)
	}
}
