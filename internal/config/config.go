// Package config loads engine settings from the user's settings file.
//
// Settings live under a [log_viewer] table in
// $XDG_CONFIG_HOME/clv/settings.toml, with a development fallback of
// ./settings.toml. When no file exists the default template is written to
// the user location so there is always something to edit.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const (
	appDirName       = "clv"
	settingsFileName = "settings.toml"

	defaultMaxBufferLines   = 500
	defaultShowLines        = 40
	defaultMinShowLines     = 10
	defaultShowStep         = 10
	defaultRefreshHz        = 2.0
	defaultCSVMaxRows       = 20
	defaultCSVMaxCols       = 10
	defaultFileSuffix       = ".log"
	defaultBytesPerPoll     = 1 << 20 // per-source read cap for one poll tick
	defaultStructuredMaxLen = 8192

	minRefreshHz = 0.5
	maxRefreshHz = 20.0
	maxCSVRows   = 5000
	maxCSVCols   = 200
)

// DefaultTemplate is written verbatim when no settings file exists.
const DefaultTemplate = `[log_viewer]
log_dirs = "/var/log"
max_buffer_lines = 500
default_show_lines = 40
min_show_lines = 10
show_step = 10
refresh_hz = 2
csv_max_rows = 20
csv_max_cols = 10
`

// Config carries every tunable the engine needs. It is built once at startup
// and threaded into each component; nothing reads viper after Load returns.
type Config struct {
	LogDirs          []string // absolute files, directories, or glob patterns
	FileSuffix       string   // discovery filter for directory scans
	FollowSymlinks   bool     // follow symlinks that escape the configured root
	MaxBufferLines   int
	DefaultShowLines int
	MinShowLines     int
	ShowStep         int
	RefreshHz        float64
	CSVMaxRows       int
	CSVMaxCols       int
	BytesPerPoll     int64 // per-source read cap for a single poll tick
	StructuredMaxLen int   // longest payload the previewer will inspect

	// Path the settings were loaded from, empty when defaults were used.
	SettingsPath string
}

// Default returns the documented defaults with no log roots resolved.
func Default() Config {
	return Config{
		FileSuffix:       defaultFileSuffix,
		MaxBufferLines:   defaultMaxBufferLines,
		DefaultShowLines: defaultShowLines,
		MinShowLines:     defaultMinShowLines,
		ShowStep:         defaultShowStep,
		RefreshHz:        defaultRefreshHz,
		CSVMaxRows:       defaultCSVMaxRows,
		CSVMaxCols:       defaultCSVMaxCols,
		BytesPerPoll:     defaultBytesPerPoll,
		StructuredMaxLen: defaultStructuredMaxLen,
	}
}

// ConfigDir returns the per-user configuration directory, honoring
// XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Development fallback: current directory.
		return "."
	}
	return filepath.Join(home, ".config", appDirName)
}

// Load reads settings from the given file, or from the standard search path
// when path is empty. Missing files are not an error: the template is
// materialized at the user location and defaults are returned.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("CLV")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("settings")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
		ensureUserSettings()
	}

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && (os.IsNotExist(err) || errors.As(err, &notFound)) {
			cfg.LogDirs = fallbackLogDirs()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read settings: %w", err)
	}
	cfg.SettingsPath = v.ConfigFileUsed()

	section := v.Sub("log_viewer")
	if section == nil {
		cfg.LogDirs = fallbackLogDirs()
		return cfg, nil
	}

	cfg.LogDirs = parseLogDirs(section.GetString("log_dirs"))
	if len(cfg.LogDirs) == 0 {
		cfg.LogDirs = fallbackLogDirs()
	}

	cfg.FileSuffix = orDefault(section.GetString("file_suffix"), defaultFileSuffix)
	cfg.FollowSymlinks = section.GetBool("follow_symlinks")
	cfg.MaxBufferLines = intOr(section, "max_buffer_lines", defaultMaxBufferLines)
	cfg.DefaultShowLines = intOr(section, "default_show_lines", defaultShowLines)
	cfg.MinShowLines = intOr(section, "min_show_lines", defaultMinShowLines)
	cfg.ShowStep = intOr(section, "show_step", defaultShowStep)
	cfg.RefreshHz = floatOr(section, "refresh_hz", defaultRefreshHz)
	cfg.CSVMaxRows = intOr(section, "csv_max_rows", defaultCSVMaxRows)
	cfg.CSVMaxCols = intOr(section, "csv_max_cols", defaultCSVMaxCols)
	if section.IsSet("max_read_bytes_per_poll") {
		cfg.BytesPerPoll = section.GetInt64("max_read_bytes_per_poll")
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps every field into its documented sane range.
func (c *Config) normalize() {
	if c.MaxBufferLines < 1 {
		c.MaxBufferLines = defaultMaxBufferLines
	}
	if c.MinShowLines < 1 {
		c.MinShowLines = defaultMinShowLines
	}
	if c.DefaultShowLines < c.MinShowLines {
		c.DefaultShowLines = c.MinShowLines
	}
	if c.ShowStep < 1 {
		c.ShowStep = defaultShowStep
	}
	c.RefreshHz = clampFloat(c.RefreshHz, minRefreshHz, maxRefreshHz)
	c.CSVMaxRows = clampInt(c.CSVMaxRows, 1, maxCSVRows)
	c.CSVMaxCols = clampInt(c.CSVMaxCols, 1, maxCSVCols)
	if c.BytesPerPoll < 1 {
		c.BytesPerPoll = defaultBytesPerPoll
	}
	if c.StructuredMaxLen < 1 {
		c.StructuredMaxLen = defaultStructuredMaxLen
	}
	if !strings.HasPrefix(c.FileSuffix, ".") {
		c.FileSuffix = "." + c.FileSuffix
	}
}

// SaveSources merges the given paths into the log_dirs entry of the settings
// file, creating it from the template first when needed. Existing entries are
// preserved; duplicates are dropped.
func SaveSources(path string, entries []string) error {
	if path == "" {
		path = filepath.Join(ConfigDir(), settingsFileName)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(DefaultTemplate), 0o644); err != nil {
			return fmt.Errorf("write settings template: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	merged := parseLogDirs(v.GetString("log_viewer.log_dirs"))
	seen := make(map[string]bool, len(merged))
	for _, dir := range merged {
		seen[dir] = true
	}
	for _, entry := range entries {
		if entry == "" || seen[entry] {
			continue
		}
		merged = append(merged, entry)
		seen[entry] = true
	}
	sort.Slice(merged, func(i, j int) bool {
		return strings.ToLower(merged[i]) < strings.ToLower(merged[j])
	})

	v.Set("log_viewer.log_dirs", strings.Join(merged, ", "))
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// ensureUserSettings writes the default template to the user config location
// when no settings file exists there yet.
func ensureUserSettings() {
	target := filepath.Join(ConfigDir(), settingsFileName)
	if _, err := os.Stat(target); err == nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(target, []byte(DefaultTemplate), 0o644); err != nil {
		log.Printf("config: cannot write default settings to %s: %v", target, err)
	}
}

// parseLogDirs splits the comma-separated log_dirs value, expanding "~" and
// dropping entries that are not absolute after expansion.
func parseLogDirs(raw string) []string {
	var dirs []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		expanded := expandHome(part)
		if !filepath.IsAbs(expanded) {
			log.Printf("config: ignoring non-absolute log_dirs entry %q", part)
			continue
		}
		dirs = append(dirs, filepath.Clean(expanded))
	}
	return dirs
}

// fallbackLogDirs points discovery at ./logs when nothing is configured.
func fallbackLogDirs() []string {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(cwd, "logs")}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func intOr(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	return v.GetInt(key)
}

func floatOr(v *viper.Viper, key string, def float64) float64 {
	if !v.IsSet(key) {
		return def
	}
	return v.GetFloat64(key)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
