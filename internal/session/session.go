// Package session persists user selections (sources, filters, toggles)
// across runs.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrCorruptSession marks a session file that could not be used; the caller
// gets defaults and should surface the diagnostic once, non-fatally.
var ErrCorruptSession = errors.New("corrupt session file")

// schemaVersion guards against loading records written by an incompatible
// future layout.
const schemaVersion = 1

const sessionFileName = "session.toml"

// State is the single atomic unit the store persists. Build a complete new
// value and save it; never read the stored state back mid-mutation.
type State struct {
	SchemaVersion int      `toml:"schema_version"`
	Sources       []string `toml:"sources"`

	Query      string   `toml:"query"`
	Severities []string `toml:"severities"`
	TimeWindow string   `toml:"time_window"`
	RangeStart string   `toml:"range_start"`
	RangeEnd   string   `toml:"range_end"`

	AutoScroll        bool `toml:"auto_scroll"`
	StructuredPreview bool `toml:"structured_preview"`
	CopyMode          bool `toml:"copy_mode"`
}

// Default returns the documented defaults used whenever no usable session
// exists.
func Default() State {
	return State{
		SchemaVersion: schemaVersion,
		TimeWindow:    "all",
		AutoScroll:    true,
	}
}

// Store reads and writes the session record. Saves are serialized;
// last-writer-wins is fine because saves are user-triggered.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore persists at the given path, or at the standard user location when
// path is empty. When the user-scoped directory cannot be determined the
// store falls back to a dotfile in the working directory.
func NewStore(path string) *Store {
	if path == "" {
		if dir := userStateDir(); dir != "" {
			path = filepath.Join(dir, sessionFileName)
		} else {
			path = ".clv-session.toml"
		}
	}
	return &Store{path: path}
}

// Path returns where the session is persisted.
func (s *Store) Path() string { return s.path }

// Load returns the persisted state. It never fails the caller: a missing
// file yields defaults silently; a parse error or unknown schema yields
// defaults plus a diagnostic wrapping ErrCorruptSession.
func (s *Store) Load() (State, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}

	state := Default()
	if err := toml.Unmarshal(raw, &state); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if state.SchemaVersion != schemaVersion {
		return Default(), fmt.Errorf("%w: unknown schema version %d", ErrCorruptSession, state.SchemaVersion)
	}

	state.Sources = dedupe(state.Sources)
	return state, nil
}

// Save writes the state atomically: marshal to a temp file, then rename over
// the destination so a crash mid-write cannot corrupt the record.
func (s *Store) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.SchemaVersion = schemaVersion
	state.Sources = dedupe(state.Sources)

	raw, err := toml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// dedupe removes duplicate paths, preserving first-seen order.
func dedupe(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func userStateDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clv")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "clv")
}
