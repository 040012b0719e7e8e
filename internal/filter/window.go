package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window restricts lines to a time range. Either a relative preset such as
// "15m" resolved against "now" at evaluation time, or an explicit
// [Start, End) pair.
type Window struct {
	// Preset is "", "all", or a relative shortcut like "15m", "1h", "1d".
	Preset string
	// Start and End bound an explicit range when both are set.
	Start time.Time
	End   time.Time
}

// WindowAll matches every line.
var WindowAll = Window{}

// NewRange builds an explicit [start, end) window.
func NewRange(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// IsAll reports whether the window places no restriction.
func (w Window) IsAll() bool {
	preset := strings.ToLower(strings.TrimSpace(w.Preset))
	return (preset == "" || preset == "all") && w.Start.IsZero() && w.End.IsZero()
}

// Resolve produces the concrete [start, end) bounds for an evaluation at
// now. bounded is false when the window matches everything.
func (w Window) Resolve(now time.Time) (start, end time.Time, bounded bool) {
	if w.IsAll() {
		return time.Time{}, time.Time{}, false
	}
	if !w.Start.IsZero() || !w.End.IsZero() {
		return w.Start, w.End, true
	}
	d, err := ParsePreset(w.Preset)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return now.Add(-d), now, true
}

func (w Window) validate() error {
	if w.IsAll() || !w.Start.IsZero() || !w.End.IsZero() {
		return nil
	}
	_, err := ParsePreset(w.Preset)
	return err
}

// ParsePreset converts a relative shortcut like "15m", "2h", or "1d" into a
// duration.
func ParsePreset(shortcut string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(shortcut))
	if len(s) < 2 {
		return 0, fmt.Errorf("unsupported time shortcut %q; use values like '15m', '1h', '1d'", shortcut)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported time shortcut %q; use values like '15m', '1h', '1d'", shortcut)
	}
	switch s[len(s)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported time shortcut %q; use values like '15m', '1h', '1d'", shortcut)
	}
}

// rangeLayout matches the "YYYY-MM-DD HH:MM to YYYY-MM-DD HH:MM" form used
// by the custom range input.
const rangeLayout = "2006-01-02 15:04"

// ParseRange parses an explicit "start to end" expression into a window.
func ParseRange(rangeStr string) (Window, error) {
	parts := strings.SplitN(rangeStr, "to", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid range %q; use 'YYYY-MM-DD HH:MM to YYYY-MM-DD HH:MM'", rangeStr)
	}
	start, err := parseRangeInstant(strings.TrimSpace(parts[0]))
	if err != nil {
		return Window{}, err
	}
	end, err := parseRangeInstant(strings.TrimSpace(parts[1]))
	if err != nil {
		return Window{}, err
	}
	return NewRange(start, end), nil
}

func parseRangeInstant(s string) (time.Time, error) {
	for _, layout := range []string{rangeLayout, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid instant %q; use 'YYYY-MM-DD HH:MM'", s)
}
