package model

import (
	"regexp"
	"strings"
	"time"
)

// logLineRe matches the structured format "2026-02-17 12:00:00,123 - LEVEL - message".
// Both comma and dot fraction separators appear in the wild.
var logLineRe = regexp.MustCompile(
	`^(?P<timestamp>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:[.,]\d+)?) - (?P<level>\w+) - (?P<message>.*)$`,
)

// When parsing, Go accepts a fractional second after the seconds field even
// when the layout omits it, so one layout covers all three observed formats.
const timestampLayout = "2006-01-02 15:04:05"

// ParseLine extracts the timestamp, severity, and message from a raw log
// line. Lines that do not match the structured format fall back to keyword
// severity detection with a zero timestamp and the full line as message.
func ParseLine(raw string) (ts time.Time, sev Severity, message string) {
	match := logLineRe.FindStringSubmatch(raw)
	if match == nil {
		return time.Time{}, DetectSeverity(raw), raw
	}
	tsStr, level, msg := match[1], match[2], match[3]
	// Go layouts have no comma fraction separator.
	tsStr = strings.Replace(tsStr, ",", ".", 1)
	if parsed, err := time.ParseInLocation(timestampLayout, tsStr, time.Local); err == nil {
		ts = parsed
	}
	return ts, ParseSeverity(level), msg
}
