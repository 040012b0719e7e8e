package model

import "strings"

// Severity is the log level classification of a line.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityWarn
	SeverityError
)

var severityNames = map[Severity]string{
	SeverityUnknown: "UNKNOWN",
	SeverityDebug:   "DEBUG",
	SeverityInfo:    "INFO",
	SeverityWarn:    "WARN",
	SeverityError:   "ERROR",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText lets Severity round-trip through JSON as its name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts any spelling ParseSeverity recognizes.
func (s *Severity) UnmarshalText(text []byte) error {
	*s = ParseSeverity(string(text))
	return nil
}

// Severities lists all known levels, lowest first.
func Severities() []Severity {
	return []Severity{SeverityDebug, SeverityInfo, SeverityWarn, SeverityError, SeverityUnknown}
}

// ParseSeverity normalizes common level spellings to the standard set.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR", "ERR", "FATAL", "CRITICAL", "CRIT":
		return SeverityError
	case "WARN", "WARNING":
		return SeverityWarn
	case "INFO", "NOTICE":
		return SeverityInfo
	case "DEBUG", "TRACE":
		return SeverityDebug
	default:
		return SeverityUnknown
	}
}

// DetectSeverity scans a raw line for level keywords. Used as a fallback when
// the line does not match the structured log format.
func DetectSeverity(line string) Severity {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "FATAL"), strings.Contains(upper, "ERROR"):
		return SeverityError
	case strings.Contains(upper, "WARN"):
		return SeverityWarn
	case strings.Contains(upper, "INFO"):
		return SeverityInfo
	case strings.Contains(upper, "DEBUG"), strings.Contains(upper, "TRACE"):
		return SeverityDebug
	default:
		return SeverityUnknown
	}
}
