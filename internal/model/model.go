package model

import "time"

// SourceKind distinguishes explicitly configured files from files found by
// expanding a configured directory.
type SourceKind int

const (
	KindFile SourceKind = iota
	KindDirectoryFile
)

func (k SourceKind) String() string {
	if k == KindDirectoryFile {
		return "directory-file"
	}
	return "file"
}

// Liveness describes whether a source is currently readable.
type Liveness int

const (
	LivenessActive Liveness = iota
	LivenessMissing
	LivenessDenied
)

func (l Liveness) String() string {
	switch l {
	case LivenessMissing:
		return "missing"
	case LivenessDenied:
		return "permission-denied"
	default:
		return "active"
	}
}

// Source describes a single tailed log file. Identity is the absolute path;
// read cursor state (offset, inode) belongs to the Tailer, not the descriptor.
type Source struct {
	Path         string     `json:"path"`
	Root         string     `json:"root,omitempty"` // configured root that yielded it, empty for direct adds
	Kind         SourceKind `json:"-"`
	Liveness     Liveness   `json:"-"`
	SessionAdded bool       `json:"session_added,omitempty"`
}

// LogLine is a single ingested line. Immutable once created; owned by the
// ring buffer of its source.
type LogLine struct {
	Source    string    `json:"source"`
	Seq       uint64    `json:"seq"`
	Raw       string    `json:"raw"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp,omitempty"` // zero when the line carried no parseable timestamp
	Severity  Severity  `json:"severity"`
	Arrival   time.Time `json:"arrival"`
}

// EffectiveTime returns the parsed timestamp when present, otherwise the
// wall-clock arrival time. Time-window filtering always has something to
// compare against.
func (l LogLine) EffectiveTime() time.Time {
	if !l.Timestamp.IsZero() {
		return l.Timestamp
	}
	return l.Arrival
}
