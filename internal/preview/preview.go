// Package preview detects JSON, XML, and CSV payloads embedded in log lines
// and renders bounded structured previews of them.
package preview

import (
	"encoding/json"
	"strings"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

// Kind identifies the detected payload format.
type Kind int

const (
	KindJSON Kind = iota
	KindXML
	KindCSV
)

// Labels shown next to the rendered preview.
var kindLabels = map[Kind]string{
	KindJSON: "JSON",
	KindXML:  "XML",
	KindCSV:  "CSV preview",
}

func (k Kind) String() string { return kindLabels[k] }

// Preview is a bounded structured rendering of a payload found in one line.
type Preview struct {
	Kind      Kind
	Label     string
	Body      string
	Truncated bool
}

// Caps on structural rendering so a pathological payload (a megabyte of
// nested JSON in one line) cannot stall the render path.
const (
	maxJSONDepth = 6
	maxJSONNodes = 200
	maxXMLNodes  = 200
	maxValueLen  = 120
)

// Previewer holds the configured rendering bounds.
type Previewer struct {
	maxRows    int
	maxCols    int
	maxPayload int
}

// New builds a previewer with the given CSV caps and maximum payload length.
func New(maxRows, maxCols, maxPayload int) *Previewer {
	if maxRows < 1 {
		maxRows = 1
	}
	if maxCols < 1 {
		maxCols = 1
	}
	if maxPayload < 1 {
		maxPayload = 8192
	}
	return &Previewer{maxRows: maxRows, maxCols: maxCols, maxPayload: maxPayload}
}

// Preview inspects a line's message for a structured payload. Detection order
// is JSON, then XML, then CSV; a miss on all three is not an error, the line
// simply has no preview.
func (p *Previewer) Preview(line model.LogLine) (Preview, bool) {
	payload := strings.TrimSpace(line.Message)
	if payload == "" {
		payload = strings.TrimSpace(line.Raw)
	}
	if payload == "" || len(payload) > p.maxPayload {
		return Preview{}, false
	}

	if pv, ok := p.previewJSON(payload); ok {
		return pv, true
	}
	if pv, ok := p.previewXML(payload); ok {
		return pv, true
	}
	if pv, ok := p.previewCSV(payload); ok {
		return pv, true
	}
	return Preview{}, false
}

// previewJSON parses the substring bounded by the outermost balanced braces
// or brackets and renders it as a depth-capped tree.
func (p *Previewer) previewJSON(payload string) (Preview, bool) {
	candidate, ok := balancedJSONSlice(payload)
	if !ok {
		return Preview{}, false
	}
	var value any
	if err := json.Unmarshal([]byte(candidate), &value); err != nil {
		return Preview{}, false
	}
	// Bare primitives ("42", `"oops"`) are not worth a structured panel.
	switch value.(type) {
	case map[string]any, []any:
	default:
		return Preview{}, false
	}

	body, truncated := renderJSONTree(value)
	return Preview{Kind: KindJSON, Label: KindJSON.String(), Body: body, Truncated: truncated}, true
}

// balancedJSONSlice returns the substring from the first opening brace or
// bracket to its balanced partner, honoring string escapes.
func balancedJSONSlice(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func clipValue(s string) string {
	if len(s) > maxValueLen {
		return s[:maxValueLen-1] + "…"
	}
	return s
}
