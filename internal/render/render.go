package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/preview"
)

// Renderer writes log lines to an output stream.
type Renderer interface {
	Render(line model.LogLine) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleDebug   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // yellow
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleUnknown = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	styleSource  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan

	stylePreviewLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	stylePreviewBody  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	stylePreviewNote  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
)

// TextRenderer prints log lines to the terminal with severity-based colors.
type TextRenderer struct {
	w          io.Writer
	showSource bool
}

// NewTextRenderer returns a Renderer that writes colorized text to stdout.
// showSource prefixes each line with its file path, useful when lines from
// several sources interleave.
func NewTextRenderer(showSource bool) *TextRenderer {
	return &TextRenderer{w: os.Stdout, showSource: showSource}
}

func (r *TextRenderer) Render(line model.LogLine) error {
	tag := styleSeverityTag(line.Severity)
	ts := line.EffectiveTime().Format("15:04:05")

	var b strings.Builder
	b.WriteString(ts)
	b.WriteByte(' ')
	b.WriteString(tag)
	if r.showSource {
		b.WriteByte(' ')
		b.WriteString(styleSource.Render(line.Source))
	}
	b.WriteByte(' ')
	if line.Message != "" {
		b.WriteString(line.Message)
	} else {
		b.WriteString(line.Raw)
	}

	_, err := fmt.Fprintln(r.w, b.String())
	return err
}

func styleSeverityTag(sev model.Severity) string {
	padded := fmt.Sprintf("%-5s", sev.String())
	switch sev {
	case model.SeverityDebug:
		return styleDebug.Render(padded)
	case model.SeverityInfo:
		return styleInfo.Render(padded)
	case model.SeverityWarn:
		return styleWarn.Render(padded)
	case model.SeverityError:
		return styleError.Render(padded)
	default:
		return styleUnknown.Render(padded)
	}
}

// RenderPreview frames a structured payload preview beneath its log line.
// The body is indented so the panel reads as an attachment to the line above.
func (r *TextRenderer) RenderPreview(p preview.Preview) error {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(stylePreviewLabel.Render(p.Label))
	b.WriteByte('\n')
	for _, row := range strings.Split(strings.TrimRight(p.Body, "\n"), "\n") {
		b.WriteString("  ")
		b.WriteString(stylePreviewBody.Render(row))
		b.WriteByte('\n')
	}
	if p.Truncated {
		b.WriteString("  ")
		b.WriteString(stylePreviewNote.Render("(truncated)"))
		b.WriteByte('\n')
	}

	_, err := fmt.Fprint(r.w, b.String())
	return err
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each log line as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

func (r *JSONRenderer) Render(line model.LogLine) error {
	return r.enc.Encode(line)
}
