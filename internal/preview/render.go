package preview

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
)

// renderJSONTree walks a decoded JSON value into an indented tree, stopping
// at the depth and node caps.
func renderJSONTree(value any) (string, bool) {
	w := list.NewWriter()
	w.SetStyle(list.StyleConnectedLight)

	budget := maxJSONNodes
	truncated := walkJSON(w, "", value, 0, &budget)

	return w.Render(), truncated
}

// walkJSON appends one value (and its children) to the list writer. Returns
// true when anything was cut off by a cap.
func walkJSON(w list.Writer, key string, value any, depth int, budget *int) bool {
	if *budget <= 0 {
		return true
	}
	*budget--

	label := func(v string) string {
		if key == "" {
			return v
		}
		return key + ": " + v
	}

	switch v := value.(type) {
	case map[string]any:
		if depth >= maxJSONDepth {
			w.AppendItem(label("{…}"))
			return true
		}
		w.AppendItem(label(fmt.Sprintf("object (%d keys)", len(v))))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.Indent()
		truncated := false
		for _, k := range keys {
			if *budget <= 0 {
				w.AppendItem("…")
				truncated = true
				break
			}
			if walkJSON(w, k, v[k], depth+1, budget) {
				truncated = true
			}
		}
		w.UnIndent()
		return truncated

	case []any:
		if depth >= maxJSONDepth {
			w.AppendItem(label("[…]"))
			return true
		}
		w.AppendItem(label(fmt.Sprintf("array (%d items)", len(v))))
		w.Indent()
		truncated := false
		for i, item := range v {
			if *budget <= 0 {
				w.AppendItem("…")
				truncated = true
				break
			}
			if walkJSON(w, fmt.Sprintf("[%d]", i), item, depth+1, budget) {
				truncated = true
			}
		}
		w.UnIndent()
		return truncated

	case string:
		w.AppendItem(label(clipValue(fmt.Sprintf("%q", v))))
	case nil:
		w.AppendItem(label("null"))
	default:
		w.AppendItem(label(clipValue(fmt.Sprintf("%v", v))))
	}
	return false
}

// previewXML checks well-formedness (one matching root element) and renders
// a node-capped indented outline.
func (p *Previewer) previewXML(payload string) (Preview, bool) {
	if !strings.HasPrefix(payload, "<") {
		return Preview{}, false
	}

	dec := xml.NewDecoder(strings.NewReader(payload))
	var sb strings.Builder
	depth := 0
	nodes := 0
	rootSeen := false
	truncated := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil || depth < 0 {
			return Preview{}, false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && rootSeen {
				// Trailing second root: not a well-formed document.
				return Preview{}, false
			}
			rootSeen = true
			if nodes < maxXMLNodes {
				sb.WriteString(strings.Repeat("  ", depth))
				sb.WriteString("<" + t.Name.Local)
				for _, attr := range t.Attr {
					sb.WriteString(fmt.Sprintf(" %s=%q", attr.Name.Local, clipValue(attr.Value)))
				}
				sb.WriteString(">\n")
			} else {
				truncated = true
			}
			nodes++
			depth++
		case xml.EndElement:
			depth--
			if nodes <= maxXMLNodes {
				sb.WriteString(strings.Repeat("  ", depth))
				sb.WriteString("</" + t.Name.Local + ">\n")
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" && nodes < maxXMLNodes {
				sb.WriteString(strings.Repeat("  ", depth))
				sb.WriteString(clipValue(text))
				sb.WriteString("\n")
			}
		}
	}
	if depth != 0 || !rootSeen {
		return Preview{}, false
	}
	if truncated {
		sb.WriteString("…\n")
	}
	return Preview{
		Kind:      KindXML,
		Label:     KindXML.String(),
		Body:      strings.TrimRight(sb.String(), "\n"),
		Truncated: truncated,
	}, true
}

// previewCSV applies the single-line heuristic: at least one delimiter and a
// clean parse against the quoted-field grammar. Escaped "\n" sequences in
// the payload separate rows.
func (p *Previewer) previewCSV(payload string) (Preview, bool) {
	if !strings.Contains(payload, ",") {
		return Preview{}, false
	}
	text := strings.ReplaceAll(payload, `\n`, "\n")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	var rows [][]string
	truncatedRows := false
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Preview{}, false
		}
		if len(rows) >= p.maxRows {
			truncatedRows = true
			break
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return Preview{}, false
	}

	widest := 0
	for _, row := range rows {
		if len(row) > widest {
			widest = len(row)
		}
	}
	if widest < 2 {
		return Preview{}, false
	}
	colCount := widest
	truncatedCols := false
	if colCount > p.maxCols {
		colCount = p.maxCols
		truncatedCols = true
	}

	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	header := make(table.Row, colCount)
	for i := 0; i < colCount; i++ {
		header[i] = fmt.Sprintf("Col %d", i+1)
	}
	w.AppendHeader(header)

	for _, row := range rows {
		cells := make(table.Row, colCount)
		for i := 0; i < colCount; i++ {
			if i < len(row) {
				cells[i] = clipValue(row[i])
			} else {
				cells[i] = ""
			}
		}
		w.AppendRow(cells)
	}
	if truncatedCols || truncatedRows {
		marker := make(table.Row, colCount)
		for i := range marker {
			marker[i] = "…"
		}
		w.AppendRow(marker)
	}

	return Preview{
		Kind:      KindCSV,
		Label:     KindCSV.String(),
		Body:      w.Render(),
		Truncated: truncatedCols || truncatedRows,
	}, true
}
