package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/filter"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/render"
)

var (
	queryFilters filterFlags
	queryLast    int
)

var queryCmd = &cobra.Command{
	Use:   "query [files...]",
	Short: "Filter log files once and exit",
	Long: `Run the filter pipeline over complete files instead of a live tail.
Arguments may be files or glob patterns; ** matches recursively. Matching
lines print in file order.

Examples:
  clv query /var/log/app.log --level error
  clv query "/var/log/**/*.log" --regex "conn refused" --since 1d
  clv query app.log --last 50 --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryFilters.levels, "level", "l", "", "severity filter (comma-separated: debug,info,warn,error)")
	queryCmd.Flags().StringVarP(&queryFilters.pattern, "regex", "r", "", "regular expression over the raw line text")
	queryCmd.Flags().StringVar(&queryFilters.since, "since", "", "relative time window, e.g. 15m, 1h, 1d")
	queryCmd.Flags().StringVar(&queryFilters.timeSpan, "range", "", `absolute window: "YYYY-MM-DD HH:MM to YYYY-MM-DD HH:MM"`)
	queryCmd.Flags().IntVarP(&queryLast, "last", "n", 0, "print only the last N matching lines per file")
}

func runQuery(cmd *cobra.Command, args []string) error {
	spec, err := queryFilters.spec()
	if err != nil {
		return err
	}
	compiled, err := filter.Compile(spec)
	if err != nil {
		return err
	}

	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched: %v", args)
	}

	var renderer render.Renderer
	if strings.ToLower(outputFmt) == "json" {
		renderer = render.NewJSONRenderer()
	} else {
		renderer = render.NewTextRenderer(len(paths) > 1)
	}

	now := time.Now()
	for _, path := range paths {
		if err := queryFile(path, compiled, renderer, now); err != nil {
			fmt.Fprintf(os.Stderr, "clv: %s: %v\n", path, err)
		}
	}
	return nil
}

// expandArgs resolves files and glob patterns into a deduplicated path list,
// preserving argument order.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return
		}
		if !seen[abs] {
			seen[abs] = true
			paths = append(paths, abs)
		}
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", arg, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}

// queryFile scans one file and renders its matching lines. With --last only
// the final N matches print, still in file order.
func queryFile(path string, compiled *filter.Compiled, renderer render.Renderer, now time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var kept []model.LogLine
	var seq uint64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := strings.ToValidUTF8(scanner.Text(), "�")
		ts, sev, msg := model.ParseLine(raw)
		line := model.LogLine{
			Source:    path,
			Seq:       seq,
			Raw:       raw,
			Message:   msg,
			Timestamp: ts,
			Severity:  sev,
			Arrival:   now,
		}
		seq++
		if !compiled.Evaluate(line, now) {
			continue
		}
		if queryLast > 0 {
			kept = append(kept, line)
			if len(kept) > queryLast {
				kept = kept[1:]
			}
			continue
		}
		if err := renderer.Render(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for _, line := range kept {
		if err := renderer.Render(line); err != nil {
			return err
		}
	}
	return nil
}
