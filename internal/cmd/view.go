package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/engine"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/filter"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/render"
)

var (
	viewFilters    filterFlags
	viewPreview    bool
	viewNoSession  bool
	viewShowSource bool
)

var viewCmd = &cobra.Command{
	Use:   "view [paths...]",
	Short: "Tail configured log sources with live filtering",
	Long: `Tail every log source under the configured directories and stream the
lines that pass the active filter to the terminal. Extra paths given as
arguments are added for this session only.

Examples:
  clv view
  clv view /var/log/custom/app.log
  clv view --level error,warn --regex "timeout" --since 1h
  clv view --range "2026-02-17 08:00 to 2026-02-17 12:00" --output json`,
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().StringVarP(&viewFilters.levels, "level", "l", "", "severity filter (comma-separated: debug,info,warn,error)")
	viewCmd.Flags().StringVarP(&viewFilters.pattern, "regex", "r", "", "regular expression over the raw line text")
	viewCmd.Flags().StringVar(&viewFilters.since, "since", "", "relative time window, e.g. 15m, 1h, 1d")
	viewCmd.Flags().StringVar(&viewFilters.timeSpan, "range", "", `absolute window: "YYYY-MM-DD HH:MM to YYYY-MM-DD HH:MM"`)
	viewCmd.Flags().BoolVarP(&viewPreview, "preview", "p", false, "render structured payload previews (JSON/XML/CSV)")
	viewCmd.Flags().BoolVar(&viewNoSession, "no-session", false, "do not load or save session state")
	viewCmd.Flags().BoolVar(&viewShowSource, "show-source", false, "prefix each line with its file path")
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng := engine.New(cfg, "")

	if !viewNoSession {
		if _, err := eng.LoadSession(); err != nil {
			fmt.Fprintf(os.Stderr, "clv: session ignored: %v\n", err)
		}
	}

	for _, arg := range args {
		_, warnings, err := eng.AddSource(arg)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "clv: %s\n", w)
		}
	}

	summary := eng.Discover()
	for _, w := range summary.Warnings {
		fmt.Fprintf(os.Stderr, "clv: %s\n", w)
	}
	sources := eng.ListSources()
	if len(sources) == 0 {
		return fmt.Errorf("no log sources found under %v", cfg.LogDirs)
	}
	fmt.Fprintf(os.Stderr, "clv: tailing %d file(s) in %d folder(s):\n", summary.LogFiles, summary.Folders)
	for _, src := range sources {
		note := ""
		if src.Liveness.String() != "active" {
			note = " (" + src.Liveness.String() + ")"
		}
		fmt.Fprintf(os.Stderr, "   %s%s\n", src.Path, note)
	}
	fmt.Fprintln(os.Stderr)

	if viewFilters.changed() {
		spec, err := viewFilters.spec()
		if err != nil {
			return err
		}
		if err := eng.SetFilterSpec(spec); err != nil {
			if errors.Is(err, filter.ErrInvalidPattern) {
				return fmt.Errorf("filter not applied: %w", err)
			}
			return err
		}
	}

	toggles := eng.Toggles()
	if cmd.Flags().Changed("preview") {
		toggles.StructuredPreview = viewPreview
		eng.SetToggles(toggles)
	}

	var renderer render.Renderer
	text := render.NewTextRenderer(viewShowSource || len(sources) > 1)
	useText := strings.ToLower(outputFmt) != "json"
	if useText {
		renderer = text
	} else {
		renderer = render.NewJSONRenderer()
	}

	lines := eng.Subscribe()
	go func() {
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("clv: %v", err)
		}
	}()

	for line := range lines {
		if err := renderer.Render(line); err != nil {
			log.Printf("render error: %v", err)
			continue
		}
		if toggles.StructuredPreview && useText {
			if p, ok := eng.Preview(line); ok {
				if err := text.RenderPreview(p); err != nil {
					log.Printf("render error: %v", err)
				}
			}
		}
	}

	if !viewNoSession {
		if err := eng.SaveSession(); err != nil {
			fmt.Fprintf(os.Stderr, "clv: session not saved: %v\n", err)
		}
	}
	return nil
}
