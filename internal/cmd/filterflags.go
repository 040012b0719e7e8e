package cmd

import (
	"fmt"
	"strings"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/filter"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

// filterFlags are the filtering options shared by view and query.
type filterFlags struct {
	levels   string
	pattern  string
	since    string
	timeSpan string
}

// changed reports whether any filtering flag was supplied.
func (f filterFlags) changed() bool {
	return f.levels != "" || f.pattern != "" || f.since != "" || f.timeSpan != ""
}

// spec converts the flags into a filter spec. Window flags are validated
// here so a typo fails fast instead of silently matching everything.
func (f filterFlags) spec() (filter.Spec, error) {
	spec := filter.Spec{Pattern: f.pattern}

	if f.levels != "" {
		for _, name := range strings.Split(f.levels, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			sev := model.ParseSeverity(name)
			if sev == model.SeverityUnknown && !strings.EqualFold(name, "unknown") {
				return filter.Spec{}, fmt.Errorf("unknown severity %q; use debug, info, warn, error", name)
			}
			spec.Severities = append(spec.Severities, sev)
		}
	}

	switch {
	case f.since != "" && f.timeSpan != "":
		return filter.Spec{}, fmt.Errorf("--since and --range are mutually exclusive")
	case f.since != "":
		if _, err := filter.ParsePreset(f.since); err != nil {
			return filter.Spec{}, err
		}
		spec.Window = filter.Window{Preset: f.since}
	case f.timeSpan != "":
		w, err := filter.ParseRange(f.timeSpan)
		if err != nil {
			return filter.Spec{}, err
		}
		spec.Window = w
	}
	return spec, nil
}
