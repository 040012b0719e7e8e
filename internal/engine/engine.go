// Package engine wires discovery, tailing, buffering, filtering, previewing,
// and session persistence behind the contracts the CLI and HTTP surfaces
// consume. Nothing outside this package mutates a tailer or its ring.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/buffer"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/config"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/filter"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/preview"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/registry"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/session"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/stats"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/tailer"
)

const subscriberBuffer = 1024

// Toggles are the UI switches carried in the session record. The engine holds
// them so SaveSession can write a complete state in one shot.
type Toggles struct {
	AutoScroll        bool
	StructuredPreview bool
	CopyMode          bool
}

// Engine owns one registry, one tailer+ring pair per source, the active
// compiled filter, and the session store. All blocking I/O happens inside
// PollOnce, driven by Run's single ticker.
type Engine struct {
	cfg       config.Config
	reg       *registry.Registry
	rescan    *registry.Rescanner
	store     *session.Store
	previewer *preview.Previewer
	agg       *stats.Aggregator

	mu      sync.RWMutex
	tailers map[string]*tailer.Tailer
	filter  *filter.Compiled
	toggles Toggles
	summary registry.Summary

	subMu       sync.RWMutex
	subscribers []chan model.LogLine
	dropped     int64
}

// New assembles an engine from validated configuration. sessionPath overrides
// the session file location; empty selects the standard per-user path.
func New(cfg config.Config, sessionPath string) *Engine {
	e := &Engine{
		cfg:       cfg,
		reg:       registry.New(cfg.LogDirs, cfg.FileSuffix, cfg.FollowSymlinks),
		store:     session.NewStore(sessionPath),
		previewer: preview.New(cfg.CSVMaxRows, cfg.CSVMaxCols, cfg.StructuredMaxLen),
		tailers:   make(map[string]*tailer.Tailer),
	}

	// The identity spec always compiles.
	e.filter, _ = filter.Compile(filter.Spec{})

	def := session.Default()
	e.toggles = Toggles{
		AutoScroll:        def.AutoScroll,
		StructuredPreview: def.StructuredPreview,
		CopyMode:          def.CopyMode,
	}

	e.agg = stats.New(e.sourceCount, e.Dropped)

	rescan, err := registry.NewRescanner(cfg.LogDirs)
	if err != nil {
		// Discovery still works through the timed rescan.
		log.Printf("engine: filesystem watcher unavailable: %v", err)
	} else {
		e.rescan = rescan
	}
	return e
}

// Discover rescans every configured root and brings the tailer set in line
// with the registry. Existing tailers keep their cursors and buffers.
func (e *Engine) Discover() registry.Summary {
	summary := e.reg.Discover()
	e.syncTailers()

	e.mu.Lock()
	e.summary = summary
	e.mu.Unlock()
	return summary
}

// syncTailers creates a tailer for every registered source that lacks one.
// Tailers are only removed through RemoveSource.
func (e *Engine) syncTailers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, src := range e.reg.Sources() {
		if _, ok := e.tailers[src.Path]; ok {
			continue
		}
		e.tailers[src.Path] = e.newTailer(src.Path)
	}
}

func (e *Engine) newTailer(path string) *tailer.Tailer {
	ring := buffer.New(e.cfg.MaxBufferLines)
	return tailer.New(path, ring, tailer.Options{
		BackfillLines: e.cfg.DefaultShowLines,
		BytesPerPoll:  e.cfg.BytesPerPoll,
	})
}

// ListSources returns descriptors for every tracked source, ordered by path.
func (e *Engine) ListSources() []model.Source {
	return e.reg.Sources()
}

// Summary reports the result of the most recent discovery pass.
func (e *Engine) Summary() registry.Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.summary
}

// VisibleLines returns the most recent windowSize lines of the source that
// pass the active filter. windowSize values below one fall back to the
// configured default.
func (e *Engine) VisibleLines(path string, windowSize int) ([]model.LogLine, error) {
	e.mu.RLock()
	t, ok := e.tailers[path]
	compiled := e.filter
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, path)
	}
	if windowSize < 1 {
		windowSize = e.cfg.DefaultShowLines
	}

	lines := compiled.Apply(t.Ring().Snapshot(0), time.Now())
	if len(lines) > windowSize {
		lines = lines[len(lines)-windowSize:]
	}
	return lines, nil
}

// SetFilterSpec swaps the active filter wholesale. On ErrInvalidPattern the
// previous filter stays active and the error is returned for display.
func (e *Engine) SetFilterSpec(spec filter.Spec) error {
	compiled, err := filter.Compile(spec)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.filter = compiled
	e.mu.Unlock()
	return nil
}

// FilterSpec returns the spec the active filter was compiled from.
func (e *Engine) FilterSpec() filter.Spec {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.filter.Spec()
}

// ValidateFilter scores a candidate spec against a bounded sample of the most
// recent lines across all sources. The active filter is untouched.
func (e *Engine) ValidateFilter(spec filter.Spec) filter.SampleResult {
	e.mu.RLock()
	tailers := make([]*tailer.Tailer, 0, len(e.tailers))
	for _, t := range e.tailers {
		tailers = append(tailers, t)
	}
	e.mu.RUnlock()

	perSource := filter.SampleLimit
	if len(tailers) > 1 {
		perSource = filter.SampleLimit / len(tailers)
		if perSource < 1 {
			perSource = 1
		}
	}
	var sample []model.LogLine
	for _, t := range tailers {
		sample = append(sample, t.Ring().Snapshot(perSource)...)
	}
	return filter.ValidateSample(spec, sample, time.Now())
}

// Preview attempts structured-payload detection for a line.
func (e *Engine) Preview(line model.LogLine) (preview.Preview, bool) {
	return e.previewer.Preview(line)
}

// AddSource incorporates a user-supplied path for this session. Directories
// become watched roots and are discovered immediately. Warnings accompany a
// successful addition; errors wrap registry.ErrNotFound or
// registry.ErrPermissionDenied.
func (e *Engine) AddSource(path string) (model.Source, []string, error) {
	src, warnings, err := e.reg.Add(path)
	if err != nil {
		return model.Source{}, nil, err
	}
	if src.Kind == model.KindDirectoryFile && src.Path == src.Root {
		if e.rescan != nil {
			if werr := e.rescan.Watch(src.Path); werr != nil {
				log.Printf("engine: cannot watch %s: %v", src.Path, werr)
			}
		}
	}
	e.syncTailers()
	return src, warnings, nil
}

// RemoveSource drops a source and cancels its future polls. The history in
// other sources is unaffected.
func (e *Engine) RemoveSource(path string) bool {
	removed := e.reg.Remove(path)

	e.mu.Lock()
	if t, ok := e.tailers[path]; ok {
		t.Close()
		delete(e.tailers, path)
		removed = true
	}
	e.mu.Unlock()
	return removed
}

// SetToggles replaces the UI switches carried in the session record.
func (e *Engine) SetToggles(t Toggles) {
	e.mu.Lock()
	e.toggles = t
	e.mu.Unlock()
}

// Toggles returns the current UI switches.
func (e *Engine) Toggles() Toggles {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.toggles
}

// SaveSession persists the current source additions, filter spec, and toggles
// as one atomic record, and merges session-added paths back into the settings
// file so they survive as configured roots.
func (e *Engine) SaveSession() error {
	e.mu.RLock()
	spec := e.filter.Spec()
	toggles := e.toggles
	e.mu.RUnlock()

	state := session.Default()
	state.Sources = e.reg.SessionAdded()
	state.Query = spec.Pattern
	for _, sev := range spec.Severities {
		state.Severities = append(state.Severities, sev.String())
	}
	state.TimeWindow, state.RangeStart, state.RangeEnd = encodeWindow(spec.Window)
	state.AutoScroll = toggles.AutoScroll
	state.StructuredPreview = toggles.StructuredPreview
	state.CopyMode = toggles.CopyMode

	if err := e.store.Save(state); err != nil {
		return err
	}
	if len(state.Sources) > 0 {
		if err := config.SaveSources(e.cfg.SettingsPath, state.Sources); err != nil {
			log.Printf("engine: cannot persist sources to settings: %v", err)
		}
	}
	return nil
}

// LoadSession restores a saved session: re-adds its sources and reinstates
// its filter spec and toggles. Loading never fails the caller; a corrupt or
// missing record yields defaults plus a non-fatal diagnostic.
func (e *Engine) LoadSession() (session.State, error) {
	state, err := e.store.Load()

	for _, path := range state.Sources {
		if _, _, addErr := e.reg.Add(path); addErr != nil {
			log.Printf("engine: session source %s: %v", path, addErr)
		}
	}
	e.syncTailers()

	spec := decodeSpec(state)
	if specErr := e.SetFilterSpec(spec); specErr != nil {
		log.Printf("engine: session filter rejected, keeping identity: %v", specErr)
	}
	e.SetToggles(Toggles{
		AutoScroll:        state.AutoScroll,
		StructuredPreview: state.StructuredPreview,
		CopyMode:          state.CopyMode,
	})
	return state, err
}

// Stats returns a snapshot of ingest metrics.
func (e *Engine) Stats() stats.Snapshot {
	return e.agg.Snapshot()
}

// Subscribe returns a buffered channel receiving every ingested line that
// passes the active filter. Slow consumers lose lines rather than stalling
// the poll cycle.
func (e *Engine) Subscribe() <-chan model.LogLine {
	ch := make(chan model.LogLine, subscriberBuffer)
	e.subMu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.subMu.Unlock()
	return ch
}

// Dropped returns the total lines dropped on slow subscriber channels.
func (e *Engine) Dropped() int64 {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	return e.dropped
}

func (e *Engine) broadcast(line model.LogLine) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- line:
		default:
			e.dropped++
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = nil
}

func (e *Engine) sourceCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tailers)
}

// PollOnce advances every tailer one tick. Per-source errors are classified
// into liveness states; none abort the cycle.
func (e *Engine) PollOnce(now time.Time) {
	e.mu.RLock()
	tailers := make([]*tailer.Tailer, 0, len(e.tailers))
	for _, t := range e.tailers {
		tailers = append(tailers, t)
	}
	compiled := e.filter
	e.mu.RUnlock()

	for _, t := range tailers {
		res := t.Poll(now)
		switch res.State {
		case tailer.Tailing, tailer.Rotated:
			e.reg.SetLiveness(t.Path(), model.LivenessActive)
		case tailer.Missing:
			e.reg.SetLiveness(t.Path(), model.LivenessMissing)
		case tailer.Denied:
			e.reg.SetLiveness(t.Path(), model.LivenessDenied)
		}
		if res.Rotated {
			log.Printf("engine: %s rotated, following new file", t.Path())
		}
		if res.Truncated {
			log.Printf("engine: %s truncated, reading from start", t.Path())
		}
		if res.Appended > 0 {
			for _, line := range t.Ring().Snapshot(res.Appended) {
				e.agg.Record(line)
				if compiled.Evaluate(line, now) {
					e.broadcast(line)
				}
			}
		}
	}
}

// Run drives the poll scheduler at the configured refresh rate until the
// context is cancelled. Filesystem events from the rescanner trigger
// re-discovery between ticks.
func (e *Engine) Run(ctx context.Context) error {
	defer e.closeSubscribers()

	e.Discover()
	var rescanC <-chan struct{}
	if e.rescan != nil {
		go e.rescan.Start(ctx)
		rescanC = e.rescan.C()
	}

	hz := e.cfg.RefreshHz
	if hz <= 0 {
		hz = 2
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.closeTailers()
			return ctx.Err()
		case <-rescanC:
			e.Discover()
		case now := <-ticker.C:
			e.PollOnce(now)
		}
	}
}

func (e *Engine) closeTailers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.tailers {
		t.Close()
	}
}

// encodeWindow flattens a filter window into the session record's string
// fields.
func encodeWindow(w filter.Window) (timeWindow, rangeStart, rangeEnd string) {
	switch {
	case w.IsAll():
		return "all", "", ""
	case !w.Start.IsZero() || !w.End.IsZero():
		const layout = "2006-01-02 15:04"
		return "custom", w.Start.Format(layout), w.End.Format(layout)
	default:
		return w.Preset, "", ""
	}
}

// decodeSpec rebuilds a filter spec from a session record. Unparseable parts
// degrade to their match-all defaults.
func decodeSpec(state session.State) filter.Spec {
	spec := filter.Spec{Pattern: state.Query}
	for _, name := range state.Severities {
		if sev := model.ParseSeverity(name); sev != model.SeverityUnknown || strings.EqualFold(name, "unknown") {
			spec.Severities = append(spec.Severities, sev)
		}
	}
	switch strings.ToLower(strings.TrimSpace(state.TimeWindow)) {
	case "", "all":
		spec.Window = filter.WindowAll
	case "custom":
		if w, err := filter.ParseRange(state.RangeStart + " to " + state.RangeEnd); err == nil {
			spec.Window = w
		} else {
			log.Printf("engine: session range ignored: %v", err)
		}
	default:
		spec.Window = filter.Window{Preset: state.TimeWindow}
	}
	return spec
}
