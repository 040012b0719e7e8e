// Package stats aggregates ingest metrics across all tailed sources.
package stats

import (
	"sync"
	"time"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

// epsWindow is the sliding window used for the lines-per-second rate.
const epsWindow = 5 * time.Second

// Snapshot is a point-in-time view of the aggregated metrics.
type Snapshot struct {
	Uptime         string           `json:"uptime"`
	TotalLines     int64            `json:"total_lines"`
	LinesPerSecond float64          `json:"lps"`
	SeverityCounts map[string]int64 `json:"severity_counts"`
	SourcesTracked int              `json:"sources_tracked"`
	DroppedNotices int64            `json:"dropped_notices"`
}

// Aggregator counts ingested lines by severity and keeps a sliding rate
// window. It is fed by the poll scheduler and read by the status API.
type Aggregator struct {
	mu        sync.Mutex
	startTime time.Time
	total     int64
	counts    map[model.Severity]int64
	window    []time.Time
	sources   func() int
	dropped   func() int64
}

// New creates an aggregator. sourcesFn and droppedFn provide live values
// from the registry and the notification channel respectively.
func New(sourcesFn func() int, droppedFn func() int64) *Aggregator {
	return &Aggregator{
		startTime: time.Now(),
		counts:    make(map[model.Severity]int64),
		sources:   sourcesFn,
		dropped:   droppedFn,
	}
}

// Record counts one ingested line.
func (a *Aggregator) Record(line model.LogLine) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.counts[line.Severity]++
	a.window = append(a.window, time.Now())
	a.pruneLocked(time.Now())
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	a.pruneLocked(now)

	counts := make(map[string]int64, len(a.counts))
	for sev, n := range a.counts {
		counts[sev.String()] = n
	}

	snap := Snapshot{
		Uptime:         time.Since(a.startTime).Truncate(time.Second).String(),
		TotalLines:     a.total,
		LinesPerSecond: float64(len(a.window)) / epsWindow.Seconds(),
		SeverityCounts: counts,
	}
	if a.sources != nil {
		snap.SourcesTracked = a.sources()
	}
	if a.dropped != nil {
		snap.DroppedNotices = a.dropped()
	}
	return snap
}

// pruneLocked drops rate-window entries older than the window span.
func (a *Aggregator) pruneLocked(now time.Time) {
	cutoff := now.Add(-epsWindow)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
