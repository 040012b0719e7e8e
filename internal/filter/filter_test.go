package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

func line(raw string, sev model.Severity, ts time.Time) model.LogLine {
	return model.LogLine{Raw: raw, Severity: sev, Timestamp: ts, Arrival: ts}
}

func TestIdentityFilterMatchesEverything(t *testing.T) {
	c, err := Compile(Spec{})
	if err != nil {
		t.Fatalf("compile identity: %v", err)
	}

	now := time.Now()
	lines := []model.LogLine{
		line("plain text", model.SeverityUnknown, time.Time{}),
		line("2026-02-17 12:00:00 - ERROR - boom", model.SeverityError, now.Add(-100*time.Hour)),
		line("", model.SeverityDebug, now),
	}
	for _, l := range lines {
		if !c.Evaluate(l, now) {
			t.Errorf("identity filter rejected %q", l.Raw)
		}
	}
}

func TestInvalidPattern(t *testing.T) {
	_, err := Compile(Spec{Pattern: "(unclosed"})
	if !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestSeverityStage(t *testing.T) {
	c, err := Compile(Spec{Severities: []model.Severity{model.SeverityError, model.SeverityWarn}})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()

	if !c.Evaluate(line("x", model.SeverityError, now), now) {
		t.Error("error line rejected")
	}
	if !c.Evaluate(line("x", model.SeverityWarn, now), now) {
		t.Error("warn line rejected")
	}
	if c.Evaluate(line("x", model.SeverityInfo, now), now) {
		t.Error("info line accepted by error/warn filter")
	}
}

func TestRegexStageMatchesRawText(t *testing.T) {
	c, err := Compile(Spec{Pattern: `disk\s+full`})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()

	if !c.Evaluate(line("2026-02-17 12:00:00 - ERROR - disk full on /dev/sda", model.SeverityError, now), now) {
		t.Error("expected match on raw text")
	}
	if c.Evaluate(line("all good", model.SeverityInfo, now), now) {
		t.Error("unexpected match")
	}
}

func TestSlidingWindowExcludesAsTimeAdvances(t *testing.T) {
	c, err := Compile(Spec{Window: Window{Preset: "15m"}})
	if err != nil {
		t.Fatal(err)
	}

	evalAt := time.Date(2026, 2, 17, 12, 0, 0, 0, time.Local)
	old := line("old", model.SeverityInfo, evalAt.Add(-20*time.Minute))
	recent := line("recent", model.SeverityInfo, evalAt.Add(-5*time.Minute))

	if c.Evaluate(old, evalAt) {
		t.Error("line 20m old accepted by 15m window")
	}
	if !c.Evaluate(recent, evalAt) {
		t.Error("line 5m old rejected by 15m window")
	}

	// Same compiled filter, evaluated later: the window slides forward and
	// excludes the old line even further; the recent one ages out too.
	later := evalAt.Add(10 * time.Minute)
	if c.Evaluate(old, later) {
		t.Error("window did not slide: old line accepted at later now")
	}
	if c.Evaluate(recent, later) {
		t.Error("15m window at T+10m should exclude a line from T-5m")
	}
}

func TestExplicitRangeHalfOpen(t *testing.T) {
	start := time.Date(2026, 2, 17, 10, 0, 0, 0, time.Local)
	end := time.Date(2026, 2, 17, 11, 0, 0, 0, time.Local)
	c, err := Compile(Spec{Window: NewRange(start, end)})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()

	if !c.Evaluate(line("at start", model.SeverityInfo, start), now) {
		t.Error("start instant should be included")
	}
	if c.Evaluate(line("at end", model.SeverityInfo, end), now) {
		t.Error("end instant should be excluded")
	}
}

func TestArrivalTimeUsedWithoutTimestamp(t *testing.T) {
	c, err := Compile(Spec{Window: Window{Preset: "15m"}})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()

	l := model.LogLine{Raw: "unstructured", Arrival: now.Add(-5 * time.Minute)}
	if !c.Evaluate(l, now) {
		t.Error("arrival time should satisfy window when timestamp missing")
	}
	l.Arrival = now.Add(-30 * time.Minute)
	if c.Evaluate(l, now) {
		t.Error("stale arrival should fail the window")
	}
}

func TestValidateSample(t *testing.T) {
	now := time.Now()
	var sample []model.LogLine
	for i := 0; i < 10; i++ {
		sev := model.SeverityInfo
		raw := "routine event"
		if i%2 == 0 {
			sev = model.SeverityError
			raw = "failure detected"
		}
		sample = append(sample, line(raw, sev, now))
	}

	res := ValidateSample(Spec{Pattern: "failure"}, sample, now)
	if res.CompileErr != nil {
		t.Fatalf("unexpected compile error: %v", res.CompileErr)
	}
	if res.MatchCount != 5 || res.SampleSize != 10 {
		t.Errorf("expected 5/10 matches, got %d/%d", res.MatchCount, res.SampleSize)
	}

	bad := ValidateSample(Spec{Pattern: "(unclosed"}, sample, now)
	if !errors.Is(bad.CompileErr, ErrInvalidPattern) {
		t.Fatalf("expected compile error, got %v", bad.CompileErr)
	}
	if bad.MatchCount != 0 {
		t.Errorf("failed validation should not count matches, got %d", bad.MatchCount)
	}
}

func TestValidateSampleBounded(t *testing.T) {
	now := time.Now()
	sample := make([]model.LogLine, SampleLimit+500)
	for i := range sample {
		sample[i] = line("x", model.SeverityInfo, now)
	}
	res := ValidateSample(Spec{Pattern: "x"}, sample, now)
	if res.SampleSize != SampleLimit {
		t.Errorf("expected sample bounded to %d, got %d", SampleLimit, res.SampleSize)
	}
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"15m", 15 * time.Minute, true},
		{"1h", time.Hour, true},
		{"6h", 6 * time.Hour, true},
		{"24h", 24 * time.Hour, true},
		{"2d", 48 * time.Hour, true},
		{" 1H ", time.Hour, true},
		{"soon", 0, false},
		{"m", 0, false},
		{"-5m", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePreset(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParsePreset(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParsePreset(%q) should fail", tt.in)
		}
	}
}

func TestParseRange(t *testing.T) {
	w, err := ParseRange("2026-02-17 10:00 to 2026-02-17 11:00")
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	if w.Start.Hour() != 10 || w.End.Hour() != 11 {
		t.Errorf("unexpected bounds: %v to %v", w.Start, w.End)
	}

	if _, err := ParseRange("yesterday until today"); err == nil {
		t.Error("expected error for malformed range")
	}
}
