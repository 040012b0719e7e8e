// Package filter composes the regex, severity, and time-window stages into a
// single line predicate.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

// ErrInvalidPattern reports a regex that does not compile. Callers keep the
// previously compiled filter active when they see it.
var ErrInvalidPattern = errors.New("invalid filter pattern")

// SampleLimit bounds how many recent lines interactive validation inspects,
// keeping per-keystroke cost independent of total log volume.
const SampleLimit = 2000

// Spec is an immutable filter description. It is replaced wholesale on every
// change; no field is ever mutated in place.
type Spec struct {
	// Pattern is a regular expression over the raw line text. Empty matches
	// everything.
	Pattern string
	// Severities restricts matching levels. Empty matches everything.
	Severities []model.Severity
	// Window restricts matching times. The zero Window matches everything.
	Window Window
}

// Identity reports whether the spec filters nothing out.
func (s Spec) Identity() bool {
	return s.Pattern == "" && len(s.Severities) == 0 && s.Window.IsAll()
}

// Compiled is a Spec with its regex compiled and its severity set indexed.
// Evaluation is pure; the time window is resolved against "now" on every
// call so relative presets slide with real time.
type Compiled struct {
	spec       Spec
	re         *regexp.Regexp
	severities map[model.Severity]bool
}

// Compile validates and prepares a spec. A bad regex returns
// ErrInvalidPattern wrapped with the compiler's message.
func Compile(spec Spec) (*Compiled, error) {
	c := &Compiled{spec: spec}
	if spec.Pattern != "" {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
		c.re = re
	}
	if len(spec.Severities) > 0 {
		c.severities = make(map[model.Severity]bool, len(spec.Severities))
		for _, sev := range spec.Severities {
			c.severities[sev] = true
		}
	}
	if err := spec.Window.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Spec returns the spec this filter was compiled from.
func (c *Compiled) Spec() Spec { return c.spec }

// Evaluate is the conjunction of the three stages: time window, severity,
// regex. The window is resolved at call time.
func (c *Compiled) Evaluate(line model.LogLine, now time.Time) bool {
	if start, end, bounded := c.spec.Window.Resolve(now); bounded {
		t := line.EffectiveTime()
		if t.Before(start) || !t.Before(end) {
			return false
		}
	}
	if c.severities != nil && !c.severities[line.Severity] {
		return false
	}
	if c.re != nil && !c.re.MatchString(line.Raw) {
		return false
	}
	return true
}

// Apply returns the lines that pass the filter, in input order.
func (c *Compiled) Apply(lines []model.LogLine, now time.Time) []model.LogLine {
	out := make([]model.LogLine, 0, len(lines))
	for _, line := range lines {
		if c.Evaluate(line, now) {
			out = append(out, line)
		}
	}
	return out
}

// SampleResult is interactive validation feedback for a candidate spec.
type SampleResult struct {
	MatchCount int
	SampleSize int
	CompileErr error
}

// ValidateSample compiles the candidate spec and counts matches over a
// bounded most-recent sample. A compile failure is reported in the result;
// the caller's active filter is untouched either way.
func ValidateSample(spec Spec, sample []model.LogLine, now time.Time) SampleResult {
	if len(sample) > SampleLimit {
		sample = sample[len(sample)-SampleLimit:]
	}
	res := SampleResult{SampleSize: len(sample)}

	compiled, err := Compile(spec)
	if err != nil {
		res.CompileErr = err
		return res
	}
	for _, line := range sample {
		if compiled.Evaluate(line, now) {
			res.MatchCount++
		}
	}
	return res
}
