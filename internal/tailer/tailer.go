// Package tailer reads newly appended bytes from a single log file into its
// ring buffer, detecting rotation and truncation along the way.
package tailer

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/buffer"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

// State is the tailer's position in its per-source lifecycle.
type State int

const (
	Unopened State = iota
	Tailing
	Rotated
	Missing
	Denied
)

func (s State) String() string {
	switch s {
	case Tailing:
		return "tailing"
	case Rotated:
		return "rotated"
	case Missing:
		return "missing"
	case Denied:
		return "denied"
	default:
		return "unopened"
	}
}

// assumedLineLen sizes the backfill read: enough bytes to very likely cover
// the requested number of trailing lines without reading the whole file.
const assumedLineLen = 256

// Options bound how much a single poll may read.
type Options struct {
	// BackfillLines is how many trailing lines to load on first open.
	BackfillLines int
	// BytesPerPoll caps the bytes read from this source in one poll tick so
	// one bursting file cannot starve the rest of the cycle.
	BytesPerPoll int64
}

// Result reports what one poll did.
type Result struct {
	Appended  int
	Rotated   bool
	Truncated bool
	State     State
	Err       error // classified; informational, never fatal
}

// Tailer owns the read cursor and ring buffer of one source. It is driven
// exclusively by the poll scheduler; no other component mutates its state.
type Tailer struct {
	path      string
	ring      *buffer.Ring
	opts      Options
	state     State
	file      *os.File
	offset    int64
	ino, dev  uint64
	remainder []byte
}

// New prepares a tailer for path. Nothing is opened until the first poll.
func New(path string, ring *buffer.Ring, opts Options) *Tailer {
	if opts.BackfillLines < 0 {
		opts.BackfillLines = 0
	}
	if opts.BytesPerPoll < 1 {
		opts.BytesPerPoll = 1 << 20
	}
	return &Tailer{path: path, ring: ring, opts: opts, state: Unopened}
}

// Ring exposes the buffer this tailer appends into.
func (t *Tailer) Ring() *buffer.Ring { return t.ring }

// State returns the current lifecycle state.
func (t *Tailer) State() State { return t.state }

// Path returns the tailed file path.
func (t *Tailer) Path() string { return t.path }

// Close releases the file handle. Buffered history is retained.
func (t *Tailer) Close() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
}

// Poll advances the cursor once: opens the file if needed, detects rotation
// and truncation, reads up to the per-tick byte cap, and appends decoded
// lines to the ring. All I/O errors are classified into the state machine;
// none propagate as failures.
func (t *Tailer) Poll(now time.Time) Result {
	info, err := os.Stat(t.path)
	if err != nil {
		return t.classify(err)
	}

	res := Result{State: t.state}

	if t.file == nil {
		r := t.open(info, now)
		if r.Err != nil || t.file == nil {
			return r
		}
		res = r
	}

	ino, dev := inodeDev(info)
	switch {
	case ino != t.ino || dev != t.dev:
		// Rotation: the path now names a different file. Flush any partial
		// line from the old file, then start the new one from the top.
		t.flushRemainder(now, &res)
		t.Close()
		f, err := os.Open(t.path)
		if err != nil {
			return t.classify(err)
		}
		t.file = f
		t.offset = 0
		t.ino, t.dev = ino, dev
		t.state = Rotated
		res.Rotated = true

	case info.Size() < t.offset:
		// Truncation: the gap behind the cursor is gone, not new data.
		if _, err := t.file.Seek(0, io.SeekStart); err != nil {
			return t.classify(err)
		}
		t.offset = 0
		t.remainder = nil
		res.Truncated = true
	}

	if appended, err := t.readNew(info.Size(), now); err != nil {
		return t.classify(err)
	} else {
		res.Appended += appended
	}

	t.state = Tailing
	res.State = Tailing
	return res
}

// open establishes the cursor at end-of-file minus the backfill window. The
// whole file is never read, no matter its size.
func (t *Tailer) open(info os.FileInfo, now time.Time) Result {
	f, err := os.Open(t.path)
	if err != nil {
		return t.classify(err)
	}
	t.file = f
	t.ino, t.dev = inodeDev(info)

	size := info.Size()
	backfill := int64(t.opts.BackfillLines) * assumedLineLen
	if backfill > t.opts.BytesPerPoll {
		backfill = t.opts.BytesPerPoll
	}
	start := size - backfill
	if start < 0 {
		start = 0
	}
	t.offset = start

	appended := 0
	if backfill > 0 && size > 0 {
		appended = t.backfill(start, size, now)
	} else {
		t.offset = size
	}

	t.state = Tailing
	return Result{Appended: appended, State: Tailing}
}

// backfill reads [start, size) and keeps only the trailing BackfillLines
// complete lines.
func (t *Tailer) backfill(start, size int64, now time.Time) int {
	chunk, err := t.read(start, size-start)
	if err != nil {
		t.offset = size
		return 0
	}
	t.offset = start + int64(len(chunk))

	text := string(chunk)
	lines := strings.Split(text, "\n")
	if start > 0 && len(lines) > 0 {
		// The first piece is almost certainly a partial line.
		lines = lines[1:]
	}
	if len(lines) > 0 && !strings.HasSuffix(text, "\n") {
		t.remainder = []byte(lines[len(lines)-1])
		lines = lines[:len(lines)-1]
	} else if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > t.opts.BackfillLines {
		lines = lines[len(lines)-t.opts.BackfillLines:]
	}

	for _, raw := range lines {
		t.append(raw, now)
	}
	return len(lines)
}

// readNew ingests bytes between the cursor and the current size, capped per
// tick.
func (t *Tailer) readNew(size int64, now time.Time) (int, error) {
	if size <= t.offset {
		return 0, nil
	}
	n := size - t.offset
	if n > t.opts.BytesPerPoll {
		n = t.opts.BytesPerPoll
	}
	chunk, err := t.read(t.offset, n)
	if err != nil {
		return 0, err
	}
	t.offset += int64(len(chunk))

	data := append(t.remainder, chunk...)
	appended := 0
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		t.append(string(data[:idx]), now)
		appended++
		data = data[idx+1:]
	}
	t.remainder = data
	return appended, nil
}

func (t *Tailer) read(offset, n int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := t.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

// append decodes one raw line leniently and stores it.
func (t *Tailer) append(raw string, now time.Time) {
	raw = strings.TrimSuffix(raw, "\r")
	raw = strings.ToValidUTF8(raw, "�")
	ts, sev, msg := model.ParseLine(raw)
	t.ring.Append(model.LogLine{
		Source:    t.path,
		Raw:       raw,
		Message:   msg,
		Timestamp: ts,
		Severity:  sev,
		Arrival:   now,
	})
}

// flushRemainder emits a buffered partial line before the cursor resets, so
// the tail of a rotated-away file is not silently dropped.
func (t *Tailer) flushRemainder(now time.Time, res *Result) {
	if len(t.remainder) == 0 {
		return
	}
	t.append(string(t.remainder), now)
	t.remainder = nil
	res.Appended++
}

// classify folds an I/O error into the state machine. History is retained;
// later polls retry.
func (t *Tailer) classify(err error) Result {
	switch {
	case os.IsNotExist(err):
		t.Close()
		t.state = Missing
	case os.IsPermission(err):
		t.state = Denied
	default:
		t.Close()
		t.state = Missing
	}
	return Result{State: t.state, Err: err}
}
