// Package buffer implements the fixed-capacity per-source line store.
package buffer

import (
	"sync"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

// Ring is a fixed-capacity FIFO of log lines. Appends evict exactly one
// oldest element once full. Sequence numbers are assigned on append and are
// never reused, so evictions leave detectable gaps for readers that remember
// the last sequence they saw.
//
// Append is called only by the owning source's tailer; Snapshot may be called
// concurrently from query paths. The mutex guarantees readers observe either
// the pre-append or fully-post-append state.
type Ring struct {
	mu      sync.RWMutex
	buf     []model.LogLine
	head    int
	size    int
	nextSeq uint64
}

// New returns a ring with the given capacity. Capacities below one are
// clamped to one.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]model.LogLine, capacity)}
}

// Append stores the line, assigning the next sequence number, and returns the
// stored value. When the ring is full the single oldest line is evicted.
func (r *Ring) Append(line model.LogLine) model.LogLine {
	r.mu.Lock()
	defer r.mu.Unlock()

	line.Seq = r.nextSeq
	r.nextSeq++

	idx := (r.head + r.size) % len(r.buf)
	r.buf[idx] = line
	if r.size < len(r.buf) {
		r.size++
	} else {
		r.head = (r.head + 1) % len(r.buf)
	}
	return line
}

// Snapshot returns the most recent limit lines in append order. A limit of
// zero or less returns everything retained. The result is a copy; the caller
// may hold it across appends.
func (r *Ring) Snapshot(limit int) []model.LogLine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.LogLine, n)
	start := r.head + r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Len reports the number of retained lines.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap reports the fixed capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// OldestSeq returns the lowest retained sequence number. The second return
// is false while the ring is empty.
func (r *Ring) OldestSeq() (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.size == 0 {
		return 0, false
	}
	return r.buf[r.head].Seq, true
}

// NextSeq returns the sequence number the next append will receive.
func (r *Ring) NextSeq() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextSeq
}
