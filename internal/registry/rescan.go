package registry

import (
	"context"
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Rescanner watches configured root directories with OS-level notifications
// and coalesces create/remove/rename events into a single rescan signal. The
// poll scheduler drains the signal and triggers Registry.Discover, so file
// additions appear without waiting for a timed rescan interval.
type Rescanner struct {
	fsw *fsnotify.Watcher
	c   chan struct{}
}

// NewRescanner watches every root that is an existing directory. Roots that
// are files, globs, or missing are skipped; they are covered by the timed
// rescan instead.
func NewRescanner(roots []string) (*Rescanner, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	r := &Rescanner{fsw: fsw, c: make(chan struct{}, 1)}
	for _, root := range roots {
		if hasGlobMeta(root) {
			continue
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := fsw.Add(root); err != nil {
			log.Printf("rescan: cannot watch %s: %v", root, err)
		}
	}
	return r, nil
}

// C signals when the source set may have changed. The channel is buffered
// with size one; bursts collapse into a single pending signal.
func (r *Rescanner) C() <-chan struct{} {
	return r.c
}

// Watch adds another directory, typically a session-added root.
func (r *Rescanner) Watch(dir string) error {
	return r.fsw.Add(dir)
}

// Start forwards relevant filesystem events until the context is cancelled.
func (r *Rescanner) Start(ctx context.Context) {
	defer r.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				select {
				case r.c <- struct{}{}:
				default:
				}
			}
		case err, ok := <-r.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("rescan: watcher error: %v", err)
		}
	}
}
