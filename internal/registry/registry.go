// Package registry enumerates configured directories and files into a stable
// set of log sources.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
)

var (
	// ErrNotFound reports that an added path does not resolve.
	ErrNotFound = errors.New("source path not found")
	// ErrPermissionDenied reports that an added path is not readable.
	ErrPermissionDenied = errors.New("source path not readable")
)

// Summary describes the result of one discovery pass.
type Summary struct {
	Roots    int
	Folders  int
	LogFiles int
	Warnings []string
}

// Registry tracks the set of known sources. Re-discovery preserves existing
// Source identities (matched by path) so open tail cursors and buffers are
// never reset by a rescan.
type Registry struct {
	mu             sync.Mutex
	suffix         string
	followSymlinks bool
	roots          []string
	sessionRoots   []string
	sources        map[string]*model.Source
}

// New builds a registry over the configured roots. Roots may be files,
// directories, or doublestar glob patterns such as /var/log/**/*.log.
func New(roots []string, suffix string, followSymlinks bool) *Registry {
	return &Registry{
		suffix:         suffix,
		followSymlinks: followSymlinks,
		roots:          append([]string(nil), roots...),
		sources:        make(map[string]*model.Source),
	}
}

// Discover rescans every configured and session-added root. Sources that
// vanished are marked missing but retained; unreadable entries surface as
// degraded sources, never as errors.
func (r *Registry) Discover() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	summary := Summary{}

	allRoots := append(append([]string(nil), r.roots...), r.sessionRoots...)
	summary.Roots = len(allRoots)
	for _, root := range allRoots {
		r.discoverRoot(root, seen, &summary)
	}

	// Anything previously discovered under a root but absent now is marked
	// missing. Session-added files keep their own liveness from polling.
	for path, src := range r.sources {
		if seen[path] || src.SessionAdded {
			continue
		}
		if src.Liveness == model.LivenessActive {
			src.Liveness = model.LivenessMissing
		}
	}
	return summary
}

func (r *Registry) discoverRoot(root string, seen map[string]bool, summary *Summary) {
	if hasGlobMeta(root) {
		matches, err := doublestar.FilepathGlob(root, doublestar.WithFilesOnly())
		if err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("pattern %q: %v", root, err))
			return
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				continue
			}
			r.upsert(abs, root, model.KindDirectoryFile)
			seen[abs] = true
			summary.LogFiles++
		}
		return
	}

	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("path %q does not exist", root))
		return
	case os.IsPermission(err):
		src := r.upsert(root, root, model.KindFile)
		src.Liveness = model.LivenessDenied
		seen[root] = true
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("permission denied for %q", root))
		return
	case err != nil:
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("stat %q: %v", root, err))
		return
	}

	if !info.IsDir() {
		if !strings.HasSuffix(root, r.suffix) {
			return
		}
		src := r.upsert(root, root, model.KindFile)
		if src.Liveness == model.LivenessMissing {
			src.Liveness = model.LivenessActive
		}
		seen[root] = true
		summary.LogFiles++
		return
	}

	summary.Folders++
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				src := r.upsert(path, root, model.KindDirectoryFile)
				src.Liveness = model.LivenessDenied
				seen[path] = true
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("permission denied for %q", path))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			return nil
		}
		if d.IsDir() {
			if path != root {
				summary.Folders++
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), r.suffix) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 && !r.followSymlinks && escapesRoot(path, root) {
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("skipping symlink %q escaping %q", path, root))
			return nil
		}
		src := r.upsert(path, root, model.KindDirectoryFile)
		if src.Liveness == model.LivenessMissing {
			src.Liveness = model.LivenessActive
		}
		seen[path] = true
		summary.LogFiles++
		return nil
	})
	if walkErr != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("scan %q: %v", root, walkErr))
	}
}

// upsert returns the existing source for path or records a new one. Caller
// holds the mutex.
func (r *Registry) upsert(path, root string, kind model.SourceKind) *model.Source {
	if src, ok := r.sources[path]; ok {
		return src
	}
	src := &model.Source{Path: path, Root: root, Kind: kind, Liveness: model.LivenessActive}
	r.sources[path] = src
	return src
}

// Add incorporates a user-supplied path into the current session. Directories
// become additional roots and are discovered immediately. The returned
// warnings are advisory (duplicate entry, unusual suffix) and accompany a
// successful addition.
func (r *Registry) Add(rawPath string) (model.Source, []string, error) {
	path, err := normalizePath(rawPath)
	if err != nil {
		return model.Source{}, nil, fmt.Errorf("%w: %s", ErrNotFound, rawPath)
	}

	r.mu.Lock()
	if src, ok := r.sources[path]; ok {
		out := *src
		r.mu.Unlock()
		return out, []string{fmt.Sprintf("%s is already part of this session", path)}, nil
	}
	r.mu.Unlock()

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return model.Source{}, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case os.IsPermission(err):
		return model.Source{}, nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	case err != nil:
		return model.Source{}, nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}

	if err := checkReadable(path, info); err != nil {
		return model.Source{}, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if info.IsDir() {
		r.sessionRoots = append(r.sessionRoots, path)
		var summary Summary
		seen := make(map[string]bool)
		r.discoverRoot(path, seen, &summary)
		src := model.Source{Path: path, Root: path, Kind: model.KindDirectoryFile, SessionAdded: true}
		return src, summary.Warnings, nil
	}

	src := r.upsert(path, "", model.KindFile)
	src.SessionAdded = true
	var warnings []string
	if !strings.HasSuffix(path, r.suffix) {
		warnings = append(warnings,
			fmt.Sprintf("%s does not end with %s; added anyway", filepath.Base(path), r.suffix))
	}
	return *src, warnings, nil
}

// Remove drops a source from the registry. Returns false when the path was
// not tracked.
func (r *Registry) Remove(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[path]; !ok {
		return false
	}
	delete(r.sources, path)
	return true
}

// SetLiveness records the tailer's view of a source's readability.
func (r *Registry) SetLiveness(path string, l model.Liveness) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.sources[path]; ok {
		src.Liveness = l
	}
}

// Sources returns descriptors for every tracked source, ordered by path,
// case-insensitively.
func (r *Registry) Sources() []model.Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Source, 0, len(r.sources))
	for _, src := range r.sources {
		out = append(out, *src)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Path) < strings.ToLower(out[j].Path)
	})
	return out
}

// SessionAdded lists paths the user added during this session, including
// directory roots, for persisting back into the settings file.
func (r *Registry) SessionAdded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, src := range r.sources {
		if src.SessionAdded {
			out = append(out, src.Path)
		}
	}
	out = append(out, r.sessionRoots...)
	sort.Strings(out)
	return out
}

// Roots returns every configured and session-added root directory or pattern.
func (r *Registry) Roots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(append([]string(nil), r.roots...), r.sessionRoots...)
}

// normalizePath expands "~", absolutizes, and resolves symlinks best-effort.
func normalizePath(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.Trim(raw, `"`))
	if trimmed == "" {
		return "", errors.New("empty path")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}

// checkReadable verifies read access up front so a bad addition is rejected
// with a clear error instead of degrading on the first poll.
func checkReadable(path string, info os.FileInfo) error {
	if info.IsDir() {
		if _, err := os.ReadDir(path); os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil
	}
	f, err := os.Open(path)
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	f.Close()
	return nil
}

// escapesRoot reports whether the symlink at path resolves outside root.
func escapesRoot(path, root string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return true
	}
	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		rootResolved = root
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
