// Package watcher reports file changes in a directory tree.
//
// Raw fsnotify events are mapped to created, updated and deleted changes,
// hidden files and directories are skipped, and bursts of events for the
// same file are coalesced into one change after a quiet period.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType classifies a file change.
type ChangeType int

// Change types.
const (
	ChangeCreated ChangeType = iota + 1
	ChangeUpdated
	ChangeDeleted
)

// String returns the change type name.
func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one file change.
type Change struct {
	Type ChangeType
	Path string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values disable coalescing.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithFilter limits reported files to those for which keep returns true.
// Deletions are always reported.
func WithFilter(keep func(path string) bool) Option {
	return func(w *Watcher) {
		w.keep = keep
	}
}

// Watcher watches one directory tree.
type Watcher struct {
	root     string
	debounce time.Duration
	keep     func(path string) bool
}

// New creates a watcher rooted at root.
func New(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		keep:     func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Scan lists the visible files under the root, sorted.
func (w *Watcher) Scan(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != w.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && w.keep(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", w.root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Watch reports changes until ctx is cancelled. Both channels are closed
// when watching stops.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, <-chan error, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.addTree(fsw, w.root); err != nil {
		fsw.Close()
		return nil, nil, err
	}

	changes := make(chan Change)
	errs := make(chan error, 1)

	go w.loop(ctx, fsw, changes, errs)

	logger.Debug("Watching %s", w.root)
	return changes, errs, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- Change, errs chan<- error) {
	defer close(errs)
	defer close(changes)
	defer fsw.Close()

	pending := make(map[string]ChangeType)
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	flush := func() bool {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			select {
			case changes <- Change{Type: pending[p], Path: p}:
			case <-ctx.Done():
				return false
			}
			delete(pending, p)
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) && !isHidden(filepath.Base(event.Name)) {
				if err := w.addTree(fsw, event.Name); err != nil {
					logger.Warn("Watching %s: %v", event.Name, err)
				}
				continue
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			pending[change.Path] = merge(pending[change.Path], change.Type)
			if w.debounce <= 0 {
				if !flush() {
					return
				}
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			select {
			case errs <- err:
			case <-ctx.Done():
				return
			}

		case <-timer.C:
			if !flush() {
				return
			}
		}
	}
}

// handleFsEvent maps an fsnotify event to a change, or nil if it is ignored.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(filepath.Base(event.Name)) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if isDir(event.Name) || !w.keep(event.Name) {
			return nil
		}
		t := ChangeUpdated
		if event.Has(fsnotify.Create) {
			t = ChangeCreated
		}
		return &Change{Type: t, Path: event.Name}
	default:
		return nil
	}
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// merge combines a pending change with a newer one for the same path.
func merge(prev, next ChangeType) ChangeType {
	switch {
	case prev == 0:
		return next
	case prev == ChangeCreated && next == ChangeUpdated:
		return ChangeCreated
	case prev == ChangeDeleted && next == ChangeCreated:
		return ChangeUpdated
	default:
		return next
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// ErrNotDirectory is returned by Validate when root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Validate checks that the root exists and is a directory.
func (w *Watcher) Validate() error {
	info, err := os.Stat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", w.root, ErrNotDirectory)
	}
	return nil
}
