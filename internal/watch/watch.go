// Package watch notifies this core when a file it does not itself manage
// through internal/document changes on disk: fallback build-settings files
// (spec.md §4.3's "fallback" compiler-argument source) whose content
// decides what a reopened GeneratedInterfaceRegistry entry or cached
// diagnostic report should look like.
//
// Grounded on gopls/internal/filewatcher's fsnotify.Watcher wrapper: the
// same receive-fast/batch-behind-a-timer split (a "run" goroutine that
// drains fsnotify as quickly as possible, and a timer that flushes a
// batch to the caller), simplified because this package watches a small,
// explicit set of individual files rather than recursively walking whole
// directory trees for every source file in a workspace.
package watch

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is the batching window used when New is called with a
// non-positive delay.
const DefaultDelay = 200 * time.Millisecond

// ErrClosed is returned by Watch/Unwatch after Close.
var ErrClosed = errors.New("watch: watcher already closed")

// Watcher batches fsnotify write/create/remove events for a set of
// individually registered file paths and delivers them, deduplicated, to
// onChange after a quiet period.
type Watcher struct {
	logger   *slog.Logger
	delay    time.Duration
	onChange func(path string)

	fsw *fsnotify.Watcher

	stop chan struct{}
	wg   sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	dirRefs  map[string]int             // watched directory -> number of interesting files within it
	interest map[string]map[string]bool // dir -> set of base names we care about
	pending  map[string]bool            // absolute paths changed since the last flush
}

// New creates a Watcher and starts its event loop. onChange is called
// sequentially, once per changed path, after each batching window; it
// must not block for long, matching gopls's own handler contract.
func New(delay time.Duration, logger *slog.Logger, onChange func(path string)) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		logger:   logger,
		delay:    delay,
		onChange: onChange,
		fsw:      fsw,
		stop:     make(chan struct{}),
		dirRefs:  make(map[string]int),
		interest: make(map[string]map[string]bool),
		pending:  make(map[string]bool),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Watch starts notifying onChange when path's contents change. fsnotify
// watches the containing directory rather than the file itself, since an
// editor's atomic save (write-to-temp, rename-over) would otherwise orphan
// a file-level watch (the same reasoning gopls's filewatcher documents for
// its own directory-level watches).
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)
	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	if w.interest[dir] == nil {
		w.interest[dir] = make(map[string]bool)
	}
	if w.interest[dir][base] {
		return nil // already watching this exact file
	}

	if w.dirRefs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.interest[dir][base] = true
	w.dirRefs[dir]++
	return nil
}

// Unwatch stops notifying onChange for path, removing the underlying
// directory watch once no interesting file remains in it.
func (w *Watcher) Unwatch(path string) error {
	path = filepath.Clean(path)
	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if !w.interest[dir][base] {
		return nil
	}
	delete(w.interest[dir], base)
	w.dirRefs[dir]--
	if w.dirRefs[dir] <= 0 {
		delete(w.dirRefs, dir)
		delete(w.interest, dir)
		return w.fsw.Remove(dir)
	}
	return nil
}

// Close stops the event loop and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	close(w.stop)
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(w.delay)
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return

		case <-timer.C:
			w.flush()
			timer.Reset(w.delay)

		case event, ok := <-w.fsw.Events:
			if !ok {
				continue
			}
			w.record(event)
			timer.Reset(w.delay)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				continue
			}
			if w.logger != nil {
				w.logger.Error("watch: fsnotify error", "err", err)
			}
		}
	}
}

// record enqueues event for the next flush if it names a path this
// Watcher was asked to watch.
func (w *Watcher) record(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.interest[dir][base] {
		return
	}
	w.pending[path] = true
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	for _, p := range paths {
		w.onChange(p)
	}
}
