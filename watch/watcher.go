// Package watch observes a directory tree and emits debounced change events.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
)

// DefaultDebounce is the settle window used when Config.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// ErrRootMissing is returned by Start when the root directory does not exist.
var ErrRootMissing = errors.New("watch root does not exist")

// State is the lifecycle state of a Watcher.
type State int

const (
	Stopped State = iota
	Starting
	Watching
)

func (state State) String() string {
	switch state {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Watching:
		return "watching"
	}
	return fmt.Sprintf("State(%d)", int(state))
}

// Event is a debounced file change.
type Event struct {
	// Path is slash separated and relative to the watched root.
	Path string
}

// Config configures a Watcher.
type Config struct {
	// Root is the directory to watch.
	Root string
	// Debounce is the settle window, DefaultDebounce when zero.
	Debounce time.Duration
	// PerFile debounces each path separately instead of sharing one timer.
	PerFile bool
	// Ignore filters raw events, DefaultIgnore when nil.
	Ignore Filter
	// Clock is the time source, the real clock when nil.
	Clock clockwork.Clock
	// Log receives watcher diagnostics, slog.Default() when nil.
	Log *slog.Logger
}

// Watcher watches Root recursively, falling back to watching only the root
// directory when a recursive watch cannot be established.
type Watcher struct {
	root    string
	window  time.Duration
	perFile bool
	ignore  Filter
	clock   clockwork.Clock
	log     *slog.Logger
	events  chan Event

	// add registers a single directory with the OS watcher.
	add func(fsw *fsnotify.Watcher, dir string) error

	mu        sync.Mutex
	state     State
	fsw       *fsnotify.Watcher
	recursive bool
	done      chan struct{}

	// gen invalidates timers that were stopped too late to prevent firing.
	gen   uint64
	timer clockwork.Timer
	last  string
	files map[string]*pending
}

type pending struct {
	gen   uint64
	timer clockwork.Timer
}

// New creates a stopped watcher.
func New(config Config) *Watcher {
	root := config.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.Ignore == nil {
		config.Ignore = DefaultIgnore
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Log == nil {
		config.Log = slog.Default()
	}

	return &Watcher{
		root:    root,
		window:  config.Debounce,
		perFile: config.PerFile,
		ignore:  config.Ignore,
		clock:   config.Clock,
		log:     config.Log,
		events:  make(chan Event, 16),
		add:     (*fsnotify.Watcher).Add,
		files:   map[string]*pending{},
	}
}

// Events delivers debounced changes. The channel is never closed.
func (w *Watcher) Events() <-chan Event { return w.events }

// Root returns the absolute watched directory.
func (w *Watcher) Root() string { return w.root }

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Recursive reports whether subdirectories are being observed.
func (w *Watcher) Recursive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.recursive
}

// Start begins watching. It does nothing unless the watcher is stopped.
// When the root is missing the error is logged and returned, and the
// watcher stays stopped.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Stopped {
		return nil
	}
	w.state = Starting

	fsw, recursive, err := w.open()
	if err != nil {
		w.state = Stopped
		w.log.Error("unable to watch", "root", w.root, "err", err)
		return err
	}

	w.fsw = fsw
	w.recursive = recursive
	w.done = make(chan struct{})
	w.state = Watching

	go w.run(fsw, w.done)

	w.log.Info("watching for changes", "root", w.root, "recursive", recursive)
	return nil
}

// Stop releases the OS watch and cancels any pending notification.
// It is safe to call multiple times.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Stopped {
		return
	}

	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	for path, p := range w.files {
		p.timer.Stop()
		delete(w.files, path)
	}

	close(w.done)
	if err := w.fsw.Close(); err != nil {
		w.log.Warn("closing watcher", "root", w.root, "err", err)
	}
	w.fsw = nil
	w.recursive = false
	w.state = Stopped
}

func (w *Watcher) open() (*fsnotify.Watcher, bool, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("%w: %s", ErrRootMissing, w.root)
		}
		return nil, false, fmt.Errorf("stat %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return nil, false, fmt.Errorf("watch root %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, false, fmt.Errorf("create watcher: %w", err)
	}

	if err := w.addTree(fsw, w.root); err != nil {
		w.log.Warn("recursive watch unavailable, changes in subdirectories will not be observed",
			"root", w.root, "err", err)
		for _, path := range fsw.WatchList() {
			_ = fsw.Remove(path)
		}
		if err := w.add(fsw, w.root); err != nil {
			_ = fsw.Close()
			return nil, false, fmt.Errorf("watch %s: %w", w.root, err)
		}
		return fsw, false, nil
	}

	return fsw, true, nil
}

// addTree adds dir and every non-ignored directory below it. Directories
// below dir that cannot be read or vanish while walking are skipped.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.skipped(path, err)
			if d != nil && !d.IsDir() {
				return nil
			}
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && rel != "." && w.ignore(rel) {
			return filepath.SkipDir
		}
		if err := w.add(fsw, path); err != nil {
			if path != dir && (errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist)) {
				w.skipped(path, err)
				return filepath.SkipDir
			}
			return err
		}
		return nil
	})
}

func (w *Watcher) skipped(path string, err error) {
	rel, _ := w.relative(path)
	w.log.Warn("not watching directory", "path", rel, "err", err)
}

func (w *Watcher) run(fsw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", "root", w.root, "err", err)
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	// permission changes do not alter content
	if event.Op == fsnotify.Chmod {
		return
	}

	rel, ok := w.relative(event.Name)
	if !ok || rel == "." {
		return
	}
	if w.ignore(rel) {
		return
	}

	if event.Has(fsnotify.Create) && w.Recursive() {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.log.Warn("unable to watch new directory", "path", rel, "err", err)
			}
		}
	}

	w.schedule(rel)
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// schedule (re)starts the debounce timer for an accepted raw event.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Watching {
		return
	}

	w.gen++
	gen := w.gen

	if w.perFile {
		p, ok := w.files[path]
		if !ok {
			p = &pending{}
			w.files[path] = p
		} else {
			p.timer.Stop()
		}
		p.gen = gen
		p.timer = w.clock.AfterFunc(w.window, func() { w.fireFile(path, gen) })
		return
	}

	w.last = path
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.window, func() { w.fire(gen) })
}

func (w *Watcher) fire(gen uint64) {
	w.mu.Lock()
	if w.state != Watching || gen != w.gen {
		w.mu.Unlock()
		return
	}
	path, done := w.last, w.done
	w.timer = nil
	w.mu.Unlock()

	w.emit(path, done)
}

func (w *Watcher) fireFile(path string, gen uint64) {
	w.mu.Lock()
	p, ok := w.files[path]
	if w.state != Watching || !ok || p.gen != gen {
		w.mu.Unlock()
		return
	}
	delete(w.files, path)
	done := w.done
	w.mu.Unlock()

	w.emit(path, done)
}

func (w *Watcher) emit(path string, done chan struct{}) {
	w.log.Info("file changed", "path", path)
	select {
	case w.events <- Event{Path: path}:
	case <-done:
	}
}
