// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a gather when its inputs change.
//
// A Watcher monitors a set of files and directories: the discovery paths and
// local package sources of a gather configuration. Directories are watched
// recursively. Events are coalesced over a debounce window so that one burst
// of edits triggers one callback with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last event before the
// callback fires. Editors commonly write a temp file then rename it.
const defaultDebounce = 500 * time.Millisecond

// defaultIgnores are path patterns, relative to a watched directory, that
// never trigger a callback.
var defaultIgnores = []string{
	".git",
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/4913",
}

// ErrNothingToWatch is returned by New when none of the configured paths exist.
var ErrNothingToWatch = errors.New("watch: no existing path to watch")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Paths are the files and directories to watch. Directories are
		// watched recursively; missing paths are logged and skipped.
		Paths []string

		// Exclude lists directories whose content never triggers a callback,
		// such as the gather destination when it lies below a watched path.
		Exclude []string

		// Ignore are additional doublestar patterns, matched against the
		// path relative to the watched directory, merged with the defaults.
		Ignore []string

		// Debounce is the quiet period before the callback fires. Zero or
		// negative values fall back to defaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated absolute paths that
		// changed. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives watcher diagnostics. nil discards them.
		Logger *log.Logger
	}

	// Watcher monitors paths and fires a debounced callback when they change.
	// Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		dirs     []string
		files    []string
		exclude  []string
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		started  atomic.Bool
	}
)

// New creates a Watcher and registers every configured path with fsnotify.
// Files are watched through their parent directory.
func New(cfg Config) (*Watcher, error) {
	if err := validatePatterns(cfg.Ignore); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		logger:   logger,
		debounce: debounce,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
	}
	for _, p := range cfg.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			w.exclude = append(w.exclude, abs)
		}
	}

	if err := w.addPaths(cfg.Paths); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("Closing watcher after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Dirs returns the watched root directories.
func (w *Watcher) Dirs() []string { return slices.Clone(w.dirs) }

// Files returns the individually watched files.
func (w *Watcher) Files() []string { return slices.Clone(w.files) }

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks. A
// callback never overlaps a previous one that is still running; events that
// arrive meanwhile are delivered once it finishes.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("Gather still running, postponing")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("Re-run failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("Closing watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if !w.relevant(evt.Name) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			w.logger.Debug("Change detected", "path", evt.Name, "op", evt.Op.String())

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("Watcher error", "err", err)
		}
	}
}

func (w *Watcher) addPaths(paths []string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("watch: resolve %q: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			w.logger.Warn("Not watching missing path", "path", p)
			continue
		}
		if info.IsDir() {
			if slices.Contains(w.dirs, abs) {
				continue
			}
			if err := w.addTree(abs); err != nil {
				return err
			}
			w.dirs = append(w.dirs, abs)
			continue
		}
		if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch: add directory of %q: %w", p, err)
		}
		w.files = append(w.files, abs)
	}
	if len(w.dirs) == 0 && len(w.files) == 0 {
		return ErrNothingToWatch
	}
	return nil
}

// addTree registers root and every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Skipping inaccessible path", "path", path, "err", err)
			return nil //nolint:nilerr // inaccessible subtrees are not watched
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipped(root, path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", root, err)
	}
	return nil
}

// maybeAddDir extends a recursive watch to a directory created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	for _, root := range w.dirs {
		if within(root, path) && !w.skipped(root, path) {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("Cannot watch new directory", "path", path, "err", err)
			}
			return
		}
	}
}

// relevant reports whether an event on path should trigger a re-run.
func (w *Watcher) relevant(path string) bool {
	if slices.Contains(w.files, path) {
		return true
	}
	for _, root := range w.dirs {
		if within(root, path) && path != root {
			return !w.skipped(root, path)
		}
	}
	return false
}

// skipped reports whether path below root is excluded or ignored.
func (w *Watcher) skipped(root, path string) bool {
	for _, ex := range w.exclude {
		if path == ex || within(ex, path) {
			return true
		}
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	return matchAny(w.ignores, filepath.ToSlash(rel))
}

func within(dir, path string) bool {
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}
	return nil
}
