// SPDX-License-Identifier: MPL-2.0

// Package watch monitors a capture directory and hands new or rewritten
// capture files to a callback once writes settle.
//
// Events inside the debounce window are coalesced, so a tool that streams
// output into a file produces one callback with the final path set. The
// callback runs on its own goroutine; batches that arrive while it is busy
// are merged and delivered afterwards rather than dropped.
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
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

const defaultDebounce = 500 * time.Millisecond

// defaultIgnores are always excluded: VCS metadata, editor swap files and
// partial downloads that would be parsed half-written.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
	"**/*.part",
	"**/*.tmp",
}

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the capture directory, watched recursively. Empty means the
		// working directory.
		Dir string

		// Patterns are doublestar globs, relative to Dir, selecting capture
		// files. An empty slice accepts every non-ignored file.
		Patterns []string

		// Ignore are extra doublestar globs merged with the default ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before a batch is
		// delivered. Zero or negative values fall back to 500ms.
		Debounce time.Duration

		// ScanExisting delivers files already present in Dir as the first
		// batch.
		ScanExisting bool

		// OnCapture receives the sorted absolute paths of changed capture
		// files. Errors are logged and do not stop the watcher.
		OnCapture func(ctx context.Context, paths []string) error

		// Logger receives diagnostics. nil discards them.
		Logger *log.Logger
	}

	// Watcher delivers debounced batches of changed capture files. Run must
	// be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		debounce time.Duration
		dir      string
		logger   *log.Logger
		started  atomic.Bool
	}

	pathSet map[string]struct{}
)

// New validates cfg and registers every non-ignored directory under Dir.
func New(cfg Config) (*Watcher, error) {
	dir := cfg.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		dir = wd
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve capture directory: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("watch: capture directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", absDir)
	}

	if err := validatePatterns(cfg.Patterns, "capture"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: debounce,
		dir:      absDir,
		logger:   logger,
	}

	if err := w.walk(absDir, nil, true); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close watcher after init failure", "err", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Dir returns the absolute capture directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run blocks until ctx is cancelled. It returns nil on cancellation and an
// error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify watcher", "err", err)
		}
	}()

	batches := make(chan []string, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		return w.collect(gctx, batches)
	})
	g.Go(func() error {
		w.dispatch(gctx, batches)
		return nil
	})
	return g.Wait()
}

// collect turns filesystem events into debounced batches.
func (w *Watcher) collect(ctx context.Context, batches chan<- []string) error {
	pending := make(pathSet)
	timer := time.NewTimer(w.debounce)
	defer timer.Stop()

	if w.cfg.ScanExisting {
		if err := w.walk(w.dir, pending, false); err != nil {
			return err
		}
	}
	if len(pending) == 0 {
		timer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
				continue
			}
			relevant := false
			if w.isDir(evt.Name) {
				// Files written before the directory was registered only
				// show up in a walk.
				if evt.Has(fsnotify.Create) {
					before := len(pending)
					if err := w.walk(evt.Name, pending, true); err != nil {
						w.logger.Warn("watch new directory", "path", evt.Name, "err", err)
					}
					relevant = len(pending) != before
				}
			} else if w.wanted(evt.Name) {
				pending[evt.Name] = struct{}{}
				relevant = true
			}
			if relevant {
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := slices.Sorted(maps.Keys(pending))
			select {
			case batches <- batch:
				clear(pending)
			default:
				w.logger.Debug("capture handler busy, deferring batch", "files", len(batch))
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// dispatch runs OnCapture for each batch until batches is closed.
func (w *Watcher) dispatch(ctx context.Context, batches <-chan []string) {
	for batch := range batches {
		if ctx.Err() != nil || w.cfg.OnCapture == nil {
			continue
		}
		w.logger.Debug("capture batch ready", "files", len(batch))
		if err := w.cfg.OnCapture(ctx, batch); err != nil {
			w.logger.Error("capture handler failed", "err", err)
		}
	}
}

// walk registers directories under root with fsnotify when addDirs is set,
// and adds wanted files to pending when pending is non-nil. Unreadable
// entries are skipped.
func (w *Watcher) walk(root string, pending pathSet, addDirs bool) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // inaccessible paths are skipped
		}

		rel := w.rel(path)
		if d.IsDir() {
			if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
				return filepath.SkipDir
			}
			if addDirs {
				if err := w.fsw.Add(path); err != nil {
					return fmt.Errorf("watch: add directory %q: %w", path, err)
				}
			}
			return nil
		}

		if pending != nil && w.wanted(path) {
			pending[path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// wanted reports whether the file at path is a capture: not ignored and
// matching at least one pattern.
func (w *Watcher) wanted(path string) bool {
	rel := w.rel(path)
	if w.isIgnored(rel) {
		return false
	}
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	return matchAny(w.cfg.Patterns, rel)
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
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

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
