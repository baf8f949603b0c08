// SPDX-License-Identifier: MPL-2.0

// Package watch reports coalesced filesystem changes under a root.
//
// A Watcher monitors a directory (optionally recursively) or a single file
// and hands batches of Events to a callback once the debounce window closes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 50 * time.Millisecond

// defaultIgnores are never reported, whatever the caller excludes.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// ErrAlreadyRunning is returned when Run is called a second time.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Op classifies a change.
	Op int

	// Event is a single coalesced change. Path is absolute.
	Event struct {
		Path string
		Op   Op
	}

	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the directory or file to watch. It must exist.
		Root string

		// Recursive extends the watch to every non-excluded subdirectory,
		// including ones created later. Ignored when Root is a file.
		Recursive bool

		// Excludes are doublestar patterns matched against paths relative
		// to Root. They are merged with the built-in ignores.
		Excludes []string

		// Debounce is the quiet period before OnChange fires. Zero or
		// negative values fall back to defaultDebounce.
		Debounce time.Duration

		// OnChange receives each batch sorted by path. A nil callback is a
		// no-op.
		OnChange func(ctx context.Context, events []Event)

		Logger *slog.Logger
	}

	// Watcher monitors Root and fires debounced batches of Events.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		debounce time.Duration
		root     string
		file     string // non-empty when Root is a regular file
		logger   *slog.Logger
		started  atomic.Bool
	}
)

const (
	Created Op = iota + 1
	Changed
	Deleted
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// merge folds a later op into an earlier pending one.
func (o Op) merge(next Op) Op {
	switch {
	case o == 0:
		return next
	case o == Created && next == Changed:
		return Created
	case o == Created && next == Deleted:
		return Deleted
	case o == Deleted && next == Created:
		return Changed
	default:
		return next
	}
}

// New validates cfg and registers the watch roots with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("watch: empty root")
	}
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: stat root: %w", err)
	}
	if err := validatePatterns(cfg.Excludes); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Excludes...),
		debounce: debounce,
		root:     abs,
		logger:   logger,
	}

	if !info.IsDir() {
		w.file = abs
		w.root = filepath.Dir(abs)
		err = fsw.Add(w.root)
	} else if cfg.Recursive {
		err = w.addDirectories()
	} else {
		err = fsw.Add(w.root)
	}
	if err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "error", closeErr)
		}
		return nil, fmt.Errorf("watch: add %q: %w", abs, err)
	}
	return w, nil
}

// Run blocks until ctx is cancelled. It returns nil on cancellation and an
// error when fsnotify reports an unrecoverable condition.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]Op)
		timer   *time.Timer
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		events := make([]Event, 0, len(pending))
		for p, op := range pending {
			events = append(events, Event{Path: p, Op: op})
		}
		clear(pending)
		mu.Unlock()

		slices.SortFunc(events, func(a, b Event) int {
			switch {
			case a.Path < b.Path:
				return -1
			case a.Path > b.Path:
				return 1
			}
			return 0
		})
		if w.cfg.OnChange != nil {
			w.cfg.OnChange(ctx, events)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("watch: close fsnotify", "error", closeErr)
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
			op := classify(evt)
			if op == 0 || !w.accepts(evt.Name) {
				continue
			}
			if op == Created && w.cfg.Recursive && w.file == "" {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[evt.Name] = pending[evt.Name].merge(op)
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
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watch: fsnotify error", "error", err)
		}
	}
}

func classify(evt fsnotify.Event) Op {
	switch {
	case evt.Has(fsnotify.Create):
		return Created
	case evt.Has(fsnotify.Remove), evt.Has(fsnotify.Rename):
		return Deleted
	case evt.Has(fsnotify.Write), evt.Has(fsnotify.Chmod):
		return Changed
	default:
		return 0
	}
}

// accepts reports whether an event for path should be reported.
func (w *Watcher) accepts(path string) bool {
	if w.file != "" {
		return path == w.file
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	if !w.cfg.Recursive && filepath.Dir(rel) != "." {
		return false
	}
	return !w.isIgnored(rel)
}

// addDirectories registers every non-excluded directory under root.
func (w *Watcher) addDirectories() error {
	return filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("watch: skipping inaccessible path", "path", path, "error", walkErr)
			return nil //nolint:nilerr // inaccessible subtrees are not watched
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil //nolint:nilerr // unreachable for paths under root
		}
		if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("watch: add new directory", "path", path, "error", addErr)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
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
			return fmt.Errorf("watch: invalid exclude pattern %q", pat)
		}
	}
	return nil
}
