// SPDX-License-Identifier: MPL-2.0

package fsys

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/internal/watch"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// Local serves file and remote-scheme URIs from an afero filesystem.
	// Remote URIs are read at the same path, as if the remote host were
	// mounted locally. Watches use fsnotify on an OS-backed filesystem and
	// are inert otherwise; callers publish changes with NotifyChanged.
	Local struct {
		fs     afero.Fs
		logger *slog.Logger

		changes event.Emitter[FileChanges]

		mu      sync.Mutex
		watches map[watchKey]*watchEntry
	}

	// Option configures a Local filesystem.
	Option func(*Local)

	watchKey struct {
		path      string
		recursive bool
	}

	watchEntry struct {
		refs   int
		cancel context.CancelFunc
	}
)

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(fs *Local) { fs.logger = l }
}

// New wraps an afero filesystem.
func New(afs afero.Fs, opts ...Option) *Local {
	l := &Local{
		fs:      afs,
		logger:  slog.Default(),
		watches: make(map[watchKey]*watchEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewOS returns a Local over the host filesystem.
func NewOS(opts ...Option) *Local {
	return New(afero.NewOsFs(), opts...)
}

func osPath(u uri.URI) (string, error) {
	if u.Scheme != uri.SchemeFile && u.Scheme != uri.SchemeRemote {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u)
	}
	return u.FSPath(), nil
}

func notFound(u uri.URI, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, u)
	}
	return err
}

// Resolve stats u and lists its children when it is a directory.
func (l *Local) Resolve(ctx context.Context, u uri.URI) (*Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := osPath(u)
	if err != nil {
		return nil, err
	}
	info, err := l.fs.Stat(p)
	if err != nil {
		return nil, notFound(u, err)
	}
	st := &Stat{URI: u, IsFile: info.Mode().IsRegular(), IsDirectory: info.IsDir()}
	if !info.IsDir() {
		return st, nil
	}

	entries, err := afero.ReadDir(l.fs, p)
	if err != nil {
		return nil, notFound(u, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		st.Children = append(st.Children, Stat{
			URI:         u.JoinPath(e.Name()),
			IsFile:      e.Mode().IsRegular(),
			IsDirectory: e.IsDir(),
		})
	}
	return st, nil
}

// ReadFile returns the content of u.
func (l *Local) ReadFile(ctx context.Context, u uri.URI) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := osPath(u)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(l.fs, p)
	if err != nil {
		return nil, notFound(u, err)
	}
	return data, nil
}

// ResolveAll stats every uri. Children are not listed.
func (l *Local) ResolveAll(ctx context.Context, uris []uri.URI) []ResolveResult {
	out := make([]ResolveResult, 0, len(uris))
	for _, u := range uris {
		res := ResolveResult{URI: u}
		if err := ctx.Err(); err != nil {
			res.Err = err
			out = append(out, res)
			continue
		}
		p, err := osPath(u)
		if err != nil {
			res.Err = err
			out = append(out, res)
			continue
		}
		info, err := l.fs.Stat(p)
		if err != nil {
			res.Err = notFound(u, err)
		} else {
			res.Stat = &Stat{URI: u, IsFile: info.Mode().IsRegular(), IsDirectory: info.IsDir()}
		}
		out = append(out, res)
	}
	return out
}

// Exists reports whether u exists.
func (l *Local) Exists(ctx context.Context, u uri.URI) bool {
	if ctx.Err() != nil {
		return false
	}
	p, err := osPath(u)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(l.fs, p)
	return err == nil && ok
}

// UpdateReadonly toggles the write bits of u.
func (l *Local) UpdateReadonly(ctx context.Context, u uri.URI, readonly bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := osPath(u)
	if err != nil {
		return err
	}
	info, err := l.fs.Stat(p)
	if err != nil {
		return notFound(u, err)
	}
	mode := info.Mode().Perm()
	if readonly {
		mode &^= 0o222
	} else {
		mode |= 0o200
	}
	if err := l.fs.Chmod(p, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", u, err)
	}
	return nil
}

// OnDidFilesChange fires for every batch of changes under an armed watch,
// and for every NotifyChanged call.
func (l *Local) OnDidFilesChange() event.Event[FileChanges] {
	return l.changes.Event()
}

// NotifyChanged publishes a batch of changes. Empty batches are dropped.
func (l *Local) NotifyChanged(c FileChanges) {
	if c.IsEmpty() {
		return
	}
	l.changes.Fire(c)
}

// Watch arms a watch on u. Watches on the same path and recursion mode are
// shared and reference counted. A missing path yields an inert watch.
func (l *Local) Watch(u uri.URI, opts WatchOptions) (func(), error) {
	p, err := osPath(u)
	if err != nil {
		return nil, err
	}
	if _, isOS := l.fs.(*afero.OsFs); !isOS {
		return func() {}, nil
	}
	if _, statErr := os.Stat(p); statErr != nil {
		return func() {}, nil
	}

	key := watchKey{path: p, recursive: opts.Recursive}
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.watches[key]; ok {
		e.refs++
		return l.release(key), nil
	}

	w, err := watch.New(watch.Config{
		Root:      p,
		Recursive: opts.Recursive,
		Excludes:  opts.Excludes,
		Logger:    l.logger,
		OnChange: func(_ context.Context, events []watch.Event) {
			l.NotifyChanged(toChanges(u, p, events))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", u, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if runErr := w.Run(ctx); runErr != nil {
			l.logger.Warn("file watch stopped", "path", p, "error", runErr)
		}
	}()
	l.watches[key] = &watchEntry{refs: 1, cancel: cancel}
	return l.release(key), nil
}

func (l *Local) release(key watchKey) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			e, ok := l.watches[key]
			if !ok {
				return
			}
			e.refs--
			if e.refs == 0 {
				e.cancel()
				delete(l.watches, key)
			}
		})
	}
}

// toChanges maps absolute OS paths back into the scheme of the watched uri.
func toChanges(root uri.URI, rootPath string, events []watch.Event) FileChanges {
	var c FileChanges
	base := root
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		base = root.Dir()
	}
	baseURI := uri.File(rootPath)
	if base != root {
		baseURI = baseURI.Dir()
	}
	for _, e := range events {
		rel, ok := uri.File(e.Path).RelativeTo(baseURI)
		if !ok {
			continue
		}
		u := base
		if rel != "" {
			u = base.JoinPath(path.Clean(rel))
		}
		switch e.Op {
		case watch.Created:
			c.Added = append(c.Added, u)
		case watch.Deleted:
			c.Deleted = append(c.Deleted, u)
		default:
			c.Updated = append(c.Updated, u)
		}
	}
	return c
}
