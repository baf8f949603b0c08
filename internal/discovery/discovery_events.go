// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/invowk/promptscan/internal/config"
	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/internal/workspace"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// FilesUpdatedEvent returns a change source that fires when the file list
// of cat may have changed: a relevant setting changed, the workspace folders
// changed, or a matching file changed below one of the category's roots or
// the profile folder. Each subscription arms its own filesystem watches,
// which are re-armed when the roots move and released on unsubscribe. A
// root that does not exist yet is watched through its nearest existing
// ancestor until it appears.
func (d *Discovery) FilesUpdatedEvent(cat promptfile.Category) event.Event[struct{}] {
	return func(listener func(struct{})) func() {
		w := &rootWatcher{d: d, cat: cat}
		w.arm()

		keys := configKeys(cat)
		unsubs := []func(){
			d.cfg.OnDidChange()(func(e config.ChangeEvent) {
				if slices.ContainsFunc(keys, e.Affects) {
					w.arm()
					listener(struct{}{})
				}
			}),
			d.ws.OnDidChangeFolders()(func(workspace.FoldersChange) {
				w.arm()
				listener(struct{}{})
			}),
			d.fs.OnDidFilesChange()(func(c fsys.FileChanges) {
				relevant, moved := w.classify(c)
				if moved {
					w.arm()
				}
				if relevant || moved {
					listener(struct{}{})
				}
			}),
		}

		var once sync.Once
		return func() {
			once.Do(func() {
				for _, u := range unsubs {
					u()
				}
				w.release()
			})
		}
	}
}

type (
	// rootWatcher holds the watches armed for one subscription.
	rootWatcher struct {
		d   *Discovery
		cat promptfile.Category

		armMu sync.Mutex

		mu    sync.Mutex
		roots []watchedRoot
		stops []func()
	}

	// watchedRoot is a listing root and whether it existed when armed.
	watchedRoot struct {
		SourceRoot
		lenient bool
		missing bool
	}
)

func (w *rootWatcher) arm() {
	w.armMu.Lock()
	defer w.armMu.Unlock()

	ctx := context.Background()
	res := w.d.SourceRoots(w.cat)
	exclude := w.d.cfg.Get().Search.Exclude

	roots := make([]watchedRoot, 0, len(res.Roots)+1)
	var stops []func()
	watchOne := func(r SourceRoot, lenient bool) {
		wr := watchedRoot{SourceRoot: r, lenient: lenient && w.cat == promptfile.CategoryAgent}
		target, recursive := r.Dir, r.Pattern != ""
		if !w.d.fs.Exists(ctx, r.Dir) {
			wr.missing = true
			target, recursive = w.nearestExisting(ctx, r.Dir), false
		}
		roots = append(roots, wr)
		if target.IsZero() {
			return
		}
		stop, err := w.d.fs.Watch(target, fsys.WatchOptions{Recursive: recursive, Excludes: exclude})
		if err != nil {
			w.d.logger.Debug("cannot watch source root", "path", target.String(), "error", err)
			return
		}
		stops = append(stops, stop)
	}
	for _, r := range res.Roots {
		watchOne(r, true)
	}
	if !w.d.profileDir.IsZero() {
		watchOne(SourceRoot{Dir: w.d.profileDir}, false)
	}

	w.mu.Lock()
	old := w.stops
	w.roots, w.stops = roots, stops
	w.mu.Unlock()
	for _, stop := range old {
		stop()
	}
}

// nearestExisting returns the closest existing ancestor of u, or the zero
// URI when none exists.
func (w *rootWatcher) nearestExisting(ctx context.Context, u uri.URI) uri.URI {
	for {
		parent := u.Dir()
		if parent == u {
			return uri.URI{}
		}
		if w.d.fs.Exists(ctx, parent) {
			return parent
		}
		u = parent
	}
}

// classify reports whether c touches a file the listing can contain, and
// whether a root appeared or vanished so the watches need re-arming.
func (w *rootWatcher) classify(c fsys.FileChanges) (relevant, moved bool) {
	w.mu.Lock()
	roots := slices.Clone(w.roots)
	w.mu.Unlock()

	structural := slices.Concat(c.Added, c.Deleted)
	for _, r := range roots {
		for _, u := range structural {
			if r.Dir.IsEqualOrParent(u) || (r.missing && u.IsEqualOrParent(r.Dir)) {
				return true, true
			}
		}
		if r.missing {
			continue
		}
		for _, u := range c.Added {
			relevant = relevant || r.contains(w.cat, u, true)
		}
		for _, u := range c.Deleted {
			relevant = relevant || r.contains(w.cat, u, true)
		}
		for _, u := range c.Updated {
			relevant = relevant || r.contains(w.cat, u, false)
		}
	}
	return relevant, false
}

// contains reports whether a change to u can alter the files listed from
// r. Under a glob root, an added or removed entry without an extension is
// taken to be a folder that may hold matching files.
func (r watchedRoot) contains(cat promptfile.Category, u uri.URI, structural bool) bool {
	rel, ok := u.RelativeTo(r.Dir)
	if !ok {
		return false
	}
	if rel == "" {
		return true
	}
	if r.Pattern == "" {
		return !strings.Contains(rel, "/") && cat.MatchesFileName(rel, r.lenient)
	}
	if matched, _ := doublestar.Match(r.Pattern, rel); matched && cat.MatchesFileName(path.Base(rel), false) {
		return true
	}
	return structural && path.Ext(rel) == ""
}

func (w *rootWatcher) release() {
	w.mu.Lock()
	stops := w.stops
	w.stops = nil
	w.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}
