// SPDX-License-Identifier: MPL-2.0

// Package workspace models the set of open workspace folders and turns
// resource URIs into the short display labels used in messages.
package workspace

import (
	"path"
	"slices"
	"sync"

	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// Folder is one root of a (possibly multi-root) workspace.
	Folder struct {
		URI   uri.URI
		Name  string
		Index int
	}

	// FoldersChange describes an update to the folder list.
	FoldersChange struct {
		Added   []Folder
		Removed []Folder
	}

	// Workspace holds the open folders. It is safe for concurrent use.
	Workspace struct {
		mu        sync.RWMutex
		folders   []Folder
		authority string
		onChange  event.Emitter[FoldersChange]
	}

	// Option configures a Workspace.
	Option func(*Workspace)
)

// WithRemoteAuthority marks the workspace as running against a remote host.
// Absolute configured paths are then qualified with the authority.
func WithRemoteAuthority(authority string) Option {
	return func(w *Workspace) { w.authority = authority }
}

// New creates a workspace over the given folder roots.
func New(roots []uri.URI, opts ...Option) *Workspace {
	w := &Workspace{}
	for _, opt := range opts {
		opt(w)
	}
	w.folders = toFolders(roots)
	return w
}

func toFolders(roots []uri.URI) []Folder {
	folders := make([]Folder, 0, len(roots))
	for _, r := range roots {
		if slices.ContainsFunc(folders, func(f Folder) bool { return f.URI == r }) {
			continue
		}
		folders = append(folders, Folder{URI: r, Name: path.Base(r.Path), Index: len(folders)})
	}
	return folders
}

// Folders returns a snapshot of the open folders.
func (w *Workspace) Folders() []Folder {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.folders)
}

// RemoteAuthority returns the remote authority, or "" for a local workspace.
func (w *Workspace) RemoteAuthority() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.authority
}

// SetFolders replaces the folder list and fires OnDidChangeFolders when
// anything was added or removed.
func (w *Workspace) SetFolders(roots []uri.URI) {
	next := toFolders(roots)

	w.mu.Lock()
	prev := w.folders
	w.folders = next
	w.mu.Unlock()

	var change FoldersChange
	for _, f := range next {
		if !slices.ContainsFunc(prev, func(p Folder) bool { return p.URI == f.URI }) {
			change.Added = append(change.Added, f)
		}
	}
	for _, p := range prev {
		if !slices.ContainsFunc(next, func(f Folder) bool { return p.URI == f.URI }) {
			change.Removed = append(change.Removed, p)
		}
	}
	if len(change.Added) > 0 || len(change.Removed) > 0 {
		w.onChange.Fire(change)
	}
}

// OnDidChangeFolders fires after SetFolders changed the folder list.
func (w *Workspace) OnDidChangeFolders() event.Event[FoldersChange] {
	return w.onChange.Event()
}

// FolderFor returns the innermost folder containing u.
func (w *Workspace) FolderFor(u uri.URI) (Folder, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var (
		best  Folder
		found bool
	)
	for _, f := range w.folders {
		if u.IsEqualOrParent(f.URI) && (!found || len(f.URI.Path) > len(best.URI.Path)) {
			best, found = f, true
		}
	}
	return best, found
}

// Contains reports whether u lies inside one of the folders.
func (w *Workspace) Contains(u uri.URI) bool {
	_, ok := w.FolderFor(u)
	return ok
}

// Label returns the display path of u: relative to its folder (prefixed by
// the folder name in multi-root workspaces), or the absolute path when u is
// outside the workspace.
func (w *Workspace) Label(u uri.URI) string {
	f, ok := w.FolderFor(u)
	if !ok {
		return u.Path
	}
	rel, _ := u.RelativeTo(f.URI)

	w.mu.RLock()
	multi := len(w.folders) > 1
	w.mu.RUnlock()

	switch {
	case multi && rel == "":
		return f.Name
	case multi:
		return f.Name + "/" + rel
	case rel == "":
		return "."
	default:
		return rel
	}
}
