// SPDX-License-Identifier: MPL-2.0

// Package documents tracks in-memory (open) documents and reports edits to
// the ones that are prompt files.
package documents

import (
	"errors"
	"slices"
	"sync"

	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/pkg/uri"
)

// ErrNotOpen is returned for operations on a document that is not open.
var ErrNotOpen = errors.New("document not open")

type (
	// Snapshot is an immutable view of an open document.
	Snapshot struct {
		URI        uri.URI
		LanguageID string
		Version    int
		Content    string
	}

	// LanguageChange reports a document whose language id changed.
	LanguageChange struct {
		Document    Snapshot
		OldLanguage string
	}

	// Registry holds the open documents. It is safe for concurrent use.
	Registry struct {
		mu   sync.RWMutex
		docs map[uri.URI]*entry

		onOpen     event.Emitter[Snapshot]
		onClose    event.Emitter[Snapshot]
		onLanguage event.Emitter[LanguageChange]
	}

	entry struct {
		snap    Snapshot
		content event.Emitter[Snapshot]
	}
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{docs: make(map[uri.URI]*entry)}
}

// Open adds a document at version 1. Opening an already open document
// replaces its content and bumps the version.
func (r *Registry) Open(u uri.URI, languageID, content string) Snapshot {
	r.mu.Lock()
	if e, ok := r.docs[u]; ok {
		r.mu.Unlock()
		if e.snap.LanguageID != languageID {
			_, _ = r.SetLanguage(u, languageID)
		}
		snap, _ := r.Update(u, content)
		return snap
	}
	snap := Snapshot{URI: u, LanguageID: languageID, Version: 1, Content: content}
	r.docs[u] = &entry{snap: snap}
	r.mu.Unlock()

	r.onOpen.Fire(snap)
	return snap
}

// Update replaces the content of an open document and bumps its version.
func (r *Registry) Update(u uri.URI, content string) (Snapshot, error) {
	r.mu.Lock()
	e, ok := r.docs[u]
	if !ok {
		r.mu.Unlock()
		return Snapshot{}, ErrNotOpen
	}
	e.snap.Content = content
	e.snap.Version++
	snap := e.snap
	r.mu.Unlock()

	e.content.Fire(snap)
	return snap, nil
}

// SetLanguage changes the language id of an open document.
func (r *Registry) SetLanguage(u uri.URI, languageID string) (Snapshot, error) {
	r.mu.Lock()
	e, ok := r.docs[u]
	if !ok {
		r.mu.Unlock()
		return Snapshot{}, ErrNotOpen
	}
	old := e.snap.LanguageID
	if old == languageID {
		snap := e.snap
		r.mu.Unlock()
		return snap, nil
	}
	e.snap.LanguageID = languageID
	snap := e.snap
	r.mu.Unlock()

	r.onLanguage.Fire(LanguageChange{Document: snap, OldLanguage: old})
	return snap, nil
}

// Close removes a document. Closing an unknown document is a no-op.
func (r *Registry) Close(u uri.URI) {
	r.mu.Lock()
	e, ok := r.docs[u]
	if ok {
		delete(r.docs, u)
	}
	r.mu.Unlock()
	if ok {
		r.onClose.Fire(e.snap)
	}
}

// Get returns the snapshot of an open document.
func (r *Registry) Get(u uri.URI) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.docs[u]
	if !ok {
		return Snapshot{}, false
	}
	return e.snap, true
}

// All returns the open documents ordered by uri.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.docs))
	for _, e := range r.docs {
		out = append(out, e.snap)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b Snapshot) int {
		switch {
		case a.URI.String() < b.URI.String():
			return -1
		case a.URI.String() > b.URI.String():
			return 1
		}
		return 0
	})
	return out
}

// OnDidOpen fires after a document was opened.
func (r *Registry) OnDidOpen() event.Event[Snapshot] { return r.onOpen.Event() }

// OnDidClose fires after a document was closed.
func (r *Registry) OnDidClose() event.Event[Snapshot] { return r.onClose.Event() }

// OnDidChangeLanguage fires after a document's language id changed.
func (r *Registry) OnDidChangeLanguage() event.Event[LanguageChange] { return r.onLanguage.Event() }

// OnDidChangeDocument subscribes to edits of a single document. ok is
// false when u is not open.
func (r *Registry) OnDidChangeDocument(u uri.URI) (ev event.Event[Snapshot], ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.docs[u]
	if !ok {
		return nil, false
	}
	return e.content.Event(), true
}
