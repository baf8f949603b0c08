// SPDX-License-Identifier: MPL-2.0

package documents

import (
	"log/slog"
	"sync"

	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// Change reports an edit to (or the closing of) an open prompt file.
	Change struct {
		URI      uri.URI
		Category promptfile.Category
	}

	// Tracker holds one content subscription per open document whose
	// language is a prompt file category, and emits a Change for every edit.
	Tracker struct {
		reg    *Registry
		logger *slog.Logger

		mu      sync.Mutex
		tracked map[uri.URI]func()
		subs    []func()
		closed  bool

		onChange event.Emitter[Change]
	}
)

// NewTracker starts tracking the documents already open in reg and every
// document opened later. Call Close to release its subscriptions.
func NewTracker(reg *Registry, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{reg: reg, logger: logger, tracked: make(map[uri.URI]func())}

	t.subs = []func(){
		reg.OnDidOpen()(t.add),
		reg.OnDidChangeLanguage()(func(c LanguageChange) {
			t.remove(c.Document.URI, c.OldLanguage)
			t.add(c.Document)
		}),
		reg.OnDidClose()(func(s Snapshot) {
			t.remove(s.URI, s.LanguageID)
		}),
	}
	for _, s := range reg.All() {
		t.add(s)
	}
	return t
}

// OnDidChange fires for every edit of a tracked document, and when a
// tracked document stops being tracked.
func (t *Tracker) OnDidChange() event.Event[Change] {
	return t.onChange.Event()
}

// Tracked reports whether u is currently tracked.
func (t *Tracker) Tracked(u uri.URI) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tracked[u]
	return ok
}

func (t *Tracker) add(s Snapshot) {
	cat, ok := promptfile.CategoryForLanguageID(s.LanguageID)
	if !ok {
		return
	}
	ev, open := t.reg.OnDidChangeDocument(s.URI)
	if !open {
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if prev, dup := t.tracked[s.URI]; dup {
		prev()
	}
	t.tracked[s.URI] = ev(func(Snapshot) {
		t.onChange.Fire(Change{URI: s.URI, Category: cat})
	})
	t.mu.Unlock()
	t.logger.Debug("tracking prompt document", "uri", s.URI.String(), "category", cat)
}

// remove tears down the subscription of u and reports it as changed when
// languageID was a tracked category.
func (t *Tracker) remove(u uri.URI, languageID string) {
	t.mu.Lock()
	unsub, ok := t.tracked[u]
	if ok {
		delete(t.tracked, u)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	unsub()
	if cat, isPrompt := promptfile.CategoryForLanguageID(languageID); isPrompt {
		t.onChange.Fire(Change{URI: u, Category: cat})
	}
}

// Close releases every subscription.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	tracked := t.tracked
	t.tracked = make(map[uri.URI]func())
	subs := t.subs
	t.mu.Unlock()

	for _, s := range subs {
		s()
	}
	for _, unsub := range tracked {
		unsub()
	}
}
