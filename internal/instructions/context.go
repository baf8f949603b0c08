// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"slices"
	"sync"

	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// Entry is one instruction file in an AttachedContext.
	Entry struct {
		URI uri.URI
		// Reason explains why the file was attached. Empty for files the
		// caller attached explicitly.
		Reason string
		// Description is a short human-readable summary, when known.
		Description string
		// Automatic is set for files added by Collect.
		Automatic bool
	}

	// AttachedContext is the working set Collect reads and extends: plain
	// files the task is about and the instruction files already included.
	// Methods are safe for concurrent use.
	AttachedContext struct {
		mu           sync.RWMutex
		files        []uri.URI
		fileSet      map[uri.URI]struct{}
		instructions []Entry
		instSet      map[uri.URI]struct{}
		listing      string
	}
)

// NewAttachedContext returns a context seeded with the given plain files.
func NewAttachedContext(files ...uri.URI) *AttachedContext {
	ac := &AttachedContext{
		fileSet: make(map[uri.URI]struct{}),
		instSet: make(map[uri.URI]struct{}),
	}
	for _, f := range files {
		ac.AddFile(f)
	}
	return ac
}

// AddFile adds a plain file. It reports false when u was already present.
func (ac *AttachedContext) AddFile(u uri.URI) bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if _, ok := ac.fileSet[u]; ok {
		return false
	}
	ac.fileSet[u] = struct{}{}
	ac.files = append(ac.files, u)
	return true
}

// AddInstruction adds an instruction entry. The first entry for a URI wins;
// AddInstruction reports false for later ones.
func (ac *AttachedContext) AddInstruction(e Entry) bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if _, ok := ac.instSet[e.URI]; ok {
		return false
	}
	ac.instSet[e.URI] = struct{}{}
	ac.instructions = append(ac.instructions, e)
	return true
}

// HasInstruction reports whether u is in the instruction set.
func (ac *AttachedContext) HasInstruction(u uri.URI) bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	_, ok := ac.instSet[u]
	return ok
}

// Files returns the plain files in insertion order.
func (ac *AttachedContext) Files() []uri.URI {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return slices.Clone(ac.files)
}

// Instructions returns the instruction entries in insertion order.
func (ac *AttachedContext) Instructions() []Entry {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return slices.Clone(ac.instructions)
}

// InstructionURIs returns the URIs of Instructions.
func (ac *AttachedContext) InstructionURIs() []uri.URI {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	out := make([]uri.URI, len(ac.instructions))
	for i, e := range ac.instructions {
		out[i] = e.URI
	}
	return out
}

// Listing returns the on-demand listing built by the last Collect, or "".
func (ac *AttachedContext) Listing() string {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.listing
}

func (ac *AttachedContext) setListing(s string) {
	ac.mu.Lock()
	ac.listing = s
	ac.mu.Unlock()
}
