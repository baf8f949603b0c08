// SPDX-License-Identifier: MPL-2.0

package prompts

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// Contribution describes a file contributed by an extension.
	Contribution struct {
		URI         uri.URI
		Category    promptfile.Category
		Name        string
		Description string
		ExtensionID string
	}

	// Registration is the handle of a registered contribution.
	Registration struct {
		// ID is empty for the inert handle of a duplicate registration.
		ID string

		once    sync.Once
		dispose func()
	}
)

// Dispose removes the contribution. It is safe to call more than once.
func (r *Registration) Dispose() {
	if r == nil || r.dispose == nil {
		return
	}
	r.once.Do(r.dispose)
}

// RegisterContributedFile adds an extension-contributed file. Registering a
// URI that is already registered for the category is a no-op that returns
// an inert handle; the first registration wins. The file is marked
// read-only on a best-effort basis.
func (s *Service) RegisterContributedFile(ctx context.Context, c Contribution) (*Registration, error) {
	if err := c.Category.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	bucket := s.contributions[c.Category]
	if bucket == nil {
		bucket = make(map[uri.URI]promptfile.Descriptor)
		s.contributions[c.Category] = bucket
	}
	if _, dup := bucket[c.URI]; dup {
		s.mu.Unlock()
		s.logger.Debug("contribution already registered", "uri", c.URI.String(), "extension", c.ExtensionID)
		return &Registration{}, nil
	}
	bucket[c.URI] = promptfile.Descriptor{
		URI:         c.URI,
		Storage:     promptfile.StorageExtension,
		Category:    c.Category,
		Name:        c.Name,
		Description: c.Description,
		ExtensionID: c.ExtensionID,
	}
	s.mu.Unlock()

	if err := s.fs.UpdateReadonly(ctx, c.URI, true); err != nil {
		s.logger.Warn("failed to mark contributed file read-only", "uri", c.URI.String(), "error", err)
	}
	s.flushContributions(c.Category)

	return &Registration{
		ID: uuid.NewString(),
		dispose: func() {
			s.mu.Lock()
			delete(s.contributions[c.Category], c.URI)
			s.mu.Unlock()
			s.flushContributions(c.Category)
		},
	}, nil
}

// contributed returns the registered contributions of cat sorted by URI.
func (s *Service) contributed(cat promptfile.Category) []promptfile.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]promptfile.Descriptor, 0, len(s.contributions[cat]))
	for _, d := range s.contributions[cat] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI.String() < out[j].URI.String() })
	return out
}

func (s *Service) flushContributions(cat promptfile.Category) {
	s.files[cat].Refresh()
	switch cat {
	case promptfile.CategoryAgent:
		s.agents.Refresh()
	case promptfile.CategoryPrompt:
		s.commands.Refresh()
	}
}
