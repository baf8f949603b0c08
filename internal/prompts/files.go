// SPDX-License-Identifier: MPL-2.0

package prompts

import (
	"context"
	"slices"

	"github.com/invowk/promptscan/pkg/promptfile"
)

// ListPromptFiles returns the files of cat across every storage tier. The
// result is cached while anyone listens for changes.
func (s *Service) ListPromptFiles(ctx context.Context, cat promptfile.Category) ([]promptfile.Descriptor, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	files, err := s.files[cat].Get(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(files), nil
}

// ListPromptFilesForStorage returns the files of cat in one storage tier.
// It is not cached.
func (s *Service) ListPromptFilesForStorage(ctx context.Context, cat promptfile.Category, storage promptfile.Storage) ([]promptfile.Descriptor, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if storage == promptfile.StorageExtension {
		return s.contributed(cat), nil
	}
	return s.disc.ListFiles(ctx, cat, storage)
}

func (s *Service) computePromptFiles(ctx context.Context, cat promptfile.Category) ([]promptfile.Descriptor, error) {
	local, err := s.disc.ListFiles(ctx, cat, promptfile.StorageLocal)
	if err != nil {
		return nil, err
	}
	user, err := s.disc.ListFiles(ctx, cat, promptfile.StorageUser)
	if err != nil {
		return nil, err
	}
	out := make([]promptfile.Descriptor, 0, len(local)+len(user))
	out = append(out, local...)
	out = append(out, user...)
	out = append(out, s.contributed(cat)...)
	return out, nil
}

// SourceFolders returns the folders new files of cat can be created in: the
// configured workspace folders followed by the user profile folder.
func (s *Service) SourceFolders(cat promptfile.Category) []promptfile.Descriptor {
	var out []promptfile.Descriptor
	for _, u := range s.disc.ConfigBasedSourceFolders(cat) {
		out = append(out, promptfile.Descriptor{URI: u, Storage: promptfile.StorageLocal, Category: cat})
	}
	return append(out, promptfile.Descriptor{
		URI:      s.disc.ProfileDir(),
		Storage:  promptfile.StorageUser,
		Category: cat,
	})
}

// PromptLocationLabel returns a short human-readable origin of d.
func (s *Service) PromptLocationLabel(d promptfile.Descriptor) string {
	switch d.Storage {
	case promptfile.StorageUser:
		return "User Data"
	case promptfile.StorageExtension:
		return "Extension: " + d.ExtensionID
	default:
		return s.ws.Label(d.URI)
	}
}
