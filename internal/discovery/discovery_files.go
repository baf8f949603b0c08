// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"slices"

	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// ListFiles lists the files of cat in the given storage tier. A missing
// folder contributes nothing. When ctx is cancelled the result is empty and
// the error nil; callers that care check ctx.Err(). The extension tier is
// not backed by the filesystem and always yields nothing here.
func (d *Discovery) ListFiles(ctx context.Context, cat promptfile.Category, storage promptfile.Storage) ([]promptfile.Descriptor, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, nil
	}

	var uris []uri.URI
	switch storage {
	case promptfile.StorageLocal:
		uris = d.listWorkspace(ctx, cat)
	case promptfile.StorageUser:
		uris = d.listProfile(ctx, cat)
	case promptfile.StorageExtension:
		return nil, nil
	default:
		return nil, errors.New("unknown storage tier " + storage.String())
	}

	if ctx.Err() != nil {
		d.logger.Debug("listing cancelled", "category", cat, "storage", storage)
		return nil, nil
	}
	out := make([]promptfile.Descriptor, 0, len(uris))
	for _, u := range uris {
		out = append(out, promptfile.Descriptor{URI: u, Storage: storage, Category: cat})
	}
	return out, nil
}

func (d *Discovery) listWorkspace(ctx context.Context, cat promptfile.Category) []uri.URI {
	cfg := d.cfg.Get()
	res := d.SourceRoots(cat)

	var out []uri.URI
	add := func(u uri.URI) {
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}

	for _, root := range res.Roots {
		if ctx.Err() != nil {
			return nil
		}

		if root.Pattern == "" {
			for _, u := range d.listDir(ctx, root.Dir, cat, true) {
				add(u)
			}
			continue
		}

		found, err := d.search.FileSearch(ctx, fsys.FileQuery{
			Folder:               root.Dir,
			FilePattern:          root.Pattern,
			ExcludePattern:       cfg.Search.Exclude,
			DisregardIgnoreFiles: !cfg.Search.UseIgnoreFiles,
		})
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Warn("file search failed", "code", CodeListingFailed, "path", root.String(), "error", err)
			}
			continue
		}
		for _, u := range found {
			if cat.MatchesFileName(u.Base(), false) {
				add(u)
			}
		}
	}
	return out
}

func (d *Discovery) listProfile(ctx context.Context, cat promptfile.Category) []uri.URI {
	if d.profileDir.IsZero() {
		return nil
	}
	return d.listDir(ctx, d.profileDir, cat, false)
}

// listDir returns the matching files directly inside dir. A location that
// names a single file is returned when it matches. Agent folders in the
// workspace accept plain markdown files when lenient is set.
func (d *Discovery) listDir(ctx context.Context, dir uri.URI, cat promptfile.Category, lenient bool) []uri.URI {
	st, err := d.fs.Resolve(ctx, dir)
	if err != nil {
		if !errors.Is(err, fsys.ErrNotFound) && ctx.Err() == nil {
			d.logger.Warn("cannot list folder", "code", CodeListingFailed, "path", dir.String(), "error", err)
		}
		return nil
	}
	lenient = lenient && cat == promptfile.CategoryAgent

	if st.IsFile {
		if cat.MatchesFileName(dir.Base(), lenient) {
			return []uri.URI{dir}
		}
		return nil
	}
	var out []uri.URI
	for _, c := range st.Children {
		if c.IsFile && cat.MatchesFileName(c.URI.Base(), lenient) {
			out = append(out, c.URI)
		}
	}
	return out
}
