// SPDX-License-Identifier: MPL-2.0

// Package fsys defines the filesystem and file-search contracts the
// discovery engine consumes, and an afero-backed implementation of both.
package fsys

import (
	"context"
	"errors"
	"slices"

	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/pkg/uri"
)

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrUnsupportedScheme is returned for URIs the filesystem cannot serve.
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")
)

type (
	// Stat describes a resolved resource. Children is populated, one level
	// deep, when the resource is a directory.
	Stat struct {
		URI         uri.URI
		IsFile      bool
		IsDirectory bool
		Children    []Stat
	}

	// ResolveResult is the per-uri outcome of ResolveAll.
	ResolveResult struct {
		URI  uri.URI
		Stat *Stat
		Err  error
	}

	// WatchOptions controls the scope of a watch.
	WatchOptions struct {
		Recursive bool
		Excludes  []string
	}

	// FileChanges is a batch of changes reported by the file-change stream.
	FileChanges struct {
		Added   []uri.URI
		Updated []uri.URI
		Deleted []uri.URI
	}

	// FileQuery is a pattern search below Folder.
	FileQuery struct {
		Folder uri.URI
		// FilePattern is a doublestar glob relative to Folder. Empty matches
		// every file.
		FilePattern string
		// ExcludePattern lists doublestar globs relative to Folder.
		ExcludePattern []string
		// DisregardIgnoreFiles skips .gitignore processing.
		DisregardIgnoreFiles bool
		// MaxResults caps the result count when positive.
		MaxResults int
	}

	// FileSystem is the filesystem collaborator.
	FileSystem interface {
		Resolve(ctx context.Context, u uri.URI) (*Stat, error)
		ReadFile(ctx context.Context, u uri.URI) ([]byte, error)
		ResolveAll(ctx context.Context, uris []uri.URI) []ResolveResult
		Exists(ctx context.Context, u uri.URI) bool
		Watch(u uri.URI, opts WatchOptions) (stop func(), err error)
		OnDidFilesChange() event.Event[FileChanges]
		UpdateReadonly(ctx context.Context, u uri.URI, readonly bool) error
	}

	// Searcher is the content-search collaborator.
	Searcher interface {
		FileSearch(ctx context.Context, q FileQuery) ([]uri.URI, error)
	}
)

// Success reports whether the resource was resolved.
func (r ResolveResult) Success() bool {
	return r.Err == nil && r.Stat != nil
}

// All returns every uri in the batch.
func (c FileChanges) All() []uri.URI {
	out := make([]uri.URI, 0, len(c.Added)+len(c.Updated)+len(c.Deleted))
	out = append(out, c.Added...)
	out = append(out, c.Updated...)
	return append(out, c.Deleted...)
}

// Affects reports whether any change lies at or below one of roots.
func (c FileChanges) Affects(roots ...uri.URI) bool {
	return slices.ContainsFunc(c.All(), func(u uri.URI) bool {
		return slices.ContainsFunc(roots, u.IsEqualOrParent)
	})
}

// IsEmpty reports whether the batch holds no changes.
func (c FileChanges) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}
