// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"sync/atomic"

	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/pkg/uri"
)

// Filesystem is what CountingFS decorates.
type Filesystem interface {
	fsys.FileSystem
	fsys.Searcher
}

// CountingFS counts the calls that reach the wrapped filesystem.
type CountingFS struct {
	Inner Filesystem

	resolves   atomic.Int64
	reads      atomic.Int64
	batches    atomic.Int64
	searches   atomic.Int64
	existCalls atomic.Int64
}

// NewCountingFS wraps inner.
func NewCountingFS(inner Filesystem) *CountingFS {
	return &CountingFS{Inner: inner}
}

// Calls returns the total number of filesystem and search calls so far.
func (c *CountingFS) Calls() int64 {
	return c.resolves.Load() + c.reads.Load() + c.batches.Load() + c.searches.Load() + c.existCalls.Load()
}

func (c *CountingFS) Resolve(ctx context.Context, u uri.URI) (*fsys.Stat, error) {
	c.resolves.Add(1)
	return c.Inner.Resolve(ctx, u)
}

func (c *CountingFS) ReadFile(ctx context.Context, u uri.URI) ([]byte, error) {
	c.reads.Add(1)
	return c.Inner.ReadFile(ctx, u)
}

func (c *CountingFS) ResolveAll(ctx context.Context, uris []uri.URI) []fsys.ResolveResult {
	c.batches.Add(1)
	return c.Inner.ResolveAll(ctx, uris)
}

func (c *CountingFS) Exists(ctx context.Context, u uri.URI) bool {
	c.existCalls.Add(1)
	return c.Inner.Exists(ctx, u)
}

func (c *CountingFS) Watch(u uri.URI, opts fsys.WatchOptions) (func(), error) {
	return c.Inner.Watch(u, opts)
}

func (c *CountingFS) OnDidFilesChange() event.Event[fsys.FileChanges] {
	return c.Inner.OnDidFilesChange()
}

func (c *CountingFS) UpdateReadonly(ctx context.Context, u uri.URI, readonly bool) error {
	return c.Inner.UpdateReadonly(ctx, u, readonly)
}

func (c *CountingFS) FileSearch(ctx context.Context, q fsys.FileQuery) ([]uri.URI, error) {
	c.searches.Add(1)
	return c.Inner.FileSearch(ctx, q)
}
