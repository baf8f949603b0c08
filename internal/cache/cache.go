// SPDX-License-Identifier: MPL-2.0

// Package cache memoizes an expensive computation and invalidates it when a
// declared change source fires.
//
// A Cached value has two states. Until somebody subscribes to OnDidChange it
// is a passthrough: every Get recomputes, since nothing would learn that a
// stored value went stale. Once subscribed it keeps the last computed value
// until the source fires or Refresh is called. Concurrent Gets share one
// in-flight computation, which runs detached from any single caller's
// cancellation.
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/invowk/promptscan/internal/event"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("cache closed")

type (
	// ComputeFunc produces a fresh value.
	ComputeFunc[T any] func(ctx context.Context) (T, error)

	// SourceFunc returns the change source. It is called lazily on the
	// first subscription and again after every full unsubscribe.
	SourceFunc func() event.Event[struct{}]

	// Cached memoizes the result of a ComputeFunc.
	Cached[T any] struct {
		compute ComputeFunc[T]
		source  SourceFunc

		mu          sync.Mutex
		listeners   int
		unsubSource func()
		has         bool
		value       T
		generation  uint64
		closed      bool

		group     singleflight.Group
		changed   event.Emitter[struct{}]
		debouncer *event.Debouncer
	}
)

// New creates a Cached value. delay debounces the change notification;
// zero fires it synchronously.
func New[T any](compute ComputeFunc[T], source SourceFunc, delay time.Duration) *Cached[T] {
	c := &Cached[T]{compute: compute, source: source}
	c.debouncer = event.NewDebouncer(delay, func() { c.changed.Fire(struct{}{}) })
	return c
}

// Get returns the cached value, computing it when needed. ctx bounds the
// caller's wait, not the shared computation.
func (c *Cached[T]) Get(ctx context.Context) (T, error) {
	var zero T

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	if c.listeners == 0 {
		c.mu.Unlock()
		return c.compute(ctx)
	}
	if c.has {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	gen := c.generation
	c.mu.Unlock()

	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := c.compute(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if c.generation == gen && c.listeners > 0 && !c.closed {
			c.value, c.has = v, true
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		v, _ := r.Val.(T)
		return v, nil
	}
}

// OnDidChange fires, debounced, after the cached value was invalidated.
// Subscribing switches the cache into caching mode; removing the last
// subscriber switches it back to passthrough.
func (c *Cached[T]) OnDidChange() event.Event[struct{}] {
	return func(listener func(struct{})) func() {
		unsubscribe := c.changed.Subscribe(listener)
		c.retain()

		var once sync.Once
		return func() {
			once.Do(func() {
				unsubscribe()
				c.release()
			})
		}
	}
}

func (c *Cached[T]) retain() {
	c.mu.Lock()
	c.listeners++
	first := c.listeners == 1 && !c.closed
	c.mu.Unlock()
	if !first {
		return
	}

	unsub := c.source()(func(struct{}) { c.invalidate() })

	c.mu.Lock()
	if c.listeners == 0 || c.closed || c.unsubSource != nil {
		c.mu.Unlock()
		unsub()
		return
	}
	c.unsubSource = unsub
	c.mu.Unlock()
}

func (c *Cached[T]) release() {
	c.mu.Lock()
	c.listeners--
	var unsub func()
	if c.listeners == 0 {
		unsub = c.unsubSource
		c.unsubSource = nil
		c.dropLocked()
	}
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Refresh drops the cached value and fires the change notification.
func (c *Cached[T]) Refresh() {
	c.invalidate()
}

func (c *Cached[T]) invalidate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.dropLocked()
	c.mu.Unlock()
	c.debouncer.Trigger()
}

func (c *Cached[T]) dropLocked() {
	var zero T
	c.value, c.has = zero, false
	c.generation++
}

// Close releases the change source and stops pending notifications.
func (c *Cached[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsub := c.unsubSource
	c.unsubSource = nil
	c.dropLocked()
	c.mu.Unlock()

	c.debouncer.Stop()
	if unsub != nil {
		unsub()
	}
}
