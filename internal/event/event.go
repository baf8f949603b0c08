// SPDX-License-Identifier: MPL-2.0

// Package event provides typed in-process change notifications.
//
// An Event is a subscription function: calling it with a listener registers
// the listener and returns a function that removes it. An Emitter owns the
// listener list and fires values to it. Combinators (Any, Filter, Signal)
// derive new events from existing ones without extra goroutines.
package event

import (
	"sync"
)

type (
	// Event registers a listener and returns its unsubscribe function.
	Event[T any] func(listener func(T)) (unsubscribe func())

	// Emitter fans a value out to every registered listener.
	// The zero value is ready to use.
	Emitter[T any] struct {
		mu        sync.Mutex
		listeners map[uint64]func(T)
		order     []uint64
		next      uint64
	}
)

// Event returns the subscription function of e.
func (e *Emitter[T]) Event() Event[T] {
	return e.Subscribe
}

// Subscribe registers listener. The returned function removes it and is
// safe to call more than once.
func (e *Emitter[T]) Subscribe(listener func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[uint64]func(T))
	}
	id := e.next
	e.next++
	e.listeners[id] = listener
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.listeners, id)
			for i, v := range e.order {
				if v == id {
					e.order = append(e.order[:i], e.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Fire calls every listener with v in subscription order. Listeners are
// invoked outside the emitter lock, so they may subscribe or unsubscribe.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	snapshot := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		snapshot = append(snapshot, e.listeners[id])
	}
	e.mu.Unlock()

	for _, listener := range snapshot {
		listener(v)
	}
}

// HasListeners reports whether at least one listener is registered.
func (e *Emitter[T]) HasListeners() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order) > 0
}

// Any merges events of the same type.
func Any[T any](events ...Event[T]) Event[T] {
	return func(listener func(T)) func() {
		subs := make([]func(), 0, len(events))
		for _, ev := range events {
			if ev != nil {
				subs = append(subs, ev(listener))
			}
		}
		return func() {
			for _, unsubscribe := range subs {
				unsubscribe()
			}
		}
	}
}

// Filter forwards only the values accepted by keep.
func Filter[T any](ev Event[T], keep func(T) bool) Event[T] {
	return func(listener func(T)) func() {
		return ev(func(v T) {
			if keep(v) {
				listener(v)
			}
		})
	}
}

// Signal drops the payload of ev.
func Signal[T any](ev Event[T]) Event[struct{}] {
	return func(listener func(struct{})) func() {
		return ev(func(T) { listener(struct{}{}) })
	}
}
