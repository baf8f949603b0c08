// SPDX-License-Identifier: MPL-2.0

package event

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestEmitter_SubscribeFireUnsubscribe covers the listener lifecycle.
func TestEmitter_SubscribeFireUnsubscribe(t *testing.T) {
	t.Parallel()

	var e Emitter[int]
	var got []int
	unsubscribe := e.Subscribe(func(v int) { got = append(got, v) })

	e.Fire(1)
	unsubscribe()
	unsubscribe()
	e.Fire(2)

	if len(got) != 1 || got[0] != 1 {
		t.Errorf("listener received %v, want [1]", got)
	}
	if e.HasListeners() {
		t.Error("HasListeners() = true after unsubscribe")
	}
}

// TestEmitter_ListenerMayUnsubscribeDuringFire checks that a listener can
// remove itself without deadlocking.
func TestEmitter_ListenerMayUnsubscribeDuringFire(t *testing.T) {
	t.Parallel()

	var e Emitter[string]
	calls := 0
	var unsubscribe func()
	unsubscribe = e.Subscribe(func(string) {
		calls++
		unsubscribe()
	})
	e.Fire("a")
	e.Fire("b")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// TestAnyFilterSignal composes events.
func TestAnyFilterSignal(t *testing.T) {
	t.Parallel()

	var a, b Emitter[int]
	even := Filter(Any(a.Event(), b.Event()), func(v int) bool { return v%2 == 0 })

	count := 0
	unsubscribe := Signal(even)(func(struct{}) { count++ })
	a.Fire(1)
	a.Fire(2)
	b.Fire(4)
	b.Fire(5)
	unsubscribe()
	a.Fire(6)

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if a.HasListeners() || b.HasListeners() {
		t.Error("Any did not unsubscribe from its sources")
	}
}

// TestDebouncer_Coalesces collapses a burst into one call.
func TestDebouncer_Coalesces(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	done := make(chan struct{}, 4)
	d := NewDebouncer(30*time.Millisecond, func() {
		calls.Add(1)
		done <- struct{}{}
	})
	for range 5 {
		d.Trigger()
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced function was not called")
	}
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

// TestDebouncer_ZeroDelayIsSynchronous fires inline.
func TestDebouncer_ZeroDelayIsSynchronous(t *testing.T) {
	t.Parallel()

	calls := 0
	d := NewDebouncer(0, func() { calls++ })
	d.Trigger()
	d.Trigger()
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	d.Stop()
	d.Trigger()
	if calls != 2 {
		t.Errorf("calls after Stop = %d, want 2", calls)
	}
}
