// Package debounce coalesces bursts of calls into one trailing call.
package debounce

import (
	"sync"
	"time"

	"github.com/harmonia-vision/harmonia/internal/clock"
)

// Debouncer runs action with the most recent value once no Trigger has arrived
// for the quiet period. Every Trigger restarts the countdown; superseded values
// are dropped without running.
type Debouncer[T any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	delay   time.Duration
	action  func(T)
	timer   clock.Timer
	gen     uint64
	value   T
	pending bool
	stopped bool
}

// New creates a Debouncer. A nil clock uses real time.
func New[T any](delay time.Duration, c clock.Clock, action func(T)) *Debouncer[T] {
	if c == nil {
		c = clock.Real{}
	}
	return &Debouncer[T]{clock: c, delay: delay, action: action}
}

// Trigger stores v as the pending value and restarts the quiet period.
// It is a no-op after Stop.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.value = v
	d.pending = true
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.clear()
	d.mu.Unlock()

	d.action(v)
}

// Cancel drops the pending value without running it. It reports whether a value was pending.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	was := d.pending
	d.clear()
	return was
}

// Flush runs the pending value immediately on the caller's goroutine.
// It reports whether anything ran.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	v := d.value
	d.clear()
	d.mu.Unlock()

	d.action(v)
	return true
}

// Pending reports whether a value is waiting for the quiet period to expire.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending value and makes later Triggers no-ops.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clear()
	d.stopped = true
}

func (d *Debouncer[T]) clear() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.value = zero
	d.pending = false
	d.gen++
}
