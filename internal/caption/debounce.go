package caption

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of change notifications into at most one
// callback invocation per interval, fired on the trailing edge.
//
// The first Notify after an idle period arms a timer; further Notifies
// while the timer is armed are absorbed by the pending invocation. The
// callback runs on the timer goroutine.
type Debouncer struct {
	interval time.Duration
	fn       func()

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	stopOnce sync.Once
}

// NewDebouncer returns a Debouncer that invokes fn at most once per interval.
func NewDebouncer(interval time.Duration, fn func()) *Debouncer {
	return &Debouncer{interval: interval, fn: fn}
}

// Notify records that the observed state changed. If no invocation is
// pending, one is scheduled interval from now.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || d.timer != nil {
		return
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// Stop cancels any pending invocation. Further Notify calls are ignored.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.stopped = true
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
	})
}
