package orchestrator

import (
	"sync"
	"time"
)

// Debouncer runs only the last of a burst of triggers, after a quiet delay.
// It holds a single pending timer that each Trigger cancels and rearms.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	fn      func()
	seq     uint64
	stopped bool

	// running is held while a scheduled call executes.
	running sync.Mutex
}

// NewDebouncer creates a Debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, replacing any pending call.
// It does nothing once the Debouncer is stopped.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.fn = fn
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := seq == d.seq && !d.stopped
		if current {
			d.timer = nil
			d.fn = nil
			d.running.Lock()
		}
		d.mu.Unlock()
		if current {
			defer d.running.Unlock()
			fn()
		}
	})
}

// Flush runs the pending call now, on the calling goroutine, and waits for
// a call already in progress to return.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.fn
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.fn = nil
	d.seq++
	d.mu.Unlock()

	d.running.Lock()
	defer d.running.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *Debouncer) pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending call and disables the Debouncer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.fn = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
