package join

import (
	"sync"
	"time"
)

// DebounceInterval is how long handle input must settle before an
// availability check fires.
const DebounceInterval = 500 * time.Millisecond

// Debouncer coalesces rapid calls into one trailing invocation. Each
// Trigger restarts the timer; only the value present when it expires is
// delivered.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	fn       func(string)
}

func NewDebouncer(interval time.Duration, fn func(string)) *Debouncer {
	if interval <= 0 {
		interval = DebounceInterval
	}
	return &Debouncer{interval: interval, fn: fn}
}

func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.fn(value)
	})
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
