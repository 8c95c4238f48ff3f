package listing

import (
	"sync"
	"time"
)

// DefaultSearchDebounce is the quiet period before a search triggers a refetch.
const DefaultSearchDebounce = 300 * time.Millisecond

type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	if delay <= 0 {
		delay = DefaultSearchDebounce
	}
	return &debouncer{delay: delay}
}

// trigger schedules fn after the quiet period, superseding any pending call.
func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
