package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/jackzampolin/promptiverse/internal/types"
)

// DefaultDebounce is how long input must settle before suggestions refresh.
const DefaultDebounce = 750 * time.Millisecond

// Debouncer runs only the most recent suggestion lookup, once input has been
// quiet for the delay. A lookup that is superseded while in flight still
// finishes, but its result is discarded.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer. A non-positive delay uses DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Submit schedules lookup, superseding anything submitted earlier. deliver
// receives the result only if no newer submission arrived meanwhile.
func (d *Debouncer) Submit(ctx context.Context, lookup func(context.Context) []types.Suggestion, deliver func([]types.Suggestion)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		if !d.current(seq) {
			return
		}
		result := lookup(ctx)
		if !d.current(seq) {
			return
		}
		deliver(result)
	})
}

// Stop cancels any pending lookup and discards in-flight results.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) current(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped && d.seq == seq
}
