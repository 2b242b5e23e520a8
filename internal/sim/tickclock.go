// internal/sim/tickclock.go

package sim

import (
	"sync/atomic"
	"time"
)

// TickClock paces a simulation against the wall clock. It emits one tick per
// interval and counts them atomically.
type TickClock struct {
	Ch       chan struct{}
	interval time.Duration
	count    atomic.Int64
	stop     chan struct{}
	stopped  atomic.Bool
}

// NewTickClock creates a stopped clock.
func NewTickClock(interval time.Duration, buffer int) *TickClock {
	return &TickClock{
		Ch:       make(chan struct{}, buffer),
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins emitting ticks. Ticks are dropped rather than queued when the
// consumer falls behind by more than the buffer.
func (c *TickClock) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- struct{}{}:
				default:
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks. It is safe to call twice.
func (c *TickClock) Stop() {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.stop)
	}
}

// Count returns the number of ticks emitted so far.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}
