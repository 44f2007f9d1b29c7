package services

import (
	"sync"
	"time"
)

// Countdown ticks down a wall-clock deadline on a fixed interval and
// invokes the completion callback exactly once when it reaches zero.
// An unstopped countdown leaks its goroutine but cannot corrupt any
// state: each tick only decrements the local counter.
type Countdown struct {
	mu        sync.Mutex
	remaining int64
	done      bool
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewCountdown starts a countdown over the given duration, ticking at
// interval (1 second for the purchase-flow timers). onComplete may be
// nil.
func NewCountdown(duration, interval time.Duration, onComplete func()) *Countdown {
	c := &Countdown{
		remaining: int64(duration / interval),
		stop:      make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				if c.done {
					c.mu.Unlock()
					return
				}
				c.remaining--
				finished := c.remaining <= 0
				if finished {
					c.done = true
				}
				c.mu.Unlock()

				if finished {
					if onComplete != nil {
						onComplete()
					}
					return
				}
			case <-c.stop:
				return
			}
		}
	}()

	return c
}

// Remaining reports the ticks left before completion.
func (c *Countdown) Remaining() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining < 0 {
		return 0
	}
	return c.remaining
}

// Expired reports whether the countdown has run out.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Stop cancels the countdown. Safe to call more than once; the
// completion callback will not fire after Stop.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.done = true
		c.mu.Unlock()
		close(c.stop)
	})
}
