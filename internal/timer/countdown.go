// Package timer provides the one-shot countdown used for riddle time limits
// and for the pre-contest start gate.
package timer

import (
	"sync"
	"time"
)

// Ticker is the part of time.Ticker a Countdown depends on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Countdown decrements once per second from a fixed number of seconds and
// calls its expiry callback exactly once when it reaches zero. It never
// re-arms itself; Start does that explicitly.
type Countdown struct {
	seconds   int
	newTicker TickerFunc
	onTick    func(remaining int)
	onExpire  func()

	mu        sync.Mutex
	remaining int
	current   *run
}

type run struct {
	stop chan struct{}
}

// Option customizes a Countdown.
type Option func(*Countdown)

// WithTicker swaps the tick source, mainly for tests.
func WithTicker(f TickerFunc) Option {
	return func(c *Countdown) { c.newTicker = f }
}

// WithTickHandler registers a callback invoked with the remaining seconds after every tick.
func WithTickHandler(fn func(remaining int)) Option {
	return func(c *Countdown) { c.onTick = fn }
}

// NewCountdown builds an idle countdown of the given whole seconds.
func NewCountdown(seconds int, onExpire func(), opts ...Option) *Countdown {
	c := &Countdown{
		seconds:   seconds,
		newTicker: NewRealTicker,
		onExpire:  onExpire,
		remaining: seconds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start arms the countdown with the full duration, cancelling any run in progress.
func (c *Countdown) Start() {
	c.Stop()

	c.mu.Lock()
	r := &run{stop: make(chan struct{})}
	c.current = r
	c.remaining = c.seconds
	ticker := c.newTicker(time.Second)
	c.mu.Unlock()

	go c.loop(r, ticker)
}

// Stop cancels the running countdown and reports whether one was active.
// Once Stop returns the expiry callback of that run can no longer fire.
// Stop is safe to call repeatedly and from within the callbacks.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	r := c.current
	c.current = nil
	c.mu.Unlock()

	if r == nil {
		return false
	}
	close(r.stop)
	return true
}

// Active reports whether the countdown is running.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Remaining returns the seconds left in the current (or last) run.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) loop(r *run, ticker Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C():
			c.mu.Lock()
			if c.current != r {
				c.mu.Unlock()
				return
			}
			c.remaining--
			remaining := c.remaining
			expired := remaining <= 0
			if expired {
				c.remaining = 0
				remaining = 0
				// Expiry is decided under the lock; a later Stop is a no-op.
				c.current = nil
			}
			c.mu.Unlock()

			if c.onTick != nil {
				c.onTick(remaining)
			}
			if expired {
				if c.onExpire != nil {
					c.onExpire()
				}
				return
			}
		}
	}
}
