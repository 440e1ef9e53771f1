package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTickPeriod is the session clock resolution
const DefaultTickPeriod = time.Second

// Clock counts elapsed whole seconds of a session. It has no pause.
type Clock struct {
	period time.Duration
	onTick func(elapsed int)

	mu      sync.Mutex
	elapsed int
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClock creates a stopped clock. onTick may be nil.
func NewClock(period time.Duration, onTick func(elapsed int)) *Clock {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	return &Clock{period: period, onTick: onTick}
}

// Start begins ticking until ctx is done or Stop is called. Starting a running
// clock has no effect.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

func (c *Clock) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Stop halts the clock and waits for the ticking goroutine to exit
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Tick advances the clock by one second
func (c *Clock) Tick() int {
	c.mu.Lock()
	c.elapsed++
	elapsed := c.elapsed
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(elapsed)
	}
	return elapsed
}

// Elapsed returns the whole seconds counted so far
func (c *Clock) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// FormatElapsed renders seconds as MM:SS. Minutes grow past two digits.
func FormatElapsed(total int) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
