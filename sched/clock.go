// Package sched runs cancellable periodic tasks on a pluggable clock.
package sched

import (
	"slices"
	"sync"
	"time"
)

// Clock creates tickers.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped. Like time.Ticker, ticks are
// dropped rather than queued when the receiver falls behind.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// WallClock ticks on real time.
type WallClock struct{}

// NewTicker returns a time.Ticker-backed ticker.
func (WallClock) NewTicker(d time.Duration) Ticker {
	return wallTicker{time.NewTicker(d)}
}

type wallTicker struct{ t *time.Ticker }

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// StepClock is a manually advanced clock. The simulation advances it by the
// physics step in sim-time mode so decision loops follow simulated seconds.
type StepClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*stepTicker
}

// NewStepClock creates a step clock starting at start.
func NewStepClock(start time.Time) *StepClock {
	return &StepClock{now: start}
}

// Now returns the current clock time.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker registers a ticker firing every d of advanced time.
func (c *StepClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("sched: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &stepTicker{
		clock:  c,
		period: d,
		next:   c.now.Add(d),
		ch:     make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward by d and fires every due ticker.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		if t.next.After(c.now) {
			continue
		}
		select {
		case t.ch <- c.now:
		default:
		}
		for !t.next.After(c.now) {
			t.next = t.next.Add(t.period)
		}
	}
}

// Pending returns the number of live tickers.
func (c *StepClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type stepTicker struct {
	clock  *StepClock
	period time.Duration
	next   time.Time
	ch     chan time.Time
}

func (t *stepTicker) C() <-chan time.Time { return t.ch }

func (t *stepTicker) Stop() {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickers = slices.DeleteFunc(c.tickers, func(o *stepTicker) bool { return o == t })
}
