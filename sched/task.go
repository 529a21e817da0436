package sched

import (
	"context"
	"sync"
	"time"
)

// Task is a periodic loop running in its own goroutine until stopped or its
// parent context is cancelled.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs fn every interval, first after delay (or after interval when
// delay is zero). fn is never invoked concurrently with itself. The first
// ticker is registered before Start returns, so a manually advanced clock
// cannot skip it.
func Start(ctx context.Context, clock Clock, delay, interval time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	oneShot := delay > 0
	first := delay
	if !oneShot {
		first = interval
	}
	go t.loop(ctx, clock, clock.NewTicker(first), oneShot, interval, fn)
	return t
}

func (t *Task) loop(ctx context.Context, clock Clock, ticker Ticker, oneShot bool, interval time.Duration, fn func(context.Context)) {
	defer close(t.done)
	defer func() { ticker.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
		// Stop may race with a pending tick
		if ctx.Err() != nil {
			return
		}
		if oneShot {
			ticker.Stop()
			ticker = clock.NewTicker(interval)
			oneShot = false
		}
		fn(ctx)
	}
}

// Stop cancels the task without waiting for it. Safe to call repeatedly and
// from inside fn.
func (t *Task) Stop() { t.cancel() }

// Done is closed once the loop goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the loop goroutine has exited.
func (t *Task) Wait() { <-t.done }

// Group starts tasks sharing a parent context and clock, and waits for all
// of them on shutdown.
type Group struct {
	ctx   context.Context
	clock Clock
	wg    sync.WaitGroup
}

// NewGroup creates a task group.
func NewGroup(ctx context.Context, clock Clock) *Group {
	return &Group{ctx: ctx, clock: clock}
}

// Start launches a task tracked by the group.
func (g *Group) Start(delay, interval time.Duration, fn func(context.Context)) *Task {
	t := Start(g.ctx, g.clock, delay, interval, fn)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		t.Wait()
	}()
	return t
}

// Wait blocks until every task started through the group has exited.
// Tasks must be stopped (or the parent context cancelled) first.
func (g *Group) Wait() { g.wg.Wait() }
