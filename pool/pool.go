// Package pool recycles pre-built instances through a free list keyed by slot.
package pool

import (
	"log/slog"
	"sync"
)

// Pool hands out pre-built instances by slot index. When the free list is
// empty it constructs a new instance instead of failing.
type Pool[T any] struct {
	mu     sync.Mutex
	name   string
	items  []T
	free   []int
	rented []bool
	build  func(slot int) T
	logger *slog.Logger
}

// New pre-builds capacity instances with build.
func New[T any](name string, capacity int, build func(slot int) T, logger *slog.Logger) *Pool[T] {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool[T]{
		name:   name,
		items:  make([]T, 0, capacity),
		free:   make([]int, 0, capacity),
		rented: make([]bool, 0, capacity),
		build:  build,
		logger: logger,
	}
	for i := range capacity {
		p.items = append(p.items, build(i))
		p.rented = append(p.rented, false)
	}
	// Hand out low slots first
	for i := capacity - 1; i >= 0; i-- {
		p.free = append(p.free, i)
	}
	return p
}

// Rent returns a free instance and its slot. fresh is true when the pool was
// exhausted and the instance had to be constructed.
func (p *Pool[T]) Rent() (slot int, item T, fresh bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		slot = p.free[n-1]
		p.free = p.free[:n-1]
		p.rented[slot] = true
		return slot, p.items[slot], false
	}

	slot = len(p.items)
	p.logger.Warn("pool exhausted, constructing new instance", "pool", p.name, "slot", slot)
	item = p.build(slot)
	p.items = append(p.items, item)
	p.rented = append(p.rented, true)
	return slot, item, true
}

// Return puts slot back on the free list. Returning a slot that is not
// rented is a no-op and reports false.
func (p *Pool[T]) Return(slot int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slot < 0 || slot >= len(p.items) || !p.rented[slot] {
		return false
	}
	p.rented[slot] = false
	p.free = append(p.free, slot)
	return true
}

// Get returns the instance in slot.
func (p *Pool[T]) Get(slot int) T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items[slot]
}

// Size returns the number of instances ever built.
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Available returns the number of free instances.
func (p *Pool[T]) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
