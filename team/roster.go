package team

import (
	"slices"
	"sync"
)

// Roster is a mutex-guarded membership list. Spawn and death paths write it
// while AI and sampling goroutines read snapshots.
type Roster[T comparable] struct {
	mu      sync.RWMutex
	members []T
}

// Add appends v unless it is already present. Reports whether it was added.
func (r *Roster[T]) Add(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.members, v) {
		return false
	}
	r.members = append(r.members, v)
	return true
}

// Remove deletes v. Reports whether it was present.
func (r *Roster[T]) Remove(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.members, v)
	if i < 0 {
		return false
	}
	// Swap-remove; order is not meaningful
	last := len(r.members) - 1
	r.members[i] = r.members[last]
	var zero T
	r.members[last] = zero
	r.members = r.members[:last]
	return true
}

// Contains reports whether v is a member.
func (r *Roster[T]) Contains(v T) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.members, v)
}

// Len returns the member count.
func (r *Roster[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Snapshot returns a copy of the members that the caller may keep.
func (r *Roster[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.members)
}
