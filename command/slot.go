package command

import "sync"

// Slot holds at most one pending command. A newer command replaces an
// unexecuted older one; nothing is queued or merged.
type Slot[T any] struct {
	mu       sync.Mutex
	cmd      T
	pending  bool
	replaced uint64
}

// Offer stores cmd, reporting whether it overwrote a pending command.
func (s *Slot[T]) Offer(cmd T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	overwrote := s.pending
	if overwrote {
		s.replaced++
	}
	s.cmd = cmd
	s.pending = true
	return overwrote
}

// Take removes and returns the pending command.
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if !s.pending {
		return zero, false
	}
	cmd := s.cmd
	s.cmd = zero
	s.pending = false
	return cmd, true
}

// Replaced returns how many pending commands were overwritten.
func (s *Slot[T]) Replaced() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaced
}
