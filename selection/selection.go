// Package selection tracks the set of units picked by a player and keeps
// their highlight state in sync.
package selection

import (
	"maps"
	"slices"
	"sync"

	"github.com/pthm-cable/smashbloc/components"
)

//go:generate go tool mockgen -destination=./mocks/highlighter_mock.go -package=mocks . Highlighter

// Highlighter renders selection feedback. Calls are fire-and-forget.
type Highlighter interface {
	Highlight(ref components.UnitRef)
	RemoveHighlight(ref components.UnitRef)
}

// Selection is a concurrency-safe set of selected units.
type Selection struct {
	mu    sync.Mutex
	units map[components.UnitRef]struct{}
	hl    Highlighter
}

// New creates an empty selection reporting to hl.
func New(hl Highlighter) *Selection {
	return &Selection{units: make(map[components.UnitRef]struct{}), hl: hl}
}

// Select adds refs, highlighting those not already selected.
func (s *Selection) Select(refs ...components.UnitRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range refs {
		if _, ok := s.units[r]; ok {
			continue
		}
		s.units[r] = struct{}{}
		s.hl.Highlight(r)
	}
}

// Deselect removes ref. Reports whether it was selected.
func (s *Selection) Deselect(ref components.UnitRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[ref]; !ok {
		return false
	}
	delete(s.units, ref)
	s.hl.RemoveHighlight(ref)
	return true
}

// Drop removes a deactivated unit. It has the signature of a deactivation hook.
func (s *Selection) Drop(ref components.UnitRef) {
	s.Deselect(ref)
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := range s.units {
		s.hl.RemoveHighlight(r)
	}
	clear(s.units)
}

// Contains reports whether ref is selected.
func (s *Selection) Contains(ref components.UnitRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.units[ref]
	return ok
}

// Units returns the selected units in no particular order.
func (s *Selection) Units() []components.UnitRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Keys(s.units))
}
