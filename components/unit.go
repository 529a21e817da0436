// Package components defines ECS components for the simulation.
package components

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/smashbloc/config"
	"github.com/pthm-cable/smashbloc/team"
)

// Unit identifies a pooled unit instance. ID is unique across all pools,
// Slot is the index within the pool of its Kind. Generation increments on
// every activation so stale references can be detected.
type Unit struct {
	ID         int
	Slot       int
	Kind       uint8
	Generation uint32
}

// Active tags units that are currently in play. Inactive pooled units lack it
// and are skipped by every filter.
type Active struct{}

// Membership ties a unit to its team for the duration of one activation.
type Membership struct {
	Team *team.Team
}

// Combat holds balancing scalars mutated by combat events.
type Combat struct {
	Health      float64
	MaxHealth   float64
	Damage      float64
	SightRange  float64
	AttackRange float64
	Cooldown    float64 // seconds between shots
	LastFired   float64 // simulation time of the last shot, negative when never fired
}

// CombatFromArchetype returns full-health combat stats for the given unit kind.
func CombatFromArchetype(u *config.UnitConfig) Combat {
	return Combat{
		Health:      u.MaxHealth,
		MaxHealth:   u.MaxHealth,
		Damage:      u.Damage,
		SightRange:  u.SightRange,
		AttackRange: u.AttackRange,
		Cooldown:    u.FireCooldown,
		LastFired:   -u.FireCooldown,
	}
}

// HealthFraction returns health in [0, 1].
func (c *Combat) HealthFraction() float64 {
	if c.MaxHealth <= 0 {
		return 0
	}
	f := c.Health / c.MaxHealth
	if f < 0 {
		return 0
	}
	return f
}

// UnitRef is a generation-checked reference to a unit activation.
type UnitRef struct {
	Entity     ecs.Entity
	Generation uint32
}
