// Package ai turns environment snapshots into commands.
package ai

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/team"
)

// Contact is a copy of another unit's state as seen during sampling.
type Contact struct {
	Ref      components.UnitRef
	Position r3.Vec
	Health   float64 // fraction of max health
}

// Snapshot is the immutable view a unit decides on. It is built once per
// decision tick and must not be retained.
type Snapshot struct {
	Self            components.UnitRef
	Team            *team.Team
	Health          float64 // fraction of max health
	Damage          float64
	CanShoot        bool
	Position        r3.Vec
	Destination     r3.Vec
	PointOfInterest r3.Vec
	Allies          []Contact
	Enemies         []Contact
	InRange         []Contact // enemies within attack range
}

// PlayerView is the state a player AI decides on.
type PlayerView struct {
	Team        *team.Team
	Gold        int
	ArmySize    int
	Mobiles     []ecs.Entity
	OwnedCities []*team.City
	EnemyCities []*team.City
}

// UnitDecider chooses at most one command per decision tick.
type UnitDecider interface {
	Decide(s Snapshot) (command.Unit, bool)
}

// PlayerDecider chooses at most one command per decision tick.
type PlayerDecider interface {
	Decide(v PlayerView) (command.Player, bool)
}

// IdleAI always idles around the unit's point of interest.
type IdleAI struct {
	Deviation float64
}

// Decide returns Idle anchored at the point of interest.
func (a IdleAI) Decide(s Snapshot) (command.Unit, bool) {
	return command.Idle{Anchor: s.PointOfInterest, Deviation: a.Deviation}, true
}

func nearest(from r3.Vec, contacts []Contact) Contact {
	best := contacts[0]
	bestD := r3.Norm2(r3.Sub(best.Position, from))
	for _, c := range contacts[1:] {
		if d := r3.Norm2(r3.Sub(c.Position, from)); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func weakest(contacts []Contact) Contact {
	best := contacts[0]
	for _, c := range contacts[1:] {
		if c.Health < best.Health {
			best = c
		}
	}
	return best
}

func centroid(contacts []Contact) r3.Vec {
	var sum r3.Vec
	for _, c := range contacts {
		sum = r3.Add(sum, c.Position)
	}
	return r3.Scale(1/float64(len(contacts)), sum)
}

func nearestCity(from r3.Vec, cities []*team.City) *team.City {
	var best *team.City
	bestD := 0.0
	for _, c := range cities {
		if d := r3.Norm2(r3.Sub(c.Position, from)); best == nil || d < bestD {
			best, bestD = c, d
		}
	}
	return best
}
