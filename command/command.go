// Package command defines the closed set of commands produced by deciders and
// the executors that apply them.
package command

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/team"
)

// Unit is a command executable by a mobile unit. The set is sealed.
type Unit interface {
	Name() string
	unitCommand()
}

// Player is a command executable by a player. The set is sealed.
type Player interface {
	Name() string
	playerCommand()
}

// Move sets the point of interest to Target and heads for a random point
// within Deviation of it.
type Move struct {
	Target    r3.Vec
	Deviation float64
}

// Idle wanders to a random point within Deviation of Anchor.
type Idle struct {
	Anchor    r3.Vec
	Deviation float64
}

// Flee heads Distance away from From.
type Flee struct {
	From     r3.Vec
	Distance float64
}

// Shoot fires at Target through the body's weapon.
type Shoot struct {
	Target     components.UnitRef
	MaxAimTime float64
}

// SpawnUnit buys a unit of Kind at City.
type SpawnUnit struct {
	Kind string
	City *team.City
}

// SendUnitsToLocation points Units at Point.
type SendUnitsToLocation struct {
	Units []ecs.Entity
	Point r3.Vec
}

func (Move) Name() string  { return "move" }
func (Idle) Name() string  { return "idle" }
func (Flee) Name() string  { return "flee" }
func (Shoot) Name() string { return "shoot" }

func (SpawnUnit) Name() string           { return "spawn_unit" }
func (SendUnitsToLocation) Name() string { return "send_units" }

func (Move) unitCommand()  {}
func (Idle) unitCommand()  {}
func (Flee) unitCommand()  {}
func (Shoot) unitCommand() {}

func (SpawnUnit) playerCommand()           {}
func (SendUnitsToLocation) playerCommand() {}
