package components

import "gonum.org/v1/gonum/spatial/r3"

// Position represents a unit's world position. Y is up.
type Position struct {
	r3.Vec
}

// Velocity represents a unit's velocity in world units per second.
type Velocity struct {
	r3.Vec
}

// Steering holds the movement intent written by the command executor and
// read by the flocking system every physics tick.
type Steering struct {
	Destination     r3.Vec // aka movingTo
	PointOfInterest r3.Vec // looser intent location, anchors idling
	HasDestination  bool
}

// Forces is per-tick debug output of the flocking system, overwritten every tick.
type Forces struct {
	Hover    r3.Vec
	Seek     r3.Vec
	Converge r3.Vec
	Diverge  r3.Vec
	Align    r3.Vec
	Airborne bool
}
