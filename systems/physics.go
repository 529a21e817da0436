package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/components"
)

// PhysicsSystem integrates accumulated forces into velocity and position.
type PhysicsSystem struct {
	filter  ecs.Filter4[components.Position, components.Velocity, components.Body, components.Active]
	bounds  Bounds
	ground  Ground
	gravity float64
}

// Bounds represents the horizontal simulation bounds (X by Z).
type Bounds struct {
	Width, Depth float64
}

// NewPhysicsSystem creates a new physics system.
func NewPhysicsSystem(w *ecs.World, bounds Bounds, ground Ground, gravity float64) *PhysicsSystem {
	return &PhysicsSystem{
		filter:  *ecs.NewFilter4[components.Position, components.Velocity, components.Body, components.Active](w),
		bounds:  bounds,
		ground:  ground,
		gravity: gravity,
	}
}

// Update advances every active unit by dt seconds (semi-implicit Euler).
func (s *PhysicsSystem) Update(dt float64) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, body, _ := query.Get()
		Integrate(&pos.Vec, &vel.Vec, body, s.gravity, dt)
		s.confine(&pos.Vec, &vel.Vec)
	}
}

// Integrate applies body.Force for one step and clears it. Horizontal speed
// is limited to body.MaxSpeed; vertical speed is left to hover and gravity.
func Integrate(pos, vel *r3.Vec, body *components.Body, gravity, dt float64) {
	acc := r3.Scale(1/body.Mass, body.Force)
	acc.Y -= gravity
	*vel = r3.Add(*vel, r3.Scale(dt, acc))

	if speed := horizontalSpeed(*vel); speed > body.MaxSpeed && speed > 0 {
		scale := body.MaxSpeed / speed
		vel.X *= scale
		vel.Z *= scale
	}

	*pos = r3.Add(*pos, r3.Scale(dt, *vel))
	body.Force = r3.Vec{}
}

// confine keeps a unit above the ground and inside the world.
func (s *PhysicsSystem) confine(pos, vel *r3.Vec) {
	if h := s.ground.Height(pos.X, pos.Z); pos.Y < h {
		pos.Y = h
		if vel.Y < 0 {
			vel.Y = 0
		}
	}

	// Walls, no wrap
	if pos.X < 0 {
		pos.X = 0
		vel.X = 0
	} else if pos.X > s.bounds.Width {
		pos.X = s.bounds.Width
		vel.X = 0
	}
	if pos.Z < 0 {
		pos.Z = 0
		vel.Z = 0
	} else if pos.Z > s.bounds.Depth {
		pos.Z = s.bounds.Depth
		vel.Z = 0
	}
}
