package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/config"
	"github.com/pthm-cable/smashbloc/steering"
)

// FlockingParams configures the per-tick steering of mobile units.
type FlockingParams struct {
	TargetAltitude float64
	Hover          steering.HoverParams // Lift is derived per unit from mass
	AirborneForce  float64
	Gravity        float64
	MaxForce       float64
	DecelRadius    float64
	OuterRadius    float64
	MinRadius      float64
	ConvergeMax    float64
	DivergeMax     float64
	AlignMax       float64
	MaxNeighbors   int
}

// FlockingParamsFromConfig builds flocking parameters from the loaded config.
func FlockingParamsFromConfig(cfg *config.Config) FlockingParams {
	return FlockingParams{
		TargetAltitude: cfg.Hover.TargetAltitude,
		Hover: steering.HoverParams{
			MaxFloat:  cfg.Hover.MaxFloat,
			Stiffness: cfg.Hover.Stiffness,
			Damping:   cfg.Hover.Damping,
		},
		AirborneForce: cfg.Hover.AirborneForce,
		Gravity:       cfg.Physics.Gravity,
		MaxForce:      cfg.Steering.MaxForce,
		DecelRadius:   cfg.Steering.DecelRadius,
		OuterRadius:   cfg.Flocking.OuterRadius,
		MinRadius:     cfg.Flocking.MinRadius,
		ConvergeMax:   cfg.Flocking.ConvergeMax,
		DivergeMax:    cfg.Flocking.DivergeMax,
		AlignMax:      cfg.Flocking.AlignMax,
		MaxNeighbors:  cfg.Physics.MaxNeighbors,
	}
}

// Agent is the per-unit input to ComputeForces.
type Agent struct {
	Entity   ecs.Entity
	Pos      r3.Vec
	Vel      r3.Vec
	Mass     float64
	MaxSpeed float64
	Steering components.Steering
}

// FlockNeighbor is a nearby unit as seen by ComputeForces.
type FlockNeighbor struct {
	Entity ecs.Entity
	Pos    r3.Vec
	Vel    r3.Vec
	Ally   bool
}

// FlockingSystem computes hover, goal-seek and flocking forces every physics
// tick and accumulates them into each unit's Body.
type FlockingSystem struct {
	filter ecs.Filter7[
		components.Position,
		components.Velocity,
		components.Body,
		components.Steering,
		components.Membership,
		components.Forces,
		components.Active,
	]
	velMap *ecs.Map[components.Velocity]
	memMap *ecs.Map[components.Membership]
	grid   *SpatialGrid
	ground Ground
	params FlockingParams

	// Reused per-unit scratch buffers
	neighbors []Neighbor
	flock     []FlockNeighbor
	allyPos   []r3.Vec
	allyVel   []r3.Vec
	allPos    []r3.Vec
}

// NewFlockingSystem creates a flocking system reading neighbors from grid.
func NewFlockingSystem(w *ecs.World, grid *SpatialGrid, ground Ground, params FlockingParams) *FlockingSystem {
	n := params.MaxNeighbors
	return &FlockingSystem{
		filter: *ecs.NewFilter7[
			components.Position,
			components.Velocity,
			components.Body,
			components.Steering,
			components.Membership,
			components.Forces,
			components.Active,
		](w),
		velMap:    ecs.NewMap[components.Velocity](w),
		memMap:    ecs.NewMap[components.Membership](w),
		grid:      grid,
		ground:    ground,
		params:    params,
		neighbors: make([]Neighbor, 0, n),
		flock:     make([]FlockNeighbor, 0, n),
		allyPos:   make([]r3.Vec, 0, n),
		allyVel:   make([]r3.Vec, 0, n),
		allPos:    make([]r3.Vec, 0, n),
	}
}

// Update accumulates steering forces for all active units. The grid must
// already hold this tick's positions; velocities read from neighbors are the
// previous tick's, so the result does not depend on iteration order.
func (s *FlockingSystem) Update() {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, body, steer, member, forces, _ := query.Get()
		e := query.Entity()

		s.neighbors = s.grid.QueryRadiusInto(s.neighbors[:0], pos.Vec, s.params.OuterRadius, e, s.params.MaxNeighbors)
		s.flock = s.flock[:0]
		for _, n := range s.neighbors {
			if n.E == e {
				continue
			}
			nv := s.velMap.Get(n.E)
			nm := s.memMap.Get(n.E)
			if nv == nil || nm == nil {
				continue
			}
			s.flock = append(s.flock, FlockNeighbor{
				Entity: n.E,
				Pos:    n.Pos,
				Vel:    nv.Vec,
				Ally:   member.Team.Equal(nm.Team),
			})
		}

		agent := Agent{
			Entity:   e,
			Pos:      pos.Vec,
			Vel:      vel.Vec,
			Mass:     body.Mass,
			MaxSpeed: body.MaxSpeed,
			Steering: *steer,
		}
		*forces = s.ComputeForces(agent, s.flock)
		body.Grounded = !forces.Airborne
		body.Force = r3.Add(body.Force, Total(*forces))
	}
}

// ComputeForces returns the individually clamped forces acting on one unit.
// Grounded units hover, seek their destination and flock; airborne units only
// receive a constant downward force. There is no hysteresis between the modes.
func (s *FlockingSystem) ComputeForces(a Agent, neighbors []FlockNeighbor) components.Forces {
	p := s.params
	sample := DistanceBelow(s.ground, a.Pos)

	hp := p.Hover
	hp.Lift = a.Mass * p.Gravity
	hover, grounded := steering.HoverCorrection(sample, p.TargetAltitude, a.Vel.Y, hp)
	if !grounded {
		return components.Forces{
			Hover:    r3.Vec{Y: -p.AirborneForce * a.Mass},
			Airborne: true,
		}
	}

	var f components.Forces
	f.Hover = hover

	if a.Steering.HasDestination {
		f.Seek = steering.GoalSeek(a.Pos, a.Steering.Destination, a.Vel, steering.SeekParams{
			MaxSpeed:    a.MaxSpeed,
			MaxForce:    p.MaxForce,
			DecelRadius: p.DecelRadius,
		})
	}

	s.allyPos = s.allyPos[:0]
	s.allyVel = s.allyVel[:0]
	s.allPos = s.allPos[:0]
	for _, n := range neighbors {
		if n.Entity == a.Entity {
			continue
		}
		s.allPos = append(s.allPos, n.Pos)
		if n.Ally {
			s.allyPos = append(s.allyPos, n.Pos)
			s.allyVel = append(s.allyVel, steering.Horizontal(n.Vel))
		}
	}

	f.Converge = steering.Clamp(steering.Horizontal(steering.Converge(a.Pos, s.allyPos, p.OuterRadius, p.MinRadius)), p.ConvergeMax)
	f.Diverge = steering.Clamp(steering.Horizontal(steering.Diverge(a.Pos, s.allPos, p.MinRadius)), p.DivergeMax)
	f.Align = steering.Clamp(steering.Align(steering.Horizontal(a.Vel), s.allyVel), p.AlignMax)
	return f
}

// Total sums the separately clamped forces without clamping the result.
func Total(f components.Forces) r3.Vec {
	sum := r3.Add(f.Hover, f.Seek)
	sum = r3.Add(sum, f.Converge)
	sum = r3.Add(sum, f.Diverge)
	return r3.Add(sum, f.Align)
}
