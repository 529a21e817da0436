package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/config"
	"github.com/pthm-cable/smashbloc/team"
)

type tag struct{}

const queryLimit = 64

func newEntities(n int) []ecs.Entity {
	m := ecs.NewMap1[tag](ecs.NewWorld())
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = m.NewEntity(&tag{})
	}
	return out
}

func TestQueryRadiusIntoExcludesSelf(t *testing.T) {
	es := newEntities(3)
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(es[0], r3.Vec{X: 50, Z: 50})
	g.Insert(es[1], r3.Vec{X: 53, Z: 54})
	g.Insert(es[2], r3.Vec{X: 80, Z: 80})

	got := g.QueryRadiusInto(nil, r3.Vec{X: 50, Z: 50}, 10, es[0], queryLimit)
	if len(got) != 1 {
		t.Fatalf("got %d neighbors, want 1", len(got))
	}
	if got[0].E != es[1] {
		t.Errorf("wrong neighbor returned")
	}
	if math.Abs(got[0].DistSq-25) > 1e-9 {
		t.Errorf("DistSq = %v, want 25", got[0].DistSq)
	}
	if got[0].Delta != (r3.Vec{X: 3, Z: 4}) {
		t.Errorf("Delta = %v, want (3,0,4)", got[0].Delta)
	}
}

func TestQueryRadiusIntoBounded(t *testing.T) {
	es := newEntities(50)
	g := NewSpatialGrid(100, 100, 10)
	for _, e := range es {
		g.Insert(e, r3.Vec{X: 20, Z: 20})
	}

	buf := make([]Neighbor, 0, 8)
	got := g.QueryRadiusInto(buf, r3.Vec{X: 20, Z: 20}, 5, ecs.Entity{}, 8)
	if len(got) != 8 {
		t.Errorf("got %d neighbors, want cap of 8", len(got))
	}
	if &got[0] != &buf[:1][0] {
		t.Errorf("query reallocated the reused buffer")
	}
}

func TestQueryRadiusIntoEdges(t *testing.T) {
	es := newEntities(2)
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(es[0], r3.Vec{X: 0, Z: 0})
	g.Insert(es[1], r3.Vec{X: 99, Z: 99})

	// No wrap-around between opposite corners
	got := g.QueryRadiusInto(nil, r3.Vec{X: 1, Z: 1}, 5, ecs.Entity{}, queryLimit)
	if len(got) != 1 || got[0].E != es[0] {
		t.Errorf("corner query returned %d neighbors", len(got))
	}

	g.Clear()
	if got := g.QueryRadiusInto(nil, r3.Vec{X: 1, Z: 1}, 50, ecs.Entity{}, queryLimit); len(got) != 0 {
		t.Errorf("cleared grid returned %d neighbors", len(got))
	}
}

func TestTerrain(t *testing.T) {
	flat := NewFlatTerrain(3)
	if h := flat.Height(123, 456); h != 3 {
		t.Errorf("flat height = %v, want 3", h)
	}
	if d := DistanceBelow(flat, r3.Vec{X: 1, Y: 5, Z: 1}); d != 2 {
		t.Errorf("DistanceBelow = %v, want 2", d)
	}

	cfg := config.TerrainConfig{Kind: "noise", BaseHeight: 1, Amplitude: 6, Scale: 0.02, Seed: 7}
	a := NewTerrainSystem(cfg, 200, 200)
	b := NewTerrainSystem(cfg, 200, 200)
	for _, p := range [][2]float64{{0, 0}, {13.5, 77.2}, {199, 199}, {-10, 300}} {
		h := a.Height(p[0], p[1])
		if h < 1 || h > 7 {
			t.Errorf("noise height %v at %v outside [1,7]", h, p)
		}
		if h != b.Height(p[0], p[1]) {
			t.Errorf("noise terrain not deterministic at %v", p)
		}
	}
}

func TestIntegrate(t *testing.T) {
	body := &components.Body{Mass: 2, MaxSpeed: 5, Force: r3.Vec{X: 200, Y: 20}}
	pos := r3.Vec{}
	vel := r3.Vec{}

	Integrate(&pos, &vel, body, 10, 0.1)

	if math.Abs(math.Hypot(vel.X, vel.Z)-5) > 1e-9 {
		t.Errorf("horizontal speed = %v, want clamped to 5", math.Hypot(vel.X, vel.Z))
	}
	// Force.Y/m = 10 cancels gravity
	if math.Abs(vel.Y) > 1e-9 {
		t.Errorf("vel.Y = %v, want 0", vel.Y)
	}
	if math.Abs(pos.X-0.5) > 1e-9 {
		t.Errorf("pos.X = %v, want 0.5", pos.X)
	}
	if body.Force != (r3.Vec{}) {
		t.Errorf("force not cleared: %v", body.Force)
	}
}

func testFlocking() *FlockingSystem {
	cfg := config.MustDefaults()
	return NewFlockingSystem(ecs.NewWorld(), NewSpatialGrid(100, 100, 10), NewFlatTerrain(0), FlockingParamsFromConfig(cfg))
}

func TestComputeForcesAirborne(t *testing.T) {
	s := testFlocking()
	es := newEntities(2)
	a := Agent{
		Entity:   es[0],
		Pos:      r3.Vec{X: 10, Y: s.params.Hover.MaxFloat + 1, Z: 10},
		Mass:     1,
		MaxSpeed: 8,
		Steering: components.Steering{Destination: r3.Vec{X: 90, Z: 90}, HasDestination: true},
	}
	f := s.ComputeForces(a, []FlockNeighbor{{Entity: es[1], Pos: r3.Vec{X: 11, Y: 5, Z: 10}, Ally: true}})

	if !f.Airborne {
		t.Fatalf("unit above max float not airborne")
	}
	if f.Seek != (r3.Vec{}) || f.Converge != (r3.Vec{}) || f.Diverge != (r3.Vec{}) || f.Align != (r3.Vec{}) {
		t.Errorf("airborne unit received steering: %+v", f)
	}
	if f.Hover.Y >= 0 || f.Hover.X != 0 || f.Hover.Z != 0 {
		t.Errorf("airborne force = %v, want straight down", f.Hover)
	}
}

func TestComputeForcesGrounded(t *testing.T) {
	s := testFlocking()
	p := s.params
	es := newEntities(3)
	a := Agent{
		Entity:   es[0],
		Pos:      r3.Vec{X: 50, Y: p.TargetAltitude, Z: 50},
		Mass:     1,
		MaxSpeed: 8,
		Steering: components.Steering{Destination: r3.Vec{X: 90, Z: 50}, HasDestination: true},
	}
	neighbors := []FlockNeighbor{
		{Entity: es[0], Pos: a.Pos, Ally: true}, // self, filtered
		{Entity: es[1], Pos: r3.Vec{X: 51, Y: p.TargetAltitude, Z: 50}, Vel: r3.Vec{Z: 100}, Ally: true},
		{Entity: es[2], Pos: r3.Vec{X: 50, Y: p.TargetAltitude, Z: 49}, Ally: false},
	}
	f := s.ComputeForces(a, neighbors)

	if f.Airborne {
		t.Fatalf("unit at target altitude is airborne")
	}
	if f.Seek.X <= 0 {
		t.Errorf("seek = %v, want +X", f.Seek)
	}
	if f.Diverge.X >= 0 || f.Diverge.Z <= 0 {
		t.Errorf("diverge = %v, want away from both neighbors", f.Diverge)
	}
	if n := r3.Norm(f.Align); n > p.AlignMax+1e-9 || n == 0 {
		t.Errorf("|align| = %v, want in (0, %v]", n, p.AlignMax)
	}
	if f.Align.X != 0 || f.Align.Y != 0 {
		t.Errorf("align = %v, want only Z from the ally", f.Align)
	}
	for name, v := range map[string]r3.Vec{"hover": f.Hover, "seek": f.Seek, "converge": f.Converge, "diverge": f.Diverge, "align": f.Align} {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
			t.Errorf("%s force is NaN", name)
		}
	}
}

func TestFlockingUpdateSymmetric(t *testing.T) {
	cfg := config.MustDefaults()
	w := ecs.NewWorld()
	grid := NewSpatialGrid(100, 100, 10)
	ground := NewFlatTerrain(0)
	flock := NewFlockingSystem(w, grid, ground, FlockingParamsFromConfig(cfg))
	units := ecs.NewMap7[
		components.Position,
		components.Velocity,
		components.Body,
		components.Steering,
		components.Membership,
		components.Forces,
		components.Active,
	](w)

	tm := team.New("red", "#f00")
	alt := cfg.Hover.TargetAltitude
	positions := []r3.Vec{{X: 48, Y: alt, Z: 50}, {X: 50, Y: alt, Z: 50}, {X: 52, Y: alt, Z: 50}}
	es := make([]ecs.Entity, len(positions))
	for i, p := range positions {
		es[i] = units.NewEntity(
			&components.Position{Vec: p},
			&components.Velocity{},
			&components.Body{Mass: 1, MaxSpeed: 8},
			&components.Steering{},
			&components.Membership{Team: tm},
			&components.Forces{},
			&components.Active{},
		)
		grid.Insert(es[i], p)
	}

	flock.Update()

	forces := ecs.NewMap[components.Forces](w)
	bodies := ecs.NewMap[components.Body](w)
	mid := forces.Get(es[1])
	if r3.Norm(r3.Add(mid.Diverge, mid.Converge)) > 1e-9 {
		t.Errorf("center unit net flocking force = %v, want 0", r3.Add(mid.Diverge, mid.Converge))
	}
	left, right := forces.Get(es[0]), forces.Get(es[2])
	if r3.Norm(r3.Add(left.Diverge, right.Diverge)) > 1e-9 {
		t.Errorf("outer diverge forces not opposite: %v %v", left.Diverge, right.Diverge)
	}
	if !bodies.Get(es[1]).Grounded {
		t.Errorf("center unit not grounded")
	}
}
