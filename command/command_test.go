package command

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/team"
)

type fakeBody struct {
	pos      r3.Vec
	dest     r3.Vec
	poi      r3.Vec
	canShoot bool
	shots    []components.UnitRef
	rng      *rand.Rand
}

func newFakeBody(pos r3.Vec) *fakeBody {
	return &fakeBody{pos: pos, poi: pos, rng: rand.New(rand.NewPCG(1, 2))}
}

func (b *fakeBody) Position() r3.Vec            { return b.pos }
func (b *fakeBody) SetDestination(v r3.Vec)     { b.dest = v }
func (b *fakeBody) SetPointOfInterest(v r3.Vec) { b.poi = v }
func (b *fakeBody) Rand() *rand.Rand            { return b.rng }

func (b *fakeBody) Shoot(target components.UnitRef, maxAimTime float64) error {
	if !b.canShoot {
		return fmt.Errorf("%w: fake body has no weapon", ErrUnsupported)
	}
	b.shots = append(b.shots, target)
	return nil
}

func horizontalDist(a, b r3.Vec) float64 {
	return r3.Norm(r3.Vec{X: a.X - b.X, Z: a.Z - b.Z})
}

func TestSlotOverwrite(t *testing.T) {
	var s Slot[Unit]
	assert.False(t, s.Offer(Move{Target: r3.Vec{X: 1}}))
	assert.True(t, s.Offer(Idle{Anchor: r3.Vec{X: 2}}))

	cmd, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, Idle{Anchor: r3.Vec{X: 2}}, cmd)

	_, ok = s.Take()
	assert.False(t, ok, "only the newest command executes")
	assert.Equal(t, uint64(1), s.Replaced())
}

func TestIdleStaysWithinDeviation(t *testing.T) {
	var x UnitExecutor
	anchor := r3.Vec{X: 100, Y: 2, Z: -40}
	b := newFakeBody(r3.Vec{})

	for range 1000 {
		require.NoError(t, x.Act(Idle{Anchor: anchor, Deviation: 20}, b))
		assert.LessOrEqual(t, horizontalDist(b.dest, anchor), 20.0+1e-9)
		assert.Equal(t, anchor.Y, b.dest.Y)
	}
	assert.Equal(t, r3.Vec{}, b.poi, "idle must not move the point of interest")
}

func TestMoveSetsPointOfInterest(t *testing.T) {
	var x UnitExecutor
	target := r3.Vec{X: 300, Z: 300}
	b := newFakeBody(r3.Vec{})

	require.NoError(t, x.Act(Move{Target: target, Deviation: 4}, b))
	assert.Equal(t, target, b.poi)
	assert.LessOrEqual(t, horizontalDist(b.dest, target), 4.0+1e-9)
}

func TestFleeHeadsAway(t *testing.T) {
	var x UnitExecutor
	b := newFakeBody(r3.Vec{X: 10, Z: 10})

	require.NoError(t, x.Act(Flee{From: r3.Vec{X: 0, Z: 10}, Distance: 25}, b))
	assert.InDelta(t, 35, b.dest.X, 1e-9)
	assert.InDelta(t, 10, b.dest.Z, 1e-9)

	// Coincident threat still yields a finite point at the flee distance
	require.NoError(t, x.Act(Flee{From: b.pos, Distance: 25}, b))
	assert.InDelta(t, 25, horizontalDist(b.dest, b.pos), 1e-9)
}

func TestShootUnsupported(t *testing.T) {
	var x UnitExecutor
	b := newFakeBody(r3.Vec{})

	err := x.Act(Shoot{MaxAimTime: 0.5}, b)
	assert.ErrorIs(t, err, ErrUnsupported)

	b.canShoot = true
	require.NoError(t, x.Act(Shoot{Target: components.UnitRef{Generation: 3}, MaxAimTime: 0.5}, b))
	assert.Len(t, b.shots, 1)
}

func TestRandomInDiscZeroRadius(t *testing.T) {
	c := r3.Vec{X: 1, Y: 2, Z: 3}
	assert.Equal(t, c, RandomInDisc(rand.New(rand.NewPCG(1, 1)), c, 0))
}

type prices map[string]int

func (p prices) UnitCost(kind string) (int, bool) {
	c, ok := p[kind]
	return c, ok
}

type marker struct{}

type fakeSpawner struct {
	units *ecs.Map1[marker]
	calls int
}

func (s *fakeSpawner) Spawn(kind string, t *team.Team, at r3.Vec) (ecs.Entity, error) {
	s.calls++
	e := s.units.NewEntity(&marker{})
	t.AddMobile(e)
	return e, nil
}

type fakeDirector struct {
	team  *team.Team
	units []ecs.Entity
	point r3.Vec
}

func (d *fakeDirector) Direct(t *team.Team, units []ecs.Entity, point r3.Vec) int {
	d.team, d.units, d.point = t, units, point
	return len(units)
}

func TestSpawnAtUnownedCityIsNoop(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	red := team.New("red", "#f00")
	blue := team.New("blue", "#00f")
	blueKeep := team.NewCity("blue-keep", r3.Vec{X: 400}, blue)
	sp := &fakeSpawner{units: ecs.NewMap1[marker](ecs.NewWorld())}
	p := team.NewPlayer(red, 100, sp, prices{"twirl": 10})

	x := NewPlayerExecutor(&fakeDirector{}, logger)
	err := x.Act(SpawnUnit{Kind: "twirl", City: blueKeep}, p)

	assert.ErrorIs(t, err, team.ErrCityNotOwned)
	assert.Equal(t, 100, p.Gold())
	assert.Zero(t, red.ArmySize())
	assert.Zero(t, sp.calls)
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestSpawnAtOwnedCity(t *testing.T) {
	red := team.New("red", "#f00")
	keep := team.NewCity("red-keep", r3.Vec{X: 40}, red)
	sp := &fakeSpawner{units: ecs.NewMap1[marker](ecs.NewWorld())}
	p := team.NewPlayer(red, 100, sp, prices{"twirl": 10})

	x := NewPlayerExecutor(&fakeDirector{}, slog.Default())
	require.NoError(t, x.Act(SpawnUnit{Kind: "twirl", City: keep}, p))
	assert.Equal(t, 90, p.Gold())
	assert.Equal(t, 1, red.ArmySize())
}

func TestSendUnitsToLocation(t *testing.T) {
	red := team.New("red", "#f00")
	units := ecs.NewMap1[marker](ecs.NewWorld())
	e := units.NewEntity(&marker{})
	d := &fakeDirector{}
	p := team.NewPlayer(red, 0, nil, prices{})

	x := NewPlayerExecutor(d, slog.Default())
	require.NoError(t, x.Act(SendUnitsToLocation{Units: []ecs.Entity{e}, Point: r3.Vec{X: 7}}, p))
	assert.Same(t, red, d.team)
	assert.Equal(t, []ecs.Entity{e}, d.units)
	assert.Equal(t, r3.Vec{X: 7}, d.point)
}
