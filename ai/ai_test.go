package ai

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/config"
	"github.com/pthm-cable/smashbloc/team"
)

// maxSource always yields the largest possible draw.
type maxSource struct{}

func (maxSource) Uint64() uint64 { return math.MaxUint64 }

func newRand() *rand.Rand { return rand.New(rand.NewPCG(42, 7)) }

func TestWeightedChoiceDistribution(t *testing.T) {
	rng := newRand()
	opts := []Option[string]{{"A", 1}, {"B", 3}}

	const n = 10000
	bs := 0
	for range n {
		got, err := WeightedChoice(rng, opts)
		require.NoError(t, err)
		require.Contains(t, []string{"A", "B"}, got)
		if got == "B" {
			bs++
		}
	}
	assert.InDelta(t, 0.75, float64(bs)/n, 0.02)
}

func TestWeightedChoiceNeverFallsThrough(t *testing.T) {
	rng := rand.New(maxSource{})

	got, err := WeightedChoice(rng, []Option[string]{{"A", 1}, {"B", 3}, {"C", 0}})
	require.NoError(t, err)
	assert.Equal(t, "B", got, "zero-weight trailing entry must never be chosen")

	got, err = WeightedChoice(rng, []Option[string]{{"A", 0.1}, {"B", 0.2}, {"C", 0.7}})
	require.NoError(t, err)
	assert.Equal(t, "C", got)
}

func TestWeightedChoiceErrors(t *testing.T) {
	rng := newRand()

	_, err := WeightedChoice[string](rng, nil)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = WeightedChoice(rng, []Option[string]{{"A", 0}, {"B", 0}})
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = WeightedChoice(rng, []Option[string]{{"A", 1}, {"B", -1}})
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = WeightedChoice(rng, []Option[string]{{"A", math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestIdleAIAnchorsOnPointOfInterest(t *testing.T) {
	a := IdleAI{Deviation: 20}
	poi := r3.Vec{X: 10, Z: 90}
	s := Snapshot{
		PointOfInterest: poi,
		Enemies:         []Contact{{Position: r3.Vec{X: 11}}},
		InRange:         []Contact{{Position: r3.Vec{X: 11}}},
		CanShoot:        true,
	}
	for range 10 {
		cmd, ok := a.Decide(s)
		require.True(t, ok)
		assert.Equal(t, command.Idle{Anchor: poi, Deviation: 20}, cmd)
	}
}

func skirmishConfig() config.SkirmishAIConfig {
	return config.MustDefaults().SkirmishAI
}

func TestSkirmishOptions(t *testing.T) {
	a := NewSkirmishAI(skirmishConfig(), 20, 4, newRand(), slog.Default())

	calm := a.Options(Snapshot{Health: 1})
	require.Len(t, calm, 1)
	assert.IsType(t, command.Idle{}, calm[0].Value)

	near := Contact{Ref: components.UnitRef{Generation: 1}, Position: r3.Vec{X: 5}, Health: 0.9}
	weak := Contact{Ref: components.UnitRef{Generation: 2}, Position: r3.Vec{X: 15}, Health: 0.2}
	engaged := a.Options(Snapshot{
		Health:   1,
		CanShoot: true,
		Enemies:  []Contact{weak, near},
		InRange:  []Contact{near, weak},
	})
	require.Len(t, engaged, 3)
	assert.Equal(t, command.Move{Target: near.Position, Deviation: 4}, engaged[1].Value)
	assert.Equal(t, command.Shoot{Target: weak.Ref, MaxAimTime: skirmishConfig().MaxAimTime}, engaged[2].Value)

	unarmed := a.Options(Snapshot{Health: 1, Enemies: []Contact{near}, InRange: []Contact{near}})
	for _, o := range unarmed {
		assert.NotEqual(t, "shoot", o.Value.Name(), "unit without a weapon must not be offered Shoot")
	}

	outnumbered := a.Options(Snapshot{Health: 0.1, Enemies: []Contact{near, weak}})
	last := outnumbered[len(outnumbered)-1].Value
	require.IsType(t, command.Flee{}, last)
	assert.Equal(t, r3.Vec{X: 10}, last.(command.Flee).From)
}

func TestSkirmishDecideAlwaysProduces(t *testing.T) {
	a := NewSkirmishAI(skirmishConfig(), 20, 4, newRand(), slog.Default())
	for range 100 {
		cmd, ok := a.Decide(Snapshot{Health: 1})
		require.True(t, ok)
		assert.Equal(t, "idle", cmd.Name())
	}
}

type marker struct{}

func entities(n int) []ecs.Entity {
	m := ecs.NewMap1[marker](ecs.NewWorld())
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = m.NewEntity(&marker{})
	}
	return out
}

func TestPlayerAICycle(t *testing.T) {
	red := team.New("red", "#f00")
	blue := team.New("blue", "#00f")
	keep := team.NewCity("red-keep", r3.Vec{X: 10}, red)
	target := team.NewCity("blue-keep", r3.Vec{X: 400}, blue)

	cfg := config.PlayerAIConfig{SpawnBelow: 5, AttackAt: 3, AttackCooldown: 2}
	p := NewPlayerAI(cfg, "twirl", 10, newRand(), slog.Default())
	army := entities(4)

	view := PlayerView{Team: red, Gold: 100, ArmySize: 1, Mobiles: army[:1], OwnedCities: []*team.City{keep}, EnemyCities: []*team.City{target}}

	// Cooldown ticks spawn while below the threshold
	cmd, ok := p.Decide(view)
	require.True(t, ok)
	assert.Equal(t, command.SpawnUnit{Kind: "twirl", City: keep}, cmd)
	assert.Equal(t, 1, p.Cooldown())

	view.Gold = 5
	_, ok = p.Decide(view)
	assert.False(t, ok, "cannot afford a spawn")
	assert.Zero(t, p.Cooldown())

	view.ArmySize, view.Mobiles = 4, army
	cmd, ok = p.Decide(view)
	require.True(t, ok)
	assert.Equal(t, command.SendUnitsToLocation{Units: army, Point: target.Position}, cmd)
	assert.Equal(t, 2, p.Cooldown())
	assert.Same(t, target, p.Target())
}

func TestPlayerAINoEnemyCities(t *testing.T) {
	red := team.New("red", "#f00")
	keep := team.NewCity("red-keep", r3.Vec{}, red)
	p := NewPlayerAI(config.PlayerAIConfig{SpawnBelow: 10, AttackAt: 1}, "twirl", 10, newRand(), slog.Default())

	view := PlayerView{Team: red, Gold: 100, ArmySize: 12, OwnedCities: []*team.City{keep}}
	_, ok := p.Decide(view)
	assert.False(t, ok)
	assert.Nil(t, p.Target())
}

func TestPlayerAIDropsCapturedTarget(t *testing.T) {
	red := team.New("red", "#f00")
	blue := team.New("blue", "#00f")
	target := team.NewCity("blue-keep", r3.Vec{X: 400}, blue)
	p := NewPlayerAI(config.PlayerAIConfig{AttackAt: 1, AttackCooldown: 5}, "twirl", 10, newRand(), slog.Default())
	army := entities(1)

	_, ok := p.Decide(PlayerView{Team: red, ArmySize: 1, Mobiles: army, EnemyCities: []*team.City{target}})
	require.True(t, ok)
	require.Same(t, target, p.Target())

	team.Transfer(target, red)
	p.Decide(PlayerView{Team: red, ArmySize: 1, Mobiles: army})
	assert.Nil(t, p.Target())
}

func TestRuleAI(t *testing.T) {
	red := team.New("red", "#f00")
	blue := team.New("blue", "#00f")
	keep := team.NewCity("red-keep", r3.Vec{X: 10}, red)
	far := team.NewCity("far", r3.Vec{X: 500}, blue)
	nearby := team.NewCity("close", r3.Vec{X: 100}, blue)

	a, err := NewRuleAI([]config.RuleConfig{
		{Name: "build", When: "Gold >= 25 && ArmySize < 3", Do: "spawn", Unit: "infantry"},
		{Name: "attack", When: "ArmySize >= 3 && EnemyCities > 0", Do: "attack"},
	}, slog.Default())
	require.NoError(t, err)

	view := PlayerView{Team: red, Gold: 30, ArmySize: 0, OwnedCities: []*team.City{keep}, EnemyCities: []*team.City{far, nearby}}
	cmd, ok := a.Decide(view)
	require.True(t, ok)
	assert.Equal(t, command.SpawnUnit{Kind: "infantry", City: keep}, cmd)

	view.Gold = 10
	_, ok = a.Decide(view)
	assert.False(t, ok)

	army := entities(3)
	view.ArmySize, view.Mobiles = 3, army
	cmd, ok = a.Decide(view)
	require.True(t, ok)
	assert.Equal(t, command.SendUnitsToLocation{Units: army, Point: nearby.Position}, cmd)
}

func TestRuleAIRejectsBadExpression(t *testing.T) {
	_, err := NewRuleAI([]config.RuleConfig{{Name: "bad", When: "Gold +", Do: "attack"}}, slog.Default())
	assert.Error(t, err)

	_, err = NewRuleAI([]config.RuleConfig{{Name: "not-bool", When: "Gold + 1", Do: "attack"}}, slog.Default())
	assert.Error(t, err)
}
