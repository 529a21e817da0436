package command

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/team"
)

// ErrUnsupported is returned when a body cannot perform the requested action.
var ErrUnsupported = errors.New("unsupported action")

// Body is the unit-side surface commands act on. Implementations are only
// called while the caller holds whatever lock guards the unit's state.
type Body interface {
	Position() r3.Vec
	SetDestination(r3.Vec)
	SetPointOfInterest(r3.Vec)
	// Shoot fires at target. Bodies without a weapon return ErrUnsupported.
	Shoot(target components.UnitRef, maxAimTime float64) error
	Rand() *rand.Rand
}

// UnitExecutor applies unit commands to bodies.
type UnitExecutor struct{}

// Act executes cmd against b.
func (UnitExecutor) Act(cmd Unit, b Body) error {
	switch c := cmd.(type) {
	case Move:
		b.SetPointOfInterest(c.Target)
		b.SetDestination(RandomInDisc(b.Rand(), c.Target, c.Deviation))
	case Idle:
		b.SetDestination(RandomInDisc(b.Rand(), c.Anchor, c.Deviation))
	case Flee:
		b.SetDestination(fleePoint(b.Rand(), b.Position(), c.From, c.Distance))
	case Shoot:
		return b.Shoot(c.Target, c.MaxAimTime)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, cmd)
	}
	return nil
}

// RandomInDisc returns a uniformly distributed point within radius of center
// in the horizontal plane, at center's height.
func RandomInDisc(rng *rand.Rand, center r3.Vec, radius float64) r3.Vec {
	if radius <= 0 {
		return center
	}
	r := radius * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	return r3.Vec{
		X: center.X + r*math.Cos(theta),
		Y: center.Y,
		Z: center.Z + r*math.Sin(theta),
	}
}

func fleePoint(rng *rand.Rand, pos, from r3.Vec, distance float64) r3.Vec {
	away := r3.Vec{X: pos.X - from.X, Z: pos.Z - from.Z}
	n := r3.Norm(away)
	if n == 0 {
		theta := 2 * math.Pi * rng.Float64()
		away, n = r3.Vec{X: math.Cos(theta), Z: math.Sin(theta)}, 1
	}
	return r3.Add(pos, r3.Scale(distance/n, away))
}

// Director points a team's units at a location.
type Director interface {
	// Direct sets the point of interest of each listed unit that is active and
	// belongs to t, returning how many were redirected.
	Direct(t *team.Team, units []ecs.Entity, point r3.Vec) int
}

// PlayerExecutor applies player commands.
type PlayerExecutor struct {
	director Director
	logger   *slog.Logger
}

// NewPlayerExecutor creates a player executor.
func NewPlayerExecutor(director Director, logger *slog.Logger) *PlayerExecutor {
	return &PlayerExecutor{director: director, logger: logger}
}

// Act executes cmd on behalf of p. A spawn at a city the team does not own is
// logged and leaves the player's gold and roster untouched.
func (x *PlayerExecutor) Act(cmd Player, p *team.Player) error {
	switch c := cmd.(type) {
	case SpawnUnit:
		p.SetUnitToSpawn(c.Kind)
		if err := p.SetCityToSpawnAt(c.City); err != nil {
			x.logger.Warn("spawn at unowned city ignored", "team", p.Team().Name, "kind", c.Kind, "error", err)
			return err
		}
		if _, err := p.SpawnUnit(); err != nil {
			if errors.Is(err, team.ErrCityNotOwned) {
				x.logger.Warn("spawn at unowned city ignored", "team", p.Team().Name, "kind", c.Kind, "error", err)
			}
			return err
		}
	case SendUnitsToLocation:
		n := x.director.Direct(p.Team(), c.Units, c.Point)
		x.logger.Debug("units sent", "team", p.Team().Name, "requested", len(c.Units), "sent", n,
			"x", c.Point.X, "z", c.Point.Z)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, cmd)
	}
	return nil
}
