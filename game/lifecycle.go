package game

import (
	"context"
	"fmt"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/pool"
	"github.com/pthm-cable/smashbloc/team"
	"github.com/pthm-cable/smashbloc/telemetry"
)

// spawnScatter is the radius around a spawn point new units are placed in,
// so that units spawned together do not coincide.
const spawnScatter = 2.0

// buildPools pre-creates cfg.Pool.PerKind inactive entities per unit kind.
// The caller must hold mu.
func (s *Simulation) buildPools() {
	s.pools = make([]*pool.Pool[ecs.Entity], len(s.cfg.Units))
	for i := range s.cfg.Units {
		kind := uint8(i)
		s.pools[i] = pool.New(s.cfg.Units[i].Name, s.cfg.Pool.PerKind, func(slot int) ecs.Entity {
			return s.newPooledUnit(kind, slot)
		}, s.logger)
	}
}

// newPooledUnit creates an inactive unit entity. It runs under mu, either
// while pools are built or when a pool is exhausted during a spawn.
func (s *Simulation) newPooledUnit(kind uint8, slot int) ecs.Entity {
	arch := &s.cfg.Units[kind]
	s.nextID++

	pos := components.Position{}
	vel := components.Velocity{}
	body := components.BodyFromArchetype(arch)
	steer := components.Steering{}
	member := components.Membership{}
	forces := components.Forces{}
	unit := components.Unit{ID: s.nextID, Slot: slot, Kind: kind}

	e := s.unitMapper.NewEntity(&pos, &vel, &body, &steer, &member, &forces, &unit)
	combat := components.CombatFromArchetype(arch)
	s.combatMap.Add(e, &combat)
	return e
}

// Spawn activates a pooled unit of kind for t near at. It implements
// team.Spawner and is the only way units enter play.
func (s *Simulation) Spawn(kind string, t *team.Team, at r3.Vec) (ecs.Entity, error) {
	idx, ok := s.cfg.Derived.UnitIndex[kind]
	if !ok {
		return ecs.Entity{}, fmt.Errorf("%w: %s", team.ErrUnknownKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ecs.Entity{}, ErrClosed
	}
	return s.activateLocked(idx, t, at), nil
}

// activateLocked rents a unit, resets it for a new life and starts its
// decision loop. The caller must hold mu.
func (s *Simulation) activateLocked(kind uint8, t *team.Team, at r3.Vec) ecs.Entity {
	arch := &s.cfg.Units[kind]
	_, e, _ := s.pools[kind].Rent()

	// Adding the tag moves the entity to another archetype, so component
	// pointers are only taken after it.
	s.activeMap.Add(e, &components.Active{})

	unit := s.unitMap.Get(e)
	unit.Generation++
	id, gen := unit.ID, unit.Generation
	ref := components.UnitRef{Entity: e, Generation: gen}

	spawnAt := command.RandomInDisc(s.rng, at, spawnScatter)
	spawnAt.Y = s.terrain.Height(spawnAt.X, spawnAt.Z) + s.cfg.Hover.TargetAltitude

	*s.posMap.Get(e) = components.Position{Vec: spawnAt}
	*s.velMap.Get(e) = components.Velocity{}
	*s.bodyMap.Get(e) = components.BodyFromArchetype(arch)
	*s.steerMap.Get(e) = components.Steering{Destination: spawnAt, PointOfInterest: at}
	*s.forcesMap.Get(e) = components.Forces{}
	*s.memMap.Get(e) = components.Membership{Team: t}

	combat := s.combatMap.Get(e)
	*combat = components.CombatFromArchetype(arch)
	combat.LastFired = s.simTime - combat.Cooldown

	t.AddMobile(e)

	b := s.newUnitBrain(ref, t, arch)
	s.brains[e] = b
	delay := s.cfg.Derived.DecisionInterval
	if j := s.cfg.Derived.DecisionJitter; j > 0 {
		delay += time.Duration(s.rng.Int64N(int64(j)))
	}
	b.task = s.tasks.Start(delay, s.cfg.Derived.DecisionInterval, func(ctx context.Context) {
		s.thinkUnit(ctx, b)
	})

	s.lifetime.Register(id, arch.Name, t.Name, s.tick)
	s.collector.Record(telemetry.NewUnitEvent(telemetry.EventSpawn, s.tick, t.Name, id))
	s.metrics.Spawn(s.ctx, t.Name, arch.Name)
	s.logger.Debug("unit activated", "unit", id, "kind", arch.Name, "team", t.Name,
		"generation", gen, "x", spawnAt.X, "z", spawnAt.Z)
	return e
}

// OnDeactivate registers fn to run whenever a unit leaves play. Hooks run
// under the world lock and must not call back into the simulation.
func (s *Simulation) OnDeactivate(fn func(components.UnitRef)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Deactivate takes a unit out of play and returns it to its pool. It
// reports false when ref is stale or already inactive, so repeated calls
// are harmless.
func (s *Simulation) Deactivate(ref components.UnitRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked(ref) {
		return false
	}
	s.deactivateLocked(ref.Entity, "removed")
	return true
}

// deactivateLocked stops the unit's decision loop, detaches it from its team
// and from spatial queries and returns it to the pool. The caller must hold
// mu and have checked that e is active.
func (s *Simulation) deactivateLocked(e ecs.Entity, reason string) {
	// Values are copied out because removing the tag below moves the entity
	// and invalidates component pointers.
	unit := *s.unitMap.Get(e)
	owner := s.memMap.Get(e).Team
	ref := components.UnitRef{Entity: e, Generation: unit.Generation}

	if b, ok := s.brains[e]; ok {
		b.task.Stop()
		delete(s.brains, e)
	}

	// Without the Active tag the unit is skipped by every filter and by
	// sampling, even before the grid is rebuilt.
	s.activeMap.Remove(e)

	if owner != nil {
		owner.RemoveMobile(e)
	}
	s.memMap.Get(e).Team = nil
	*s.velMap.Get(e) = components.Velocity{}
	*s.forcesMap.Get(e) = components.Forces{}
	s.bodyMap.Get(e).Force = r3.Vec{}
	*s.steerMap.Get(e) = components.Steering{}

	s.pools[unit.Kind].Return(unit.Slot)

	if rec := s.lifetime.Remove(unit.ID, s.tick, s.cfg.Physics.DT); rec != nil {
		s.logger.Debug("unit deactivated", "unit", unit.ID, "kind", rec.Kind, "team", rec.Team,
			"reason", reason, "survival_sec", rec.SurvivalTimeSec, "kills", rec.Kills)
	}
	for _, fn := range s.hooks {
		fn(ref)
	}
}

// liveLocked reports whether ref names a unit in its current activation.
// The caller must hold mu.
func (s *Simulation) liveLocked(ref components.UnitRef) bool {
	if ref.Entity == (ecs.Entity{}) || !s.activeMap.Has(ref.Entity) {
		return false
	}
	return s.unitMap.Get(ref.Entity).Generation == ref.Generation
}

// Ref returns the current reference for an active unit entity.
func (s *Simulation) Ref(e ecs.Entity) (components.UnitRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e == (ecs.Entity{}) || !s.activeMap.Has(e) {
		return components.UnitRef{}, false
	}
	return components.UnitRef{Entity: e, Generation: s.unitMap.Get(e).Generation}, true
}

// IsActive reports whether ref is still in play.
func (s *Simulation) IsActive(ref components.UnitRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveLocked(ref)
}
