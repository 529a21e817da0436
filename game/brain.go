package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/ai"
	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/config"
	"github.com/pthm-cable/smashbloc/sched"
	"github.com/pthm-cable/smashbloc/systems"
	"github.com/pthm-cable/smashbloc/team"
	"github.com/pthm-cable/smashbloc/telemetry"
)

// unitBrain is the per-activation decision state of one unit. Decision ticks
// are serialized by thinkMu; neighbors is scratch space guarded by scratchMu
// because sampling runs under the shared read lock.
type unitBrain struct {
	ref     components.UnitRef
	id      int
	team    *team.Team
	arch    *config.UnitConfig
	decider ai.UnitDecider
	slot    command.Slot[command.Unit]
	rng     *rand.Rand

	thinkMu   sync.Mutex
	scratchMu sync.Mutex
	neighbors []systems.Neighbor
	task      *sched.Task
}

// newUnitBrain builds the decider named by the unit's archetype. The caller
// must hold mu.
func (s *Simulation) newUnitBrain(ref components.UnitRef, t *team.Team, arch *config.UnitConfig) *unitBrain {
	rng := s.childRandLocked()
	b := &unitBrain{
		ref:       ref,
		id:        s.unitMap.Get(ref.Entity).ID,
		team:      t,
		arch:      arch,
		rng:       rng,
		neighbors: make([]systems.Neighbor, 0, s.cfg.Physics.MaxNeighbors),
	}
	switch arch.AI {
	case "skirmish":
		b.decider = ai.NewSkirmishAI(s.cfg.SkirmishAI, s.cfg.Decision.IdleDeviation, s.cfg.Decision.MoveDeviation,
			rng, s.logger.With("unit", b.id))
	default:
		b.decider = ai.IdleAI{Deviation: s.cfg.Decision.IdleDeviation}
	}
	return b
}

// thinkUnit runs one decision tick: sample, decide, offer, then execute under
// the world lock if the unit is still the same activation.
func (s *Simulation) thinkUnit(ctx context.Context, b *unitBrain) {
	b.thinkMu.Lock()
	defer b.thinkMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("decision panicked", "unit", b.id, "team", b.team.Name, "panic", r)
			s.decisionFailed(ctx, b)
		}
	}()

	snap, ok := s.sample(b)
	if !ok {
		return
	}
	cmd, ok := b.decider.Decide(snap)
	if !ok {
		return
	}
	if b.slot.Offer(cmd) {
		s.logger.Debug("pending command replaced", "unit", b.id, "command", cmd.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked(b.ref) {
		return
	}
	pending, ok := b.slot.Take()
	if !ok {
		return
	}
	s.executeLocked(ctx, b, pending)
}

// executeLocked applies cmd to the unit behind b. The caller must hold mu and
// have checked that b is live.
func (s *Simulation) executeLocked(ctx context.Context, b *unitBrain, cmd command.Unit) error {
	s.collector.Record(telemetry.NewUnitEvent(telemetry.EventDecision, s.tick, b.team.Name, b.id))
	s.metrics.Decision(ctx, b.team.Name)
	s.lifetime.RecordDecision(b.id)

	err := s.executor.Act(cmd, &unitBody{s: s, b: b})
	switch {
	case err == nil:
		s.collector.Record(telemetry.NewUnitEvent(telemetry.EventCommand, s.tick, b.team.Name, b.id))
		s.metrics.Command(ctx, cmd.Name())
	case errors.Is(err, command.ErrUnsupported):
		s.logger.Warn("command not supported by unit", "unit", b.id, "kind", b.arch.Name,
			"command", cmd.Name(), "error", err)
		s.decisionFailedLocked(ctx, b)
	default:
		s.logger.Debug("command failed", "unit", b.id, "command", cmd.Name(), "error", err)
	}
	return err
}

func (s *Simulation) decisionFailed(ctx context.Context, b *unitBrain) {
	s.collector.Record(telemetry.NewUnitEvent(telemetry.EventDecisionError, s.Tick(), b.team.Name, b.id))
	s.metrics.DecisionError(ctx, b.team.Name)
}

func (s *Simulation) decisionFailedLocked(ctx context.Context, b *unitBrain) {
	s.collector.Record(telemetry.NewUnitEvent(telemetry.EventDecisionError, s.tick, b.team.Name, b.id))
	s.metrics.DecisionError(ctx, b.team.Name)
}

// sample builds the decision snapshot for b under a read lock. It reports
// false when the unit is no longer the activation b was created for.
func (s *Simulation) sample(b *unitBrain) (ai.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.liveLocked(b.ref) {
		return ai.Snapshot{}, false
	}

	e := b.ref.Entity
	pos := s.posMap.Get(e).Vec
	steer := s.steerMap.Get(e)
	combat := s.combatMap.Get(e)

	snap := ai.Snapshot{
		Self:            b.ref,
		Team:            b.team,
		Health:          combat.HealthFraction(),
		Damage:          combat.Damage,
		CanShoot:        b.arch.CanShoot,
		Position:        pos,
		Destination:     steer.Destination,
		PointOfInterest: steer.PointOfInterest,
	}

	b.scratchMu.Lock()
	defer b.scratchMu.Unlock()
	b.neighbors = s.grid.QueryRadiusInto(b.neighbors[:0], pos, combat.SightRange, e, s.cfg.Physics.MaxNeighbors)
	rangeSq := combat.AttackRange * combat.AttackRange
	for _, n := range b.neighbors {
		if !s.activeMap.Has(n.E) {
			continue
		}
		other := s.combatMap.Get(n.E)
		c := ai.Contact{
			Ref:      components.UnitRef{Entity: n.E, Generation: s.unitMap.Get(n.E).Generation},
			Position: s.posMap.Get(n.E).Vec,
			Health:   other.HealthFraction(),
		}
		if b.team.Equal(s.memMap.Get(n.E).Team) {
			snap.Allies = append(snap.Allies, c)
			continue
		}
		snap.Enemies = append(snap.Enemies, c)
		if r3.Norm2(r3.Sub(c.Position, pos)) <= rangeSq {
			snap.InRange = append(snap.InRange, c)
		}
	}
	return snap, true
}

// Sample returns the decision snapshot the unit's AI would see now.
func (s *Simulation) Sample(ref components.UnitRef) (ai.Snapshot, bool) {
	b := s.brain(ref)
	if b == nil {
		return ai.Snapshot{}, false
	}
	return s.sample(b)
}

// ThinkUnit runs one decision tick for ref synchronously, outside its loop.
// It reports false when ref is not active. Ticks of the same unit never
// overlap.
func (s *Simulation) ThinkUnit(ref components.UnitRef) bool {
	b := s.brain(ref)
	if b == nil {
		return false
	}
	s.thinkUnit(s.ctx, b)
	return true
}

// Order executes cmd for ref immediately, bypassing the unit's AI.
func (s *Simulation) Order(ref components.UnitRef, cmd command.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked(ref) {
		return fmt.Errorf("%w: unit %d", ErrTargetGone, ref.Entity.ID())
	}
	return s.executeLocked(s.ctx, s.brains[ref.Entity], cmd)
}

func (s *Simulation) brain(ref components.UnitRef) *unitBrain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.liveLocked(ref) {
		return nil
	}
	return s.brains[ref.Entity]
}

// unitBody adapts a live unit to command.Body. Its methods run under mu.
type unitBody struct {
	s *Simulation
	b *unitBrain
}

func (u *unitBody) entity() ecs.Entity { return u.b.ref.Entity }

func (u *unitBody) Position() r3.Vec { return u.s.posMap.Get(u.entity()).Vec }

func (u *unitBody) SetDestination(p r3.Vec) {
	steer := u.s.steerMap.Get(u.entity())
	p.Y = u.s.terrain.Height(p.X, p.Z)
	steer.Destination = p
	steer.HasDestination = true
}

func (u *unitBody) SetPointOfInterest(p r3.Vec) {
	u.s.steerMap.Get(u.entity()).PointOfInterest = p
}

func (u *unitBody) Shoot(target components.UnitRef, maxAimTime float64) error {
	return u.s.shootLocked(u.b, target, maxAimTime)
}

func (u *unitBody) Rand() *rand.Rand { return u.b.rng }
