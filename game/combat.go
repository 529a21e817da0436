package game

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/telemetry"
)

var (
	// ErrTargetGone is returned when a referenced unit is no longer in play.
	ErrTargetGone = errors.New("target not active")
	// ErrOutOfRange is returned when the target is beyond attack range.
	ErrOutOfRange = errors.New("target out of range")
	// ErrWeaponCooling is returned when the weapon has not reloaded yet.
	ErrWeaponCooling = errors.New("weapon cooling down")
)

// shootLocked resolves a shot from b at target. The projectile is hitscan
// but a shot whose flight time exceeds maxAimTime misses. The caller must
// hold mu.
func (s *Simulation) shootLocked(b *unitBrain, target components.UnitRef, maxAimTime float64) error {
	if !b.arch.CanShoot {
		return fmt.Errorf("%w: %s cannot shoot", command.ErrUnsupported, b.arch.Name)
	}
	if !s.liveLocked(target) {
		return ErrTargetGone
	}

	e := b.ref.Entity
	combat := s.combatMap.Get(e)
	if s.simTime-combat.LastFired < combat.Cooldown {
		return ErrWeaponCooling
	}
	dist := r3.Norm(r3.Sub(s.posMap.Get(target.Entity).Vec, s.posMap.Get(e).Vec))
	if dist > combat.AttackRange {
		return fmt.Errorf("%w: %.1f > %.1f", ErrOutOfRange, dist, combat.AttackRange)
	}

	combat.LastFired = s.simTime
	s.collector.Record(telemetry.NewUnitEvent(telemetry.EventShot, s.tick, b.team.Name, b.id))

	flight := 0.0
	if b.arch.ProjectileSpeed > 0 {
		flight = dist / b.arch.ProjectileSpeed
	}
	targetID := s.unitMap.Get(target.Entity).ID
	if flight > maxAimTime {
		s.lifetime.RecordShot(b.id, targetID, false, 0, false)
		return nil
	}

	victim := s.combatMap.Get(target.Entity)
	victim.Health -= combat.Damage
	killed := victim.Health <= 0
	s.collector.Record(telemetry.NewUnitEvent(telemetry.EventHit, s.tick, b.team.Name, b.id))
	s.lifetime.RecordShot(b.id, targetID, true, combat.Damage, killed)
	if !killed {
		return nil
	}

	victimTeam := s.memMap.Get(target.Entity).Team
	s.collector.Record(telemetry.NewUnitEvent(telemetry.EventKill, s.tick, b.team.Name, b.id))
	if victimTeam != nil {
		s.collector.Record(telemetry.NewUnitEvent(telemetry.EventDeath, s.tick, victimTeam.Name, targetID))
		s.metrics.Death(s.ctx, victimTeam.Name)
	}
	s.deactivateLocked(target.Entity, "killed")
	return nil
}
