package game

import (
	"context"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/ai"
	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/sched"
	"github.com/pthm-cable/smashbloc/team"
	"github.com/pthm-cable/smashbloc/telemetry"
)

type playerBrain struct {
	player  *team.Player
	decider ai.PlayerDecider
	slot    command.Slot[command.Player]
	task    *sched.Task
}

func (s *Simulation) startPlayer(pb *playerBrain) {
	interval := s.cfg.Derived.PlayerInterval
	delay := interval
	if j := s.cfg.Derived.DecisionJitter; j > 0 {
		s.mu.Lock()
		delay += time.Duration(s.rng.Int64N(int64(j)))
		s.mu.Unlock()
	}
	pb.task = s.tasks.Start(delay, interval, func(ctx context.Context) {
		s.thinkPlayer(ctx, pb)
	})
}

// thinkPlayer runs one player decision tick. Player commands take the
// player's lock before the world lock, so nothing here holds mu.
func (s *Simulation) thinkPlayer(ctx context.Context, pb *playerBrain) {
	name := pb.player.Team().Name
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("player decision panicked", "team", name, "panic", r)
			s.collector.Record(telemetry.NewTeamEvent(telemetry.EventDecisionError, s.Tick(), name))
			s.metrics.DecisionError(ctx, name)
		}
	}()

	cmd, ok := pb.decider.Decide(s.PlayerView(pb.player))
	if !ok {
		return
	}
	pb.slot.Offer(cmd)
	pending, ok := pb.slot.Take()
	if !ok {
		return
	}

	s.metrics.Decision(ctx, name)
	if err := s.pexec.Act(pending, pb.player); err != nil {
		s.logger.Debug("player command failed", "team", name, "command", pending.Name(), "error", err)
		s.metrics.DecisionError(ctx, name)
		return
	}
	s.collector.Record(telemetry.NewTeamEvent(telemetry.EventCommand, s.Tick(), name))
	s.metrics.Command(ctx, pending.Name())
}

// ThinkPlayer runs one decision tick for p synchronously. It reports false
// when p has no AI controller.
func (s *Simulation) ThinkPlayer(p *team.Player) bool {
	for _, pb := range s.pbrains {
		if pb.player == p {
			s.thinkPlayer(s.ctx, pb)
			return true
		}
	}
	return false
}

// PlayerView builds the state a player AI decides on. It does not take the
// world lock.
func (s *Simulation) PlayerView(p *team.Player) ai.PlayerView {
	t := p.Team()
	v := ai.PlayerView{
		Team:        t,
		Gold:        p.Gold(),
		Mobiles:     t.Mobiles(),
		OwnedCities: t.Cities(),
	}
	v.ArmySize = len(v.Mobiles)
	for _, c := range s.cities {
		if owner := c.Owner(); owner != nil && !owner.Equal(t) {
			v.EnemyCities = append(v.EnemyCities, c)
		}
	}
	return v
}

// Direct points each listed unit that is active and belongs to t at point.
// It implements command.Director.
func (s *Simulation) Direct(t *team.Team, units []ecs.Entity, point r3.Vec) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range units {
		if e == (ecs.Entity{}) || !s.activeMap.Has(e) || !t.Equal(s.memMap.Get(e).Team) {
			continue
		}
		steer := s.steerMap.Get(e)
		dest := command.RandomInDisc(s.rng, point, s.cfg.Decision.MoveDeviation)
		dest.Y = s.terrain.Height(dest.X, dest.Z)
		steer.PointOfInterest = point
		steer.Destination = dest
		steer.HasDestination = true
		n++
	}
	return n
}

// Payday credits every player with income for the cities its team owns.
func (s *Simulation) Payday() {
	per := s.cfg.Economy.IncomePerCity
	for _, p := range s.players {
		if n := len(p.Team().Cities()); n > 0 {
			p.AddGold(per * n)
		}
	}
}
