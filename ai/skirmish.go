package ai

import (
	"log/slog"
	"math/rand/v2"

	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/config"
)

// SkirmishAI picks among idling, closing in, shooting and fleeing with
// weights gated on what the unit can currently see.
type SkirmishAI struct {
	cfg           config.SkirmishAIConfig
	idleDeviation float64
	moveDeviation float64
	rng           *rand.Rand
	logger        *slog.Logger
}

// NewSkirmishAI creates a skirmish AI drawing from rng.
func NewSkirmishAI(cfg config.SkirmishAIConfig, idleDeviation, moveDeviation float64, rng *rand.Rand, logger *slog.Logger) *SkirmishAI {
	return &SkirmishAI{
		cfg:           cfg,
		idleDeviation: idleDeviation,
		moveDeviation: moveDeviation,
		rng:           rng,
		logger:        logger,
	}
}

// Options returns the weighted candidates for s.
func (a *SkirmishAI) Options(s Snapshot) []Option[command.Unit] {
	opts := make([]Option[command.Unit], 0, 4)
	opts = append(opts, Option[command.Unit]{
		Value:  command.Idle{Anchor: s.PointOfInterest, Deviation: a.idleDeviation},
		Weight: a.cfg.IdleWeight,
	})
	if len(s.Enemies) > 0 {
		target := nearest(s.Position, s.Enemies)
		opts = append(opts, Option[command.Unit]{
			Value:  command.Move{Target: target.Position, Deviation: a.moveDeviation},
			Weight: a.cfg.MoveWeight,
		})
	}
	if s.CanShoot && len(s.InRange) > 0 {
		target := weakest(s.InRange)
		opts = append(opts, Option[command.Unit]{
			Value:  command.Shoot{Target: target.Ref, MaxAimTime: a.cfg.MaxAimTime},
			Weight: a.cfg.ShootWeight,
		})
	}
	if s.Health < a.cfg.FleeHealth && len(s.Enemies) > len(s.Allies) {
		opts = append(opts, Option[command.Unit]{
			Value:  command.Flee{From: centroid(s.Enemies), Distance: a.cfg.FleeDistance},
			Weight: a.cfg.FleeWeight,
		})
	}
	return opts
}

// Decide implements UnitDecider.
func (a *SkirmishAI) Decide(s Snapshot) (command.Unit, bool) {
	cmd, err := WeightedChoice(a.rng, a.Options(s))
	if err != nil {
		a.logger.Warn("skirmish choice failed", "error", err)
		return nil, false
	}
	return cmd, true
}
