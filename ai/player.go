package ai

import (
	"log/slog"
	"math/rand/v2"

	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/config"
	"github.com/pthm-cable/smashbloc/team"
)

// PlayerAI is the basic player controller. It builds an army between attacks
// and sends the whole roster at a cached enemy city whenever the attack
// cooldown has elapsed and the army is large enough.
type PlayerAI struct {
	cfg      config.PlayerAIConfig
	kind     string
	cost     int
	rng      *rand.Rand
	logger   *slog.Logger
	cooldown int
	target   *team.City
}

// NewPlayerAI creates a basic player AI spawning kind, which costs cost gold.
func NewPlayerAI(cfg config.PlayerAIConfig, kind string, cost int, rng *rand.Rand, logger *slog.Logger) *PlayerAI {
	return &PlayerAI{
		cfg:      cfg,
		kind:     kind,
		cost:     cost,
		rng:      rng,
		logger:   logger,
		cooldown: cfg.AttackCooldown,
	}
}

// Cooldown returns the remaining decision ticks before the next attack.
func (p *PlayerAI) Cooldown() int { return p.cooldown }

// Target returns the cached enemy city, or nil.
func (p *PlayerAI) Target() *team.City { return p.target }

// Decide implements PlayerDecider.
func (p *PlayerAI) Decide(v PlayerView) (command.Player, bool) {
	// A captured target is no longer worth attacking
	if p.target != nil && v.Team.Owns(p.target) {
		p.target = nil
	}

	if p.cooldown > 0 {
		p.cooldown--
		return p.spawn(v)
	}

	if p.target == nil {
		if len(v.EnemyCities) == 0 {
			p.logger.Warn("no enemy city to attack", "team", v.Team.Name)
			return p.spawn(v)
		}
		p.target = v.EnemyCities[p.rng.IntN(len(v.EnemyCities))]
	}

	if v.ArmySize >= p.cfg.AttackAt && v.ArmySize > 0 {
		p.cooldown = p.cfg.AttackCooldown
		p.logger.Info("attacking", "team", v.Team.Name, "city", p.target.Name, "army", v.ArmySize)
		return command.SendUnitsToLocation{Units: v.Mobiles, Point: p.target.Position}, true
	}
	return p.spawn(v)
}

func (p *PlayerAI) spawn(v PlayerView) (command.Player, bool) {
	if v.ArmySize >= p.cfg.SpawnBelow || len(v.OwnedCities) == 0 || v.Gold < p.cost {
		return nil, false
	}
	city := v.OwnedCities[p.rng.IntN(len(v.OwnedCities))]
	return command.SpawnUnit{Kind: p.kind, City: city}, true
}
