package ai

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/config"
)

// RuleEnv is the expression environment rules are evaluated against.
type RuleEnv struct {
	Gold        int
	ArmySize    int
	OwnedCities int
	EnemyCities int
	Tick        int
}

type rule struct {
	name    string
	action  string
	unit    string
	program *vm.Program
}

// RuleAI is a player controller driven by ordered expression rules. The
// first rule whose condition holds and whose action is possible fires.
type RuleAI struct {
	rules  []rule
	logger *slog.Logger
	tick   int
}

// NewRuleAI compiles every rule condition to bytecode.
func NewRuleAI(rules []config.RuleConfig, logger *slog.Logger) (*RuleAI, error) {
	compiled := make([]rule, 0, len(rules))
	for _, r := range rules {
		prog, err := expr.Compile(r.When, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, rule{name: r.Name, action: r.Do, unit: r.Unit, program: prog})
	}
	return &RuleAI{rules: compiled, logger: logger}, nil
}

// Decide implements PlayerDecider.
func (a *RuleAI) Decide(v PlayerView) (command.Player, bool) {
	env := RuleEnv{
		Gold:        v.Gold,
		ArmySize:    v.ArmySize,
		OwnedCities: len(v.OwnedCities),
		EnemyCities: len(v.EnemyCities),
		Tick:        a.tick,
	}
	a.tick++

	for _, r := range a.rules {
		result, err := vm.Run(r.program, env)
		if err != nil {
			a.logger.Warn("rule condition error", "rule", r.name, "error", err)
			continue
		}
		if match, ok := result.(bool); !ok || !match {
			continue
		}

		switch r.action {
		case "spawn":
			if len(v.OwnedCities) == 0 {
				continue
			}
			a.logger.Debug("rule fired", "rule", r.name, "team", v.Team.Name)
			return command.SpawnUnit{Kind: r.unit, City: v.OwnedCities[0]}, true
		case "attack":
			if len(v.EnemyCities) == 0 || len(v.Mobiles) == 0 {
				continue
			}
			from := v.EnemyCities[0].Position
			if len(v.OwnedCities) > 0 {
				from = v.OwnedCities[0].Position
			}
			target := nearestCity(from, v.EnemyCities)
			a.logger.Debug("rule fired", "rule", r.name, "team", v.Team.Name, "city", target.Name)
			return command.SendUnitsToLocation{Units: v.Mobiles, Point: target.Position}, true
		}
	}
	return nil, false
}
