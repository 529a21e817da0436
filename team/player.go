package team

import (
	"fmt"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// Spawner activates a pooled unit of kind for a team at a position.
type Spawner interface {
	Spawn(kind string, t *Team, at r3.Vec) (ecs.Entity, error)
}

// PriceList resolves unit costs.
type PriceList interface {
	UnitCost(kind string) (int, bool)
}

// Player owns a team's treasury and spawn orders.
type Player struct {
	team    *Team
	spawner Spawner
	prices  PriceList

	mu          sync.Mutex
	gold        int
	unitToSpawn string
	spawnCity   *City
}

// NewPlayer creates a player for t with a starting treasury.
func NewPlayer(t *Team, gold int, spawner Spawner, prices PriceList) *Player {
	return &Player{team: t, gold: gold, spawner: spawner, prices: prices}
}

// Team returns the player's team.
func (p *Player) Team() *Team { return p.team }

// Gold returns the current treasury.
func (p *Player) Gold() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gold
}

// AddGold credits (or debits, for negative n) the treasury.
func (p *Player) AddGold(n int) {
	p.mu.Lock()
	p.gold += n
	p.mu.Unlock()
}

// SetUnitToSpawn selects the kind built by the next SpawnUnit.
func (p *Player) SetUnitToSpawn(kind string) {
	p.mu.Lock()
	p.unitToSpawn = kind
	p.mu.Unlock()
}

// SetCityToSpawnAt selects the city used by the next SpawnUnit. The city must
// be owned by the player's team at call time.
func (p *Player) SetCityToSpawnAt(c *City) error {
	if !p.team.Owns(c) {
		return fmt.Errorf("%w: %s", ErrCityNotOwned, cityName(c))
	}
	p.mu.Lock()
	p.spawnCity = c
	p.mu.Unlock()
	return nil
}

// SpawnUnit pays for and activates the selected unit at the selected city.
// Gold is refunded if activation fails.
func (p *Player) SpawnUnit() (ecs.Entity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unitToSpawn == "" || p.spawnCity == nil {
		return ecs.Entity{}, ErrNoSpawnOrder
	}
	// Ownership can change between selection and spawn
	if !p.team.Owns(p.spawnCity) {
		return ecs.Entity{}, fmt.Errorf("%w: %s", ErrCityNotOwned, p.spawnCity.Name)
	}
	cost, ok := p.prices.UnitCost(p.unitToSpawn)
	if !ok {
		return ecs.Entity{}, fmt.Errorf("%w: %s", ErrUnknownKind, p.unitToSpawn)
	}
	if p.gold < cost {
		return ecs.Entity{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientGold, p.gold, cost)
	}

	p.gold -= cost
	e, err := p.spawner.Spawn(p.unitToSpawn, p.team, p.spawnCity.Position)
	if err != nil {
		p.gold += cost
		return ecs.Entity{}, fmt.Errorf("spawning %s: %w", p.unitToSpawn, err)
	}
	return e, nil
}

func cityName(c *City) string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}
