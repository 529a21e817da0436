// Package team provides teams, their cities and the players that command them.
package team

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrCityNotOwned is returned when a player acts through a city its team does not own.
	ErrCityNotOwned = errors.New("city not owned by team")
	// ErrInsufficientGold is returned when a spawn costs more than the player holds.
	ErrInsufficientGold = errors.New("insufficient gold")
	// ErrNoSpawnOrder is returned by SpawnUnit before a kind and city have been set.
	ErrNoSpawnOrder = errors.New("no unit or city selected")
	// ErrUnknownKind is returned for a unit kind without a price.
	ErrUnknownKind = errors.New("unknown unit kind")
)

// ID uniquely identifies a team. Two teams are the same team iff their IDs match.
type ID = uuid.UUID

// Team is a faction with a roster of mobile units and cities.
type Team struct {
	id      ID
	Name    string
	Color   string
	mobiles Roster[ecs.Entity]
	cities  Roster[*City]
}

// New creates a team with a fresh random ID.
func New(name, color string) *Team {
	return &Team{id: uuid.New(), Name: name, Color: color}
}

// ID returns the team's unique identifier.
func (t *Team) ID() ID { return t.id }

// Equal compares teams by ID only. Two distinct teams sharing a name and
// color are not equal.
func (t *Team) Equal(o *Team) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.id == o.id
}

// Mobiles returns a snapshot of the team's active units.
func (t *Team) Mobiles() []ecs.Entity { return t.mobiles.Snapshot() }

// ArmySize returns the number of active units.
func (t *Team) ArmySize() int { return t.mobiles.Len() }

// AddMobile records an activated unit.
func (t *Team) AddMobile(e ecs.Entity) bool { return t.mobiles.Add(e) }

// RemoveMobile drops a deactivated unit.
func (t *Team) RemoveMobile(e ecs.Entity) bool { return t.mobiles.Remove(e) }

// Cities returns a snapshot of the cities the team owns.
func (t *Team) Cities() []*City { return t.cities.Snapshot() }

// Owns reports whether c currently belongs to the team.
func (t *Team) Owns(c *City) bool {
	return c != nil && t.Equal(c.Owner())
}

// City is a capturable location where units spawn.
type City struct {
	Name     string
	Position r3.Vec

	mu    sync.RWMutex
	owner *Team
}

// NewCity creates a city owned by owner and registers it with the owner.
func NewCity(name string, pos r3.Vec, owner *Team) *City {
	c := &City{Name: name, Position: pos}
	if owner != nil {
		Transfer(c, owner)
	}
	return c
}

// Owner returns the current owning team, or nil.
func (c *City) Owner() *Team {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Transfer moves a city to a new owner, updating both teams' rosters.
func Transfer(c *City, to *Team) {
	c.mu.Lock()
	from := c.owner
	c.owner = to
	c.mu.Unlock()

	if from != nil {
		from.cities.Remove(c)
	}
	if to != nil {
		to.cities.Add(c)
	}
}
