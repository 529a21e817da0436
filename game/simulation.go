// Package game wires the ECS world, steering systems, AI loops and teams into
// a running battle.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/ai"
	"github.com/pthm-cable/smashbloc/command"
	"github.com/pthm-cable/smashbloc/components"
	"github.com/pthm-cable/smashbloc/config"
	"github.com/pthm-cable/smashbloc/pool"
	"github.com/pthm-cable/smashbloc/sched"
	"github.com/pthm-cable/smashbloc/systems"
	"github.com/pthm-cable/smashbloc/team"
	"github.com/pthm-cable/smashbloc/telemetry"
)

// ErrClosed is returned by operations on a closed simulation.
var ErrClosed = errors.New("simulation closed")

// Options configures a simulation beyond the loaded config.
type Options struct {
	Seed   uint64
	Logger *slog.Logger

	// Clock drives decision loops and the economy. Nil selects the clock
	// named by decision.clock; a StepClock created that way is advanced by
	// Step. A caller-supplied clock is never advanced by the simulation.
	Clock sched.Clock

	// DisablePlayers skips starting AI player loops.
	DisablePlayers bool

	LogStats    bool
	OutputDir   string
	SnapshotDir string
}

// Simulation is the explicit context object for one battle. It owns the
// world and everything reachable from it.
//
// Lock order: team.Player's mutex, then mu, then team rosters. Code holding
// mu must never call into a team.Player.
type Simulation struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  *sched.Group
	clock  sched.Clock
	// stepClock is non-nil when Step advances the decision clock.
	stepClock *sched.StepClock
	closeOnce sync.Once

	// mu guards the world, the pools, brains, rng, tick and simTime.
	mu     sync.RWMutex
	closed bool
	world  *ecs.World
	rng    *rand.Rand
	nextID int

	unitMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Body,
		components.Steering,
		components.Membership,
		components.Forces,
		components.Unit,
	]
	posMap    *ecs.Map[components.Position]
	velMap    *ecs.Map[components.Velocity]
	bodyMap   *ecs.Map[components.Body]
	steerMap  *ecs.Map[components.Steering]
	memMap    *ecs.Map[components.Membership]
	forcesMap *ecs.Map[components.Forces]
	combatMap *ecs.Map[components.Combat]
	unitMap   *ecs.Map[components.Unit]
	activeMap *ecs.Map[components.Active]

	gridFilter   ecs.Filter2[components.Position, components.Active]
	sampleFilter ecs.Filter4[components.Velocity, components.Combat, components.Unit, components.Active]

	grid     *systems.SpatialGrid
	terrain  *systems.TerrainSystem
	flocking *systems.FlockingSystem
	physics  *systems.PhysicsSystem

	pools    []*pool.Pool[ecs.Entity]
	brains   map[ecs.Entity]*unitBrain
	executor command.UnitExecutor
	hooks    []func(components.UnitRef)

	tick    int32
	simTime float64

	// Teams and players are fixed after construction.
	teams   []*team.Team
	cities  []*team.City
	players []*team.Player
	pbrains []*playerBrain
	pexec   *command.PlayerExecutor

	// Telemetry
	metrics   *telemetry.Metrics
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	lifetime  *telemetry.LifetimeTracker
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager
}

// NewSimulation builds the world, teams and unit pools from cfg and starts the
// AI player loops. Call Close to stop every background task.
func NewSimulation(cfg *config.Config, opts Options) (*Simulation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	world := ecs.NewWorld()

	s := &Simulation{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		world:  world,
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		unitMapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Body,
			components.Steering,
			components.Membership,
			components.Forces,
			components.Unit,
		](world),
		posMap:       ecs.NewMap[components.Position](world),
		velMap:       ecs.NewMap[components.Velocity](world),
		bodyMap:      ecs.NewMap[components.Body](world),
		steerMap:     ecs.NewMap[components.Steering](world),
		memMap:       ecs.NewMap[components.Membership](world),
		forcesMap:    ecs.NewMap[components.Forces](world),
		combatMap:    ecs.NewMap[components.Combat](world),
		unitMap:      ecs.NewMap[components.Unit](world),
		activeMap:    ecs.NewMap[components.Active](world),
		gridFilter:   *ecs.NewFilter2[components.Position, components.Active](world),
		sampleFilter: *ecs.NewFilter4[components.Velocity, components.Combat, components.Unit, components.Active](world),
		brains:       make(map[ecs.Entity]*unitBrain),
		collector:    telemetry.NewCollector(cfg.Derived.StatsWindowTicks, cfg.Physics.DT),
		perf:         telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		lifetime:     telemetry.NewLifetimeTracker(),
		bookmarks:    telemetry.NewBookmarkDetector(10),
	}

	s.clock = opts.Clock
	if s.clock == nil {
		switch cfg.Decision.Clock {
		case "sim":
			s.stepClock = sched.NewStepClock(time.Unix(0, 0))
			s.clock = s.stepClock
		default:
			s.clock = sched.WallClock{}
		}
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.tasks = sched.NewGroup(s.ctx, s.clock)

	if cfg.Terrain.Kind == "noise" {
		s.terrain = systems.NewTerrainSystem(cfg.Terrain, cfg.World.Width, cfg.World.Depth)
	} else {
		s.terrain = systems.NewFlatTerrain(cfg.Terrain.BaseHeight)
	}
	s.grid = systems.NewSpatialGrid(cfg.World.Width, cfg.World.Depth, cfg.Physics.GridCellSize)
	s.flocking = systems.NewFlockingSystem(world, s.grid, s.terrain, systems.FlockingParamsFromConfig(cfg))
	s.physics = systems.NewPhysicsSystem(world, systems.Bounds{Width: cfg.World.Width, Depth: cfg.World.Depth},
		s.terrain, cfg.Physics.Gravity)

	var err error
	s.metrics, err = telemetry.NewMetrics(s.ActiveUnits)
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}
	s.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := s.output.WriteConfig(cfg); err != nil {
		s.output.Close()
		return nil, err
	}

	s.mu.Lock()
	s.buildPools()
	s.mu.Unlock()

	s.pexec = command.NewPlayerExecutor(s, logger)
	if err := s.buildTeams(); err != nil {
		s.Close()
		return nil, err
	}

	logger.Info("simulation created",
		"seed", opts.Seed,
		"teams", len(s.teams),
		"unit_kinds", len(cfg.Units),
		"pool_per_kind", cfg.Pool.PerKind,
		"clock", cfg.Decision.Clock,
	)
	return s, nil
}

// buildTeams creates teams, their cities and players, and starts the player
// decision loops.
func (s *Simulation) buildTeams() error {
	for _, tc := range s.cfg.Teams {
		t := team.New(tc.Name, tc.Color)
		s.teams = append(s.teams, t)
		for _, cc := range tc.Cities {
			pos := r3.Vec{X: cc.X, Y: s.terrain.Height(cc.X, cc.Z), Z: cc.Z}
			s.cities = append(s.cities, team.NewCity(cc.Name, pos, t))
		}
		p := team.NewPlayer(t, tc.StartingGold, s, s.cfg)
		s.players = append(s.players, p)

		decider, err := s.newPlayerDecider(tc)
		if err != nil {
			return fmt.Errorf("team %s: %w", tc.Name, err)
		}
		if decider == nil {
			continue
		}
		s.pbrains = append(s.pbrains, &playerBrain{player: p, decider: decider})
	}

	if s.opts.DisablePlayers {
		return nil
	}
	for _, pb := range s.pbrains {
		s.startPlayer(pb)
	}
	return nil
}

// Close stops every decision loop, waits for them to exit and flushes
// output. Safe to call more than once.
func (s *Simulation) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		s.tasks.Wait()
		err = s.output.Close()
		s.logger.Info("simulation closed", "tick", s.Tick())
	})
	return err
}

// Config returns the simulation's config.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Teams returns the teams in config order.
func (s *Simulation) Teams() []*team.Team { return s.teams }

// Players returns the players in config order.
func (s *Simulation) Players() []*team.Player { return s.players }

// Cities returns every city on the map.
func (s *Simulation) Cities() []*team.City { return s.cities }

// Player returns the player controlling t, or nil.
func (s *Simulation) Player(t *team.Team) *team.Player {
	for _, p := range s.players {
		if p.Team().Equal(t) {
			return p
		}
	}
	return nil
}

// Tick returns the number of physics steps taken.
func (s *Simulation) Tick() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// SimTime returns simulated seconds elapsed.
func (s *Simulation) SimTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simTime
}

// ActiveUnits returns the number of units in play.
func (s *Simulation) ActiveUnits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.brains)
}

// Terrain returns the ground height field.
func (s *Simulation) Terrain() systems.Ground { return s.terrain }

// newPlayerDecider builds the controller named by tc, or nil for "none".
func (s *Simulation) newPlayerDecider(tc config.TeamConfig) (ai.PlayerDecider, error) {
	logger := s.logger.With("team", tc.Name)
	switch tc.Controller {
	case "basic":
		kind := tc.SpawnKind
		if kind == "" {
			kind = s.cfg.Units[0].Name
		}
		cost, _ := s.cfg.UnitCost(kind)
		s.mu.Lock()
		rng := s.childRandLocked()
		s.mu.Unlock()
		return ai.NewPlayerAI(s.cfg.PlayerAI, kind, cost, rng, logger), nil
	case "rules":
		return ai.NewRuleAI(s.cfg.Rules, logger)
	}
	return nil, nil
}

// childRandLocked derives an independent generator from the simulation's.
// The caller must hold mu.
func (s *Simulation) childRandLocked() *rand.Rand {
	return rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64()))
}
