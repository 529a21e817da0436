// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned (wrapped) when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Terrain    TerrainConfig    `yaml:"terrain"`
	Hover      HoverConfig      `yaml:"hover"`
	Steering   SteeringConfig   `yaml:"steering"`
	Flocking   FlockingConfig   `yaml:"flocking"`
	Decision   DecisionConfig   `yaml:"decision"`
	Units      []UnitConfig     `yaml:"units"`
	Teams      []TeamConfig     `yaml:"teams"`
	Economy    EconomyConfig    `yaml:"economy"`
	PlayerAI   PlayerAIConfig   `yaml:"player_ai"`
	SkirmishAI SkirmishAIConfig `yaml:"skirmish_ai"`
	Rules      []RuleConfig     `yaml:"rules"`
	Pool       PoolConfig       `yaml:"pool"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the horizontal extent of the play area (X and Z axes).
type WorldConfig struct {
	Width float64 `yaml:"width"`
	Depth float64 `yaml:"depth"`
}

// PhysicsConfig holds fixed-step integrator parameters.
type PhysicsConfig struct {
	DT           float64 `yaml:"dt"`             // Seconds per physics tick (0.02 = 50 Hz)
	Gravity      float64 `yaml:"gravity"`        // Downward acceleration
	GridCellSize float64 `yaml:"grid_cell_size"` // Spatial grid cell edge
	MaxNeighbors int     `yaml:"max_neighbors"`  // Neighbor cap for flocking and sampling queries
}

// TerrainConfig selects the ground height field.
type TerrainConfig struct {
	Kind       string  `yaml:"kind"` // "flat" or "noise"
	BaseHeight float64 `yaml:"base_height"`
	Amplitude  float64 `yaml:"amplitude"`
	Scale      float64 `yaml:"scale"` // Noise frequency per world unit
	Seed       int64   `yaml:"seed"`
}

// HoverConfig holds the ground-hover spring parameters.
type HoverConfig struct {
	TargetAltitude float64 `yaml:"target_altitude"`
	MaxFloat       float64 `yaml:"max_float"`      // Above this sample the unit is airborne
	Stiffness      float64 `yaml:"stiffness"`      // Force per unit of altitude deficit
	Damping        float64 `yaml:"damping"`        // Force per unit of vertical velocity
	AirborneForce  float64 `yaml:"airborne_force"` // Constant downward force while airborne
}

// SteeringConfig holds goal-seek parameters.
type SteeringConfig struct {
	MaxForce    float64 `yaml:"max_force"`
	DecelRadius float64 `yaml:"decel_radius"`
}

// FlockingConfig holds neighbor radii and per-force caps.
type FlockingConfig struct {
	OuterRadius float64 `yaml:"outer_radius"` // Comfortable cohesion radius
	MinRadius   float64 `yaml:"min_radius"`   // Separation radius
	ConvergeMax float64 `yaml:"converge_max"`
	DivergeMax  float64 `yaml:"diverge_max"`
	AlignMax    float64 `yaml:"align_max"`
}

// DecisionConfig holds the slow-loop timing.
type DecisionConfig struct {
	IntervalSec    float64 `yaml:"interval_sec"`
	JitterSec      float64 `yaml:"jitter_sec"` // Random initial delay spread across units
	Clock          string  `yaml:"clock"`      // "wall" or "sim"
	IdleDeviation  float64 `yaml:"idle_deviation"`
	MoveDeviation  float64 `yaml:"move_deviation"`
	PlayerInterval float64 `yaml:"player_interval_sec"`
}

// UnitConfig is a per-kind archetype.
type UnitConfig struct {
	Name            string  `yaml:"name"`
	Cost            int     `yaml:"cost"`
	MaxHealth       float64 `yaml:"max_health"`
	Damage          float64 `yaml:"damage"`
	SightRange      float64 `yaml:"sight_range"`
	AttackRange     float64 `yaml:"attack_range"`
	MaxSpeed        float64 `yaml:"max_speed"`
	Mass            float64 `yaml:"mass"`
	CanShoot        bool    `yaml:"can_shoot"`
	FireCooldown    float64 `yaml:"fire_cooldown"`    // Seconds between shots
	ProjectileSpeed float64 `yaml:"projectile_speed"` // World units per second
	AI              string  `yaml:"ai"`               // "idle" or "skirmish"
}

// TeamConfig describes a starting team.
type TeamConfig struct {
	Name         string       `yaml:"name"`
	Color        string       `yaml:"color"`
	Controller   string       `yaml:"controller"` // "basic", "rules" or "none"
	StartingGold int          `yaml:"starting_gold"`
	SpawnKind    string       `yaml:"spawn_kind"`
	Cities       []CityConfig `yaml:"cities"`
}

// CityConfig places a city owned by the enclosing team.
type CityConfig struct {
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Z    float64 `yaml:"z"`
}

// EconomyConfig holds income parameters.
type EconomyConfig struct {
	IncomeIntervalSec float64 `yaml:"income_interval_sec"`
	IncomePerCity     int     `yaml:"income_per_city"`
}

// PlayerAIConfig holds the basic player AI thresholds.
type PlayerAIConfig struct {
	SpawnBelow     int `yaml:"spawn_below"`     // Keep spawning while the army is smaller
	AttackAt       int `yaml:"attack_at"`       // Army size that triggers an attack
	AttackCooldown int `yaml:"attack_cooldown"` // Decision ticks between attacks
}

// SkirmishAIConfig holds weights for the stochastic unit AI.
type SkirmishAIConfig struct {
	IdleWeight   float64 `yaml:"idle_weight"`
	MoveWeight   float64 `yaml:"move_weight"`
	ShootWeight  float64 `yaml:"shoot_weight"`
	FleeWeight   float64 `yaml:"flee_weight"`
	FleeHealth   float64 `yaml:"flee_health"` // Health fraction below which fleeing is considered
	FleeDistance float64 `yaml:"flee_distance"`
	MaxAimTime   float64 `yaml:"max_aim_time"`
}

// RuleConfig is one expression rule for the "rules" player controller.
type RuleConfig struct {
	Name string `yaml:"name"`
	When string `yaml:"when"`
	Do   string `yaml:"do"` // "spawn" or "attack"
	Unit string `yaml:"unit,omitempty"`
}

// PoolConfig holds pre-built instance counts.
type PoolConfig struct {
	PerKind int `yaml:"per_kind"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindowSec float64 `yaml:"stats_window_sec"`
	PerfWindow     int     `yaml:"perf_window"` // Ticks averaged by the perf collector
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	DecisionInterval time.Duration
	PlayerInterval   time.Duration
	DecisionJitter   time.Duration
	IncomeInterval   time.Duration
	StepDuration     time.Duration
	StatsWindowTicks int
	UnitIndex        map[string]uint8
}

// Load reads configuration from a YAML file, using embedded defaults as base.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize validates the config and recomputes derived values. Call it again
// after editing a loaded config in code.
func (c *Config) Finalize() error {
	if err := c.validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// MustDefaults returns the embedded defaults and panics if they do not load.
func MustDefaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Physics.DT <= 0 {
		return fmt.Errorf("%w: physics.dt must be positive", ErrInvalid)
	}
	if c.Physics.MaxNeighbors <= 0 {
		return fmt.Errorf("%w: physics.max_neighbors must be positive", ErrInvalid)
	}
	if c.World.Width <= 0 || c.World.Depth <= 0 {
		return fmt.Errorf("%w: world size must be positive", ErrInvalid)
	}
	if c.Decision.IntervalSec <= 0 {
		return fmt.Errorf("%w: decision.interval_sec must be positive", ErrInvalid)
	}
	switch c.Decision.Clock {
	case "wall", "sim":
	default:
		return fmt.Errorf("%w: decision.clock %q", ErrInvalid, c.Decision.Clock)
	}
	switch c.Terrain.Kind {
	case "flat", "noise":
	default:
		return fmt.Errorf("%w: terrain.kind %q", ErrInvalid, c.Terrain.Kind)
	}
	if c.Flocking.MinRadius > c.Flocking.OuterRadius {
		return fmt.Errorf("%w: flocking.min_radius exceeds outer_radius", ErrInvalid)
	}
	if len(c.Units) == 0 {
		return fmt.Errorf("%w: no unit kinds", ErrInvalid)
	}
	if len(c.Units) > 255 {
		return fmt.Errorf("%w: too many unit kinds", ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Units))
	for _, u := range c.Units {
		if u.Name == "" || seen[u.Name] {
			return fmt.Errorf("%w: unit name %q empty or duplicated", ErrInvalid, u.Name)
		}
		seen[u.Name] = true
		if u.Mass <= 0 || u.MaxHealth <= 0 {
			return fmt.Errorf("%w: unit %q needs positive mass and max_health", ErrInvalid, u.Name)
		}
		switch u.AI {
		case "idle", "skirmish":
		default:
			return fmt.Errorf("%w: unit %q ai %q", ErrInvalid, u.Name, u.AI)
		}
	}

	for _, t := range c.Teams {
		switch t.Controller {
		case "basic", "rules", "none":
		default:
			return fmt.Errorf("%w: team %q controller %q", ErrInvalid, t.Name, t.Controller)
		}
		if t.SpawnKind != "" && !seen[t.SpawnKind] {
			return fmt.Errorf("%w: team %q spawn_kind %q", ErrInvalid, t.Name, t.SpawnKind)
		}
	}

	for _, r := range c.Rules {
		switch r.Do {
		case "attack":
		case "spawn":
			if !seen[r.Unit] {
				return fmt.Errorf("%w: rule %q spawns unknown unit %q", ErrInvalid, r.Name, r.Unit)
			}
		default:
			return fmt.Errorf("%w: rule %q action %q", ErrInvalid, r.Name, r.Do)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DecisionInterval = seconds(c.Decision.IntervalSec)
	c.Derived.PlayerInterval = seconds(c.Decision.PlayerInterval)
	if c.Derived.PlayerInterval <= 0 {
		c.Derived.PlayerInterval = c.Derived.DecisionInterval
	}
	c.Derived.DecisionJitter = seconds(c.Decision.JitterSec)
	c.Derived.IncomeInterval = seconds(c.Economy.IncomeIntervalSec)
	c.Derived.StepDuration = seconds(c.Physics.DT)

	c.Derived.StatsWindowTicks = int(c.Telemetry.StatsWindowSec / c.Physics.DT)
	if c.Derived.StatsWindowTicks < 1 {
		c.Derived.StatsWindowTicks = 1
	}

	c.Derived.UnitIndex = make(map[string]uint8, len(c.Units))
	for i, u := range c.Units {
		c.Derived.UnitIndex[u.Name] = uint8(i)
	}
}

// Clone returns a deep copy of c. Derived values are recomputed.
func (c *Config) Clone() *Config {
	out := *c
	out.Units = slices.Clone(c.Units)
	out.Rules = slices.Clone(c.Rules)
	out.Teams = slices.Clone(c.Teams)
	for i := range out.Teams {
		out.Teams[i].Cities = slices.Clone(c.Teams[i].Cities)
	}
	out.computeDerived()
	return &out
}

// Unit returns the archetype for a kind name.
func (c *Config) Unit(name string) (UnitConfig, bool) {
	idx, ok := c.Derived.UnitIndex[name]
	if !ok {
		return UnitConfig{}, false
	}
	return c.Units[idx], true
}

// UnitCost returns the gold cost of a kind, or false for an unknown kind.
func (c *Config) UnitCost(name string) (int, bool) {
	u, ok := c.Unit(name)
	return u.Cost, ok
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
