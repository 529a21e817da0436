package main

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mlange-42/ark/ecs"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/smashbloc/config"
	"github.com/pthm-cable/smashbloc/game"
	"github.com/pthm-cable/smashbloc/sched"
)

// crowdDistance is the horizontal gap below which two units count as
// overlapping.
const crowdDistance = 1.0

// crowdPenalty weighs the fraction of overlapping pairs against the mean
// distance to the rally point.
const crowdPenalty = 50.0

// FitnessEvaluator runs headless rally scenarios and scores how well a
// squad reaches a point while keeping its spacing.
type FitnessEvaluator struct {
	params     *ParamVector
	baseConfig *config.Config
	ticks      int
	squad      int
	seeds      []uint64

	mu          sync.Mutex
	lastSpread  float64
	lastOverlap float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, ticks, squad int, seeds []uint64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		baseConfig: baseCfg,
		ticks:      ticks,
		squad:      squad,
		seeds:      seeds,
	}
}

// LastDetail returns the spread and overlap of the most recent evaluation.
func (fe *FitnessEvaluator) LastDetail() (spread, overlap float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSpread, fe.lastOverlap
}

type runResult struct {
	meanDist float64
	spread   float64
	overlap  float64 // fraction of unit pairs closer than crowdDistance
}

// Evaluate computes fitness for raw parameter values (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Finalize(); err != nil {
		return math.Inf(1)
	}

	results := make([]runResult, len(fe.seeds))
	var g errgroup.Group
	for i, seed := range fe.seeds {
		g.Go(func() error {
			r, err := fe.runScenario(cfg, seed)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("scenario failed", "error", err)
		return math.Inf(1)
	}

	var fitness, spread, overlap float64
	for _, r := range results {
		fitness += r.meanDist + crowdPenalty*r.overlap
		spread += r.spread
		overlap += r.overlap
	}
	n := float64(len(results))

	fe.mu.Lock()
	fe.lastSpread = spread / n
	fe.lastOverlap = overlap / n
	fe.mu.Unlock()
	return fitness / n
}

// runScenario spawns a squad at the first team's first city, sends it to
// the map centre and measures where it ends up. Decision loops never fire
// because the clock is not advanced.
func (fe *FitnessEvaluator) runScenario(base *config.Config, seed uint64) (runResult, error) {
	cfg := base.Clone()
	for i := range cfg.Teams {
		cfg.Teams[i].Controller = "none"
	}
	cfg.Pool.PerKind = max(cfg.Pool.PerKind, fe.squad)

	sim, err := game.NewSimulation(cfg, game.Options{
		Seed:           seed,
		Logger:         slog.New(slog.DiscardHandler),
		Clock:          sched.NewStepClock(time.Unix(0, 0)),
		DisablePlayers: true,
	})
	if err != nil {
		return runResult{}, err
	}
	defer sim.Close()

	t := sim.Teams()[0]
	cities := t.Cities()
	if len(cities) == 0 {
		return runResult{}, fmt.Errorf("team %s has no city", t.Name)
	}
	kind := cfg.Units[0].Name
	units := make([]ecs.Entity, 0, fe.squad)
	for range fe.squad {
		e, err := sim.Spawn(kind, t, cities[0].Position)
		if err != nil {
			return runResult{}, err
		}
		units = append(units, e)
	}

	target := r3.Vec{X: cfg.World.Width / 2, Z: cfg.World.Depth / 2}
	target.Y = sim.Terrain().Height(target.X, target.Z)
	sim.Direct(t, units, target)
	sim.StepN(fe.ticks)

	snap := sim.CaptureSnapshot(nil)
	dists := make([]float64, 0, len(snap.Units))
	for _, u := range snap.Units {
		dists = append(dists, math.Hypot(u.X-target.X, u.Z-target.Z))
	}
	mean, std := stat.PopMeanStdDev(dists, nil)

	pairs, crowded := 0, 0
	for i := range snap.Units {
		for j := i + 1; j < len(snap.Units); j++ {
			a, b := snap.Units[i], snap.Units[j]
			pairs++
			if math.Hypot(a.X-b.X, a.Z-b.Z) < crowdDistance {
				crowded++
			}
		}
	}
	overlap := 0.0
	if pairs > 0 {
		overlap = float64(crowded) / float64(pairs)
	}
	return runResult{meanDist: mean, spread: std, overlap: overlap}, nil
}
