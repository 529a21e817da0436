package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pthm-cable/smashbloc/telemetry"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the OTel instruments for the simulation. It uses the global
// meter provider, so every instrument is a no-op until one is installed.
type Metrics struct {
	decisions      metric.Int64Counter
	decisionErrors metric.Int64Counter
	commands       metric.Int64Counter
	spawns         metric.Int64Counter
	deaths         metric.Int64Counter
	stepDuration   metric.Float64Histogram
	activeUnits    metric.Int64ObservableGauge
}

// NewMetrics creates the instruments. activeUnits is polled by the gauge
// callback and must be safe to call from any goroutine.
func NewMetrics(activeUnits func() int) (*Metrics, error) {
	m := meter()
	mt := &Metrics{}

	var err error
	mt.decisions, err = m.Int64Counter(
		"sim.decisions",
		metric.WithDescription("Completed unit and player decision ticks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decisions counter: %w", err)
	}

	mt.decisionErrors, err = m.Int64Counter(
		"sim.decision.errors",
		metric.WithDescription("Decision ticks that failed or panicked"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decision errors counter: %w", err)
	}

	mt.commands, err = m.Int64Counter(
		"sim.commands",
		metric.WithDescription("Commands executed, by command name"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands counter: %w", err)
	}

	mt.spawns, err = m.Int64Counter(
		"sim.spawns",
		metric.WithDescription("Units spawned, by team"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spawns counter: %w", err)
	}

	mt.deaths, err = m.Int64Counter(
		"sim.deaths",
		metric.WithDescription("Units killed, by team"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deaths counter: %w", err)
	}

	mt.stepDuration, err = m.Float64Histogram(
		"sim.step.duration",
		metric.WithDescription("Physics step wall time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step histogram: %w", err)
	}

	mt.activeUnits, err = m.Int64ObservableGauge(
		"sim.units.active",
		metric.WithDescription("Currently active units"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active units gauge: %w", err)
	}
	if activeUnits != nil {
		_, err = m.RegisterCallback(
			func(ctx context.Context, o metric.Observer) error {
				o.ObserveInt64(mt.activeUnits, int64(activeUnits()))
				return nil
			},
			mt.activeUnits,
		)
		if err != nil {
			return nil, fmt.Errorf("registering active units callback: %w", err)
		}
	}

	return mt, nil
}

// Decision counts one decision tick for a team.
func (mt *Metrics) Decision(ctx context.Context, team string) {
	mt.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("team", team)))
}

// DecisionError counts one failed decision tick.
func (mt *Metrics) DecisionError(ctx context.Context, team string) {
	mt.decisionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("team", team)))
}

// Command counts one executed command.
func (mt *Metrics) Command(ctx context.Context, name string) {
	mt.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("command", name)))
}

// Spawn counts one spawned unit.
func (mt *Metrics) Spawn(ctx context.Context, team, kind string) {
	mt.spawns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("team", team),
		attribute.String("kind", kind),
	))
}

// Death counts one killed unit.
func (mt *Metrics) Death(ctx context.Context, team string) {
	mt.deaths.Add(ctx, 1, metric.WithAttributes(attribute.String("team", team)))
}

// Step records one physics step duration.
func (mt *Metrics) Step(ctx context.Context, d time.Duration) {
	mt.stepDuration.Record(ctx, float64(d)/float64(time.Millisecond))
}
