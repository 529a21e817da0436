package game

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run drives the physics loop and the economy until ctx is cancelled or
// maxTicks steps have run (maxTicks <= 0 runs until cancelled). With
// realtime set, steps are paced at the configured rate; otherwise they run
// back to back.
func (s *Simulation) Run(ctx context.Context, maxTicks int, realtime bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.physicsLoop(ctx, maxTicks, realtime)
	})
	g.Go(func() error {
		return s.economyLoop(ctx)
	})

	return g.Wait()
}

func (s *Simulation) physicsLoop(ctx context.Context, maxTicks int, realtime bool) error {
	var tick <-chan time.Time
	if realtime {
		t := time.NewTicker(s.cfg.Derived.StepDuration)
		defer t.Stop()
		tick = t.C
	}

	start := time.Now()
	n := 0
	defer func() {
		elapsed := time.Since(start)
		s.logger.Info("run finished",
			"ticks", n,
			"sim_time", s.SimTime(),
			"elapsed", elapsed,
			"ticks_per_sec", float64(n)/elapsed.Seconds(),
			"units", s.ActiveUnits(),
		)
	}()

	for ; maxTicks <= 0 || n < maxTicks; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		s.Step()
	}
	return nil
}

// economyLoop pays income on the decision clock.
func (s *Simulation) economyLoop(ctx context.Context) error {
	interval := s.cfg.Derived.IncomeInterval
	if interval <= 0 || s.cfg.Economy.IncomePerCity == 0 {
		<-ctx.Done()
		return nil
	}
	t := s.clock.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C():
			s.Payday()
		}
	}
}
