package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Teams int `csv:"teams"`
	Units int `csv:"units"`

	// Events during window
	Decisions      int     `csv:"decisions"`
	DecisionErrors int     `csv:"decision_errors"`
	Commands       int     `csv:"commands"`
	Spawns         int     `csv:"spawns"`
	Deaths         int     `csv:"deaths"`
	Shots          int     `csv:"shots"`
	Hits           int     `csv:"hits"`
	Kills          int     `csv:"kills"`
	HitRate        float64 `csv:"hit_rate"`

	// Movement and health distribution (sampled at window end)
	SpeedMean  float64 `csv:"speed_mean"`
	SpeedStd   float64 `csv:"speed_std"`
	SpeedP90   float64 `csv:"speed_p90"`
	HealthMean float64 `csv:"health_mean"`
}

// TeamStats is one team's row for a window.
type TeamStats struct {
	WindowEndTick int32  `csv:"window_end"`
	Team          string `csv:"team"`
	Units         int    `csv:"units"`
	Gold          int    `csv:"gold"`
	Cities        int    `csv:"cities"`
	Spawns        int    `csv:"spawns"`
	Deaths        int    `csv:"deaths"`
	Kills         int    `csv:"kills"`
	Commands      int    `csv:"commands"`
}

// ComputeDistribution returns the population mean, population standard
// deviation and 90th percentile of values. All zero for an empty slice.
func ComputeDistribution(values []float64) (mean, std, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p90 = stat.Quantile(0.9, stat.LinInterp, sorted, nil)

	return mean, std, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("teams", s.Teams),
		slog.Int("units", s.Units),
		slog.Int("decisions", s.Decisions),
		slog.Int("decision_errors", s.DecisionErrors),
		slog.Int("commands", s.Commands),
		slog.Int("spawns", s.Spawns),
		slog.Int("deaths", s.Deaths),
		slog.Int("shots", s.Shots),
		slog.Int("hits", s.Hits),
		slog.Int("kills", s.Kills),
		slog.Float64("hit_rate", s.HitRate),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("health_mean", s.HealthMean),
	)
}

// LogStats logs the window stats.
func (s WindowStats) LogStats(logger *slog.Logger) {
	logger.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"units", s.Units,
		"decisions", s.Decisions,
		"decision_errors", s.DecisionErrors,
		"commands", s.Commands,
		"spawns", s.Spawns,
		"deaths", s.Deaths,
		"kills", s.Kills,
		"hit_rate", s.HitRate,
		"speed_mean", s.SpeedMean,
		"health_mean", s.HealthMean,
	)
}
