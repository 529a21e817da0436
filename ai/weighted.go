package ai

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNoCandidates is returned when no option carries positive weight.
	ErrNoCandidates = errors.New("no weighted candidates")
	// ErrInvalidWeight is returned for negative, NaN or infinite weights.
	ErrInvalidWeight = errors.New("invalid weight")
)

// Option pairs a candidate with its selection weight.
type Option[T any] struct {
	Value  T
	Weight float64
}

// WeightedChoice draws uniformly in [0, total) and returns the first option
// whose cumulative weight exceeds the draw. If rounding leaves the draw
// unmatched, the last positive-weight option is returned.
func WeightedChoice[T any](rng *rand.Rand, options []Option[T]) (T, error) {
	var zero T
	weights := make([]float64, len(options))
	last := -1
	for i, o := range options {
		if o.Weight < 0 || math.IsNaN(o.Weight) || math.IsInf(o.Weight, 0) {
			return zero, fmt.Errorf("%w: option %d has weight %v", ErrInvalidWeight, i, o.Weight)
		}
		weights[i] = o.Weight
		if o.Weight > 0 {
			last = i
		}
	}
	if last < 0 {
		return zero, ErrNoCandidates
	}

	total := floats.Sum(weights)
	cumulative := floats.CumSum(make([]float64, len(weights)), weights)
	draw := rng.Float64() * total

	i := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > draw })
	if i == len(cumulative) {
		i = last
	}
	return options[i].Value, nil
}
