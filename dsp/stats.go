package dsp

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Percentile returns the value below which percent of the data falls,
// linearly interpolating between the surrounding samples. The input is
// left unmodified.
func Percentile(values []float64, percent float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(percent/100.0, stat.LinInterp, sorted, nil)
}

// Mean returns the arithmetic mean of values, 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Max returns the largest value, 0 for empty input.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values)
}

// Min returns the smallest value, 0 for empty input.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Min(values)
}
