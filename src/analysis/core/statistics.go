package core

import (
	"math"
	"sort"
)

// MADScale turns a median absolute deviation into a consistent estimate of
// the standard deviation for normally distributed data.
const MADScale = 1.4826

// -----------------------------------------------------------------------------

// Median returns the median of data without modifying it. Empty input yields 0.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// -----------------------------------------------------------------------------

// MedianAbsoluteDeviation computes median(|x - center|).
func MedianAbsoluteDeviation(data []float64, center float64) float64 {
	if len(data) == 0 {
		return 0
	}

	deviations := make([]float64, len(data))
	for i, v := range data {
		deviations[i] = math.Abs(v - center)
	}
	return Median(deviations)
}

// -----------------------------------------------------------------------------

// RobustCenterSpread returns the median and the scaled MAD of data, with the
// spread floored at epsilon. Empty input yields (0, 0).
func RobustCenterSpread(data []float64, epsilon float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	center := Median(data)
	spread := MADScale * MedianAbsoluteDeviation(data, center)
	if spread < epsilon {
		spread = epsilon
	}
	return center, spread
}

// -----------------------------------------------------------------------------

// CalculateZScore calculates the robust z-score of value against center/spread.
func CalculateZScore(value, center, spread float64) float64 {
	if spread == 0 {
		return 0.0
	}
	return (value - center) / spread
}
