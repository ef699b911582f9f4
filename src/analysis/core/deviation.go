package core

import "math"

// -----------------------------------------------------------------------------

// CalculatePercentDeviation returns (value - center) / max(center, floor) as a
// fraction, so a zero baseline still yields a finite score.
func CalculatePercentDeviation(value, center, floor float64) float64 {
	denominator := math.Max(center, floor)
	if denominator <= 0 {
		return 0.0
	}
	return (value - center) / denominator
}

// -----------------------------------------------------------------------------

// SeverityLevel maps |score| onto the ladder [T,2T) -> 1, [2T,3T) -> 2,
// >= 3T -> 3, and 0 below T. A zero threshold flags any non-zero score as 3.
func SeverityLevel(score, threshold float64) int {
	if math.IsNaN(score) {
		return 0
	}

	magnitude := math.Abs(score)
	switch {
	case threshold <= 0:
		if magnitude > 0 {
			return 3
		}
		return 0
	case magnitude >= 3*threshold:
		return 3
	case magnitude >= 2*threshold:
		return 2
	case magnitude >= threshold:
		return 1
	default:
		return 0
	}
}
