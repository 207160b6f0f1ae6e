package progression

import "math"

// RoundToNearestHalf rounds x to the nearest 0.5. A result that is not
// finite or would land below zero clamps to 0.
func RoundToNearestHalf(x float64) float64 {
	rounded := math.Round(x*2) / 2
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) || rounded < 0 {
		return 0
	}
	return rounded
}

// RoundToNearest rounds x to the nearest multiple of step, e.g. the smallest
// plate jump available on a barbell. A step of zero or less falls back to
// RoundToNearestHalf.
func RoundToNearest(x, step float64) float64 {
	if step <= 0 {
		return RoundToNearestHalf(x)
	}
	rounded := math.Round(x/step) * step
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) || rounded < 0 {
		return 0
	}
	return rounded
}
