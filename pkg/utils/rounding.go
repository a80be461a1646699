package utils

import "math"

// RoundTo rounds v to the given number of decimal places, half away from zero.
//
// Go Learning Note — Floating Point Rounding:
// math.Round rounds to the nearest integer, so scale, round, and scale back.
// The result is still a float64 and may print as 0.30000000000000004 in some
// cases; it is meant for values that are serialized, not for money.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Round2 rounds to two decimal places, the precision confidence scores are
// reported with.
func Round2(v float64) float64 {
	return RoundTo(v, 2)
}
