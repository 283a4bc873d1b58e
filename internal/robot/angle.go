package robot

import "math"

// DefaultTolerance is the absolute joint-angle tolerance in radians used by
// the controller when deciding whether a joint has reached its target.
const DefaultTolerance = 1e-4

// NormalizeAngle wraps rad into the interval (-π, π].
func NormalizeAngle(rad float64) float64 {
	r := math.Mod(rad+math.Pi, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	r -= math.Pi
	if r <= -math.Pi {
		return math.Pi
	}
	return r
}

// AngleDiff returns the shortest signed rotation from b to a.
func AngleDiff(a, b float64) float64 {
	return NormalizeAngle(a - b)
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
