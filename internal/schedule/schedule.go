// Package schedule computes how many grid positions stay masked at each
// iteration of a generation stage.
package schedule

import (
	"fmt"
	"math"
)

// Curve maps progress in [0,1] to a mask ratio in [0,1]. Curves must be
// monotonically non-increasing and reach 0 at progress 1.
type Curve func(progress float64) float64

// Cosine is the default curve: early iterations commit only a handful of
// high-confidence tokens, later iterations unmask rapidly.
func Cosine(progress float64) float64 {
	return math.Cos(math.Pi / 2 * progress)
}

// Linear unmasks at a constant rate.
func Linear(progress float64) float64 {
	return 1 - progress
}

// ParseCurve maps a config string to a Curve.
func ParseCurve(s string) (Curve, error) {
	switch s {
	case "", "cosine":
		return Cosine, nil
	case "linear":
		return Linear, nil
	default:
		return nil, fmt.Errorf("schedule: unknown curve %q", s)
	}
}

// Remaining returns how many of total positions stay masked after iteration
// iter of totalIters. It is non-increasing in iter and exactly 0 once
// iter == totalIters, so the final iteration always commits everything.
func Remaining(total, iter, totalIters int, curve Curve) int {
	if total <= 0 || totalIters <= 0 || iter >= totalIters {
		return 0
	}
	if iter < 0 {
		iter = 0
	}
	if curve == nil {
		curve = Cosine
	}
	r := curve(float64(iter) / float64(totalIters))
	n := int(math.Round(r * float64(total)))
	if n < 0 {
		return 0
	}
	if n > total {
		return total
	}
	return n
}
