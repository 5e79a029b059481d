// Package numeric holds the interpolation primitives shared by coefficient
// tables and ground-motion surface tables.
package numeric

import (
	"errors"
	"math"
	"sort"
)

// ErrOutOfRange is returned when a value lies outside a table's axis and
// the caller's policy does not permit clamping.
var ErrOutOfRange = errors.New("value outside tabulated range")

// Bracket locates x on the strictly increasing axis xs.
//
// If x equals an axis value, lo == hi is that index and exact is true.
// Otherwise xs[lo] < x < xs[hi] with hi == lo+1. Values outside
// [xs[0], xs[len-1]] return ok == false.
func Bracket(xs []float64, x float64) (lo, hi int, exact, ok bool) {
	n := len(xs)
	if n == 0 || math.IsNaN(x) || x < xs[0] || x > xs[n-1] {
		return 0, 0, false, false
	}
	i := sort.SearchFloat64s(xs, x)
	if i < n && xs[i] == x {
		return i, i, true, true
	}
	return i - 1, i, false, true
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// LinearFraction is the position of x between lo and hi, 0 at lo and 1 at hi.
func LinearFraction(x, lo, hi float64) float64 {
	return (x - lo) / (hi - lo)
}

// LogFraction is LinearFraction in natural-log space. All arguments must be
// positive.
func LogFraction(x, lo, hi float64) float64 {
	return (math.Log(x) - math.Log(lo)) / (math.Log(hi) - math.Log(lo))
}

// Lerp returns lo + (hi-lo)*f. f == 0 reproduces lo exactly.
func Lerp(lo, hi, f float64) float64 {
	if f == 0 {
		return lo
	}
	if f == 1 {
		return hi
	}
	return lo + (hi-lo)*f
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports the index of the first non-finite element, or -1.
func AllFinite(vs []float64) int {
	for i, v := range vs {
		if !Finite(v) {
			return i
		}
	}
	return -1
}

// StrictlyIncreasing reports whether xs is sorted with no repeated values.
func StrictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return false
		}
	}
	return true
}
