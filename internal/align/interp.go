package align

import (
	"math"
	"sort"
)

// interp1 evaluates the piecewise-linear interpolant through (xs, ys) at x.
// xs must be sorted ascending. Positions outside [xs[0], xs[n-1]] yield NaN
// so callers can find the undefined head and tail runs.
func interp1(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || x < xs[0] || x > xs[n-1] {
		return math.NaN()
	}

	idx := sort.SearchFloat64s(xs, x)
	if idx < n && xs[idx] == x {
		return ys[idx]
	}

	lo := idx - 1
	t := (x - xs[lo]) / (xs[lo+1] - xs[lo])

	return ys[lo] + t*(ys[lo+1]-ys[lo])
}
