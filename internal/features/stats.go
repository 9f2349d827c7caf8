package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// nanMean averages the non-NaN entries; NaN when none exist.
func nanMean(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// nanMedian returns the median of the non-NaN entries; NaN when none.
func nanMedian(xs []float64) float64 {
	clean := dropNaN(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	return stat.Quantile(0.5, stat.Empirical, clean, nil)
}

// nanQuantile returns the empirical q-quantile of the non-NaN entries.
func nanQuantile(xs []float64, q float64) float64 {
	clean := dropNaN(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	return stat.Quantile(q, stat.Empirical, clean, nil)
}

// nanStd returns the sample standard deviation of non-NaN entries, or 0
// when fewer than two remain.
func nanStd(xs []float64) float64 {
	clean := dropNaN(xs)
	if len(clean) < 2 {
		return 0
	}
	return stat.StdDev(clean, nil)
}

// fitSlope returns the least-squares slope of ys against their indexes.
func fitSlope(ys []float64) float64 {
	clean := dropNaN(ys)
	if len(clean) < 2 {
		return 0
	}
	xs := make([]float64, len(clean))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, clean, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return beta
}

func dropNaN(xs []float64) []float64 {
	clean := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			clean = append(clean, x)
		}
	}
	return clean
}

// runningMedian maintains an order-statistics view over an expanding
// prefix, backing the causal median fill used by lag and rolling
// features on cold-start rows.
type runningMedian struct {
	sorted []float64
}

func newRunningMedian() *runningMedian {
	return &runningMedian{}
}

func (r *runningMedian) push(x float64) {
	if math.IsNaN(x) {
		return
	}
	i := sort.SearchFloat64s(r.sorted, x)
	r.sorted = append(r.sorted, 0)
	copy(r.sorted[i+1:], r.sorted[i:])
	r.sorted[i] = x
}

// value returns the current median, or def when nothing was pushed.
func (r *runningMedian) value(def float64) float64 {
	n := len(r.sorted)
	if n == 0 {
		return def
	}
	if n%2 == 1 {
		return r.sorted[n/2]
	}
	return (r.sorted[n/2-1] + r.sorted[n/2]) / 2
}
