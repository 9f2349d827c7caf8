package features

import (
	"math"

	"demandcast/internal/errors"
)

// ClipCeiling computes the clip ceiling as the q-quantile of the
// target over the given training rows, ignoring unresolved targets.
func ClipCeiling(f *Frame, trainRows []int, q float64) (float64, error) {
	target := f.Col(TargetColumn)
	vals := make([]float64, 0, len(trainRows))
	for _, i := range trainRows {
		if !math.IsNaN(target[i]) {
			vals = append(vals, target[i])
		}
	}
	if len(vals) == 0 {
		return 0, errors.NewNumericError("no resolved targets to derive clip ceiling")
	}
	return nanQuantile(vals, q), nil
}

// ApplyClip adds the clipped and log-transformed target columns using
// a previously derived ceiling, so training and prediction transform
// targets identically.
func ApplyClip(f *Frame, ceiling float64) {
	target := f.Col(TargetColumn)
	clipped := make([]float64, f.Len())
	logged := make([]float64, f.Len())
	for i, v := range target {
		if math.IsNaN(v) {
			clipped[i] = math.NaN()
			logged[i] = math.NaN()
			continue
		}
		c := v
		if c < 0 {
			c = 0
		}
		if c > ceiling {
			c = ceiling
		}
		clipped[i] = c
		logged[i] = math.Log1p(c)
	}
	f.addBase(ClippedTarget, clipped)
	f.addBase(LogTarget, logged)
}
