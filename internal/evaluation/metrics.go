// Package evaluation implements the time-ordered evaluation protocol:
// a trailing holdout split, expanding-window cross-validation folds and
// the regression metrics reported over them.
package evaluation

import (
	"math"

	"demandcast/internal/errors"
)

// Metrics aggregates the error measures of one prediction set.
type Metrics struct {
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	MAPE  float64 `json:"mape"`
	SMAPE float64 `json:"smape"`
	N     int     `json:"n"`
}

// MAE is the primary selection metric.
func MAE(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, errors.NewNumericError("actual and predicted lengths differ")
	}
	if len(actual) == 0 {
		return 0, errors.NewNumericError("no observations to score")
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual)), nil
}

// Evaluate computes the full metric set. MAPE skips zero actuals;
// SMAPE treats a zero denominator as zero error.
func Evaluate(actual, predicted []float64) (Metrics, error) {
	mae, err := MAE(actual, predicted)
	if err != nil {
		return Metrics{}, err
	}

	var sqSum, apeSum, smapeSum float64
	apeN := 0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sqSum += diff * diff

		if actual[i] != 0 {
			apeSum += math.Abs(diff / actual[i])
			apeN++
		}
		denom := (math.Abs(actual[i]) + math.Abs(predicted[i])) / 2
		if denom > 0 {
			smapeSum += math.Abs(diff) / denom
		}
	}

	n := len(actual)
	m := Metrics{
		MAE:   mae,
		RMSE:  math.Sqrt(sqSum / float64(n)),
		SMAPE: 100 * smapeSum / float64(n),
		N:     n,
	}
	if apeN > 0 {
		m.MAPE = 100 * apeSum / float64(apeN)
	}
	return m, nil
}
