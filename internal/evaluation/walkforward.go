package evaluation

import (
	"fmt"
	"sort"
	"time"

	"demandcast/internal/errors"
)

// Fold is one expanding-window cross-validation fold. Every validation
// date is strictly later than every training date.
type Fold struct {
	Train []int
	Val   []int
}

// WalkForward partitions the distinct dates into folds+1 contiguous
// segments and emits one fold per validation segment: fold i trains on
// segments 0..i and validates on segment i+1, so training history only
// ever grows.
func WalkForward(dates []time.Time, folds int) ([]Fold, error) {
	if folds < 2 {
		return nil, errors.NewValidationError("walk-forward needs at least 2 folds")
	}

	distinct := distinctSorted(dates)
	if len(distinct) < folds+1 {
		return nil, errors.NewValidationError(
			fmt.Sprintf("walk-forward with %d folds needs at least %d distinct dates, have %d",
				folds, folds+1, len(distinct)))
	}

	// segment boundary k holds the last date of segment k
	bounds := make([]time.Time, folds+1)
	for k := 0; k < folds+1; k++ {
		end := (k + 1) * len(distinct) / (folds + 1)
		bounds[k] = distinct[end-1]
	}

	out := make([]Fold, folds)
	for k := 0; k < folds; k++ {
		trainEnd, valEnd := bounds[k], bounds[k+1]
		var f Fold
		for i, d := range dates {
			switch {
			case !d.After(trainEnd):
				f.Train = append(f.Train, i)
			case !d.After(valEnd):
				f.Val = append(f.Val, i)
			}
		}
		if len(f.Train) == 0 || len(f.Val) == 0 {
			return nil, errors.NewValidationError(fmt.Sprintf("fold %d is empty", k))
		}
		out[k] = f
	}
	return out, nil
}

func distinctSorted(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	var out []time.Time
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
