package evaluation

import (
	"fmt"
	"time"

	"demandcast/internal/errors"
)

// Split is a train/test partition of row indices.
type Split struct {
	Train []int
	Test  []int
	// Cutoff is the last date still in the training side.
	Cutoff time.Time
}

// HoldoutSplit puts every row in the trailing testDays calendar days
// into the test side and everything before into the training side. The
// split is by date, never by row count, so all rows of a day land on
// the same side.
func HoldoutSplit(dates []time.Time, testDays int) (Split, error) {
	if len(dates) == 0 {
		return Split{}, errors.NewValidationError("no rows to split")
	}
	maxDate := dates[0]
	for _, d := range dates[1:] {
		if d.After(maxDate) {
			maxDate = d
		}
	}
	cutoff := maxDate.AddDate(0, 0, -testDays)

	s := Split{Cutoff: cutoff}
	for i, d := range dates {
		if d.After(cutoff) {
			s.Test = append(s.Test, i)
		} else {
			s.Train = append(s.Train, i)
		}
	}
	if len(s.Train) == 0 || len(s.Test) == 0 {
		return Split{}, errors.NewValidationError(
			fmt.Sprintf("holdout split degenerate: %d train rows, %d test rows over %d test days",
				len(s.Train), len(s.Test), testDays))
	}
	return s, nil
}
