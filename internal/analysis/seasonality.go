// Package analysis derives descriptive views of the demand history:
// seasonality indexes, statistical anomalies and the training report
// workbook.
package analysis

import (
	"time"

	"demandcast/internal/dataset"
)

// Seasonality holds multiplicative indexes relative to the overall
// mean: 1.0 means average demand, 1.3 means 30% above.
type Seasonality struct {
	OverallMean float64
	// Weekday is indexed Monday=0 .. Sunday=6.
	Weekday [7]float64
	// Month is indexed January=0 .. December=11.
	Month [12]float64
}

// Seasonal computes demand indexes by weekday and month over all
// records.
func Seasonal(records []dataset.Record) Seasonality {
	var s Seasonality
	if len(records) == 0 {
		return s
	}

	var total float64
	var wdSum [7]float64
	var wdN [7]int
	var moSum [12]float64
	var moN [12]int

	for _, r := range records {
		total += r.NetUnits
		wd := (int(r.Date.Weekday()) + 6) % 7
		wdSum[wd] += r.NetUnits
		wdN[wd]++
		mo := int(r.Date.Month()) - 1
		moSum[mo] += r.NetUnits
		moN[mo]++
	}

	s.OverallMean = total / float64(len(records))
	if s.OverallMean == 0 {
		return s
	}
	for i := range s.Weekday {
		if wdN[i] > 0 {
			s.Weekday[i] = (wdSum[i] / float64(wdN[i])) / s.OverallMean
		}
	}
	for i := range s.Month {
		if moN[i] > 0 {
			s.Month[i] = (moSum[i] / float64(moN[i])) / s.OverallMean
		}
	}
	return s
}

// WeekdayName maps the Monday-based index to its English name.
func WeekdayName(i int) string {
	return time.Weekday((i + 1) % 7).String()
}
