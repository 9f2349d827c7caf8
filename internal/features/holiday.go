package features

import (
	"sort"
	"time"

	"demandcast/internal/dataset"
)

// holidayFeatures derives proximity to the nearest holiday at or after
// and at or before each row's date. Absent any holiday in range the
// sentinel keeps the feature numeric.
func (b *Builder) holidayFeatures(f *Frame, holidays []dataset.Holiday) error {
	n := f.Len()
	sentinel := float64(b.cfg.HolidaySentinel)

	dates := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		dates = append(dates, h.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	daysTo := make([]float64, n)
	daysFrom := make([]float64, n)
	for i := 0; i < n; i++ {
		d := f.Dates[i]
		daysTo[i] = sentinel
		daysFrom[i] = sentinel
		if len(dates) == 0 {
			continue
		}
		// first holiday at or after d
		k := sort.Search(len(dates), func(j int) bool { return !dates[j].Before(d) })
		if k < len(dates) {
			daysTo[i] = daysBetween(d, dates[k])
		}
		// last holiday at or before d
		m := sort.Search(len(dates), func(j int) bool { return dates[j].After(d) })
		if m > 0 {
			daysFrom[i] = daysBetween(dates[m-1], d)
		}
	}

	f.AddFeature("days_to_holiday", daysTo, float64(b.cfg.HolidaySentinel))
	f.AddFeature("days_from_holiday", daysFrom, float64(b.cfg.HolidaySentinel))
	return nil
}

func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}
