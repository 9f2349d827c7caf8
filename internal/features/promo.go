package features

import (
	"time"

	"demandcast/internal/dataset"
)

// StoreDay keys store-wide aggregates by store and calendar day.
type StoreDay struct {
	Store string
	Date  time.Time
}

// CountStorePromos tallies promotion-active records per store and day
// over a full record set, for injection into window-built frames.
func CountStorePromos(records []dataset.Record) map[StoreDay]float64 {
	counts := make(map[StoreDay]float64)
	for i := range records {
		if records[i].PromoActive {
			counts[StoreDay{records[i].Store, records[i].Date}]++
		}
	}
	return counts
}

// promotionFeatures derives promotion context beyond the raw active
// flag. The diversity feature uses a genuine calendar-day window keyed
// on date: sparse series make row-position and calendar-day windows
// diverge, so the two primitives must never substitute for each other.
func (b *Builder) promotionFeatures(f *Frame) error {
	n := f.Len()
	windowDays := b.cfg.PromoWindowDays

	// distinct promotion ids active within the trailing calendar window
	distinct := make([]float64, n)
	for _, sp := range f.Spans() {
		counts := make(map[int64]int)
		lo := sp.Start
		for i := sp.Start; i < sp.End; i++ {
			cutoff := f.Dates[i].AddDate(0, 0, -windowDays)
			for !f.Dates[lo].After(cutoff) {
				if f.PromoActive[lo] && f.PromoIDs[lo] != 0 {
					counts[f.PromoIDs[lo]]--
					if counts[f.PromoIDs[lo]] == 0 {
						delete(counts, f.PromoIDs[lo])
					}
				}
				lo++
			}
			if f.PromoActive[i] && f.PromoIDs[i] != 0 {
				counts[f.PromoIDs[i]]++
			}
			distinct[i] = float64(len(counts))
		}
	}

	// how many promotions were active store-wide on the row's date; the
	// injected counts cover series the frame itself cannot see, while
	// the frame-local tally still covers rows absent from the injected
	// set, such as a synthetic future row
	storeActive := make(map[StoreDay]float64, n)
	for i := 0; i < n; i++ {
		if f.PromoActive[i] {
			storeActive[StoreDay{f.Stores[i], f.Dates[i]}]++
		}
	}
	storeCount := make([]float64, n)
	for i := 0; i < n; i++ {
		key := StoreDay{f.Stores[i], f.Dates[i]}
		c := storeActive[key]
		if injected, ok := b.storePromo[key]; ok && injected > c {
			c = injected
		}
		storeCount[i] = c
	}

	// was the series on promotion within the prior 7 rows
	active := f.Col("promo_active")
	recent := make([]float64, n)
	for _, sp := range f.Spans() {
		for i := sp.Start; i < sp.End; i++ {
			lo := i - 7
			if lo < sp.Start {
				lo = sp.Start
			}
			for j := lo; j < i; j++ {
				if active[j] == 1 {
					recent[i] = 1
					break
				}
			}
		}
	}

	f.AddFeature("promo_distinct_window", distinct, 0)
	f.AddFeature("store_active_promos", storeCount, 0)
	f.AddFeature("promo_recent_7", recent, 0)
	return nil
}
