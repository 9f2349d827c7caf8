package analysis

import (
	"math"
	"sort"
	"time"

	"demandcast/internal/dataset"
)

const (
	anomalyWindow    = 30
	anomalyMinObs    = 5
	anomalyThreshold = 3.0
)

// Anomaly is one observation far outside its series' recent behavior.
type Anomaly struct {
	SKU      string    `json:"sku"`
	Store    string    `json:"store"`
	Date     time.Time `json:"date"`
	NetUnits float64   `json:"net_units"`
	ZScore   float64   `json:"z_score"`
}

// DetectAnomalies flags rows whose net units deviate more than three
// standard deviations from the trailing window of their own series.
// Windows shorter than the minimum observation count are skipped.
func DetectAnomalies(records []dataset.Record) []Anomaly {
	type key struct{ sku, store string }
	bySeries := make(map[key][]dataset.Record)
	for _, r := range records {
		k := key{r.SKU, r.Store}
		bySeries[k] = append(bySeries[k], r)
	}

	keys := make([]key, 0, len(bySeries))
	for k := range bySeries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].sku != keys[b].sku {
			return keys[a].sku < keys[b].sku
		}
		return keys[a].store < keys[b].store
	})

	var out []Anomaly
	for _, k := range keys {
		series := bySeries[k]
		sort.SliceStable(series, func(a, b int) bool { return series[a].Date.Before(series[b].Date) })

		for i := range series {
			lo := i - anomalyWindow
			if lo < 0 {
				lo = 0
			}
			win := series[lo:i]
			if len(win) < anomalyMinObs {
				continue
			}
			mean, std := meanStd(win)
			if std == 0 {
				continue
			}
			z := (series[i].NetUnits - mean) / std
			if math.Abs(z) > anomalyThreshold {
				out = append(out, Anomaly{
					SKU:      k.sku,
					Store:    k.store,
					Date:     series[i].Date,
					NetUnits: series[i].NetUnits,
					ZScore:   z,
				})
			}
		}
	}
	return out
}

func meanStd(win []dataset.Record) (mean, std float64) {
	for _, r := range win {
		mean += r.NetUnits
	}
	mean /= float64(len(win))
	var sq float64
	for _, r := range win {
		d := r.NetUnits - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(win)-1))
	return mean, std
}
