package features

import (
	"fmt"
	"math"
)

// rollingFeatures computes trailing-window aggregates of the target
// within each sku/store series. A window at row i covers the w rows
// before i and never row i itself, so the features stay usable at
// prediction time when the target is unknown.
func (b *Builder) rollingFeatures(f *Frame) error {
	target := f.Col(TargetColumn)
	n := f.Len()

	type agg struct {
		name string
		vals []float64
		def  float64
	}
	var out []agg
	add := func(name string, def float64) []float64 {
		vals := make([]float64, n)
		out = append(out, agg{name, vals, def})
		return vals
	}

	rollCols := make(map[int]struct{ sum, mean, median, count, max, min []float64 })
	for _, w := range b.cfg.RollingWindows {
		rollCols[w] = struct{ sum, mean, median, count, max, min []float64 }{
			sum:    add(fmt.Sprintf("roll_sum_%d", w), 0),
			mean:   add(fmt.Sprintf("roll_mean_%d", w), 0),
			median: add(fmt.Sprintf("roll_median_%d", w), 0),
			count:  add(fmt.Sprintf("roll_count_%d", w), 0),
			max:    add(fmt.Sprintf("roll_max_%d", w), 0),
			min:    add(fmt.Sprintf("roll_min_%d", w), 0),
		}
	}
	maCols := make(map[int][]float64)
	for _, w := range b.cfg.MAWindows {
		maCols[w] = add(fmt.Sprintf("ma_%d", w), 0)
	}
	stdCols := make(map[int][]float64)
	for _, w := range b.cfg.StdWindows {
		stdCols[w] = add(fmt.Sprintf("roll_std_%d", w), 0)
	}

	for _, sp := range f.Spans() {
		med := newRunningMedian()
		for i := sp.Start; i < sp.End; i++ {
			fill := med.value(0)

			for _, w := range b.cfg.RollingWindows {
				c := rollCols[w]
				win := window(target, sp.Start, i, w)
				valid := dropNaN(win)
				c.count[i] = float64(len(valid))
				if len(valid) == 0 {
					c.sum[i] = 0
					c.mean[i] = fill
					c.median[i] = fill
					c.max[i] = fill
					c.min[i] = fill
					continue
				}
				s := 0.0
				hi, lo := valid[0], valid[0]
				for _, v := range valid {
					s += v
					if v > hi {
						hi = v
					}
					if v < lo {
						lo = v
					}
				}
				c.sum[i] = s
				c.mean[i] = s / float64(len(valid))
				c.median[i] = nanMedian(valid)
				c.max[i] = hi
				c.min[i] = lo
			}

			for _, w := range b.cfg.MAWindows {
				win := window(target, sp.Start, i, w)
				m := nanMean(win)
				if math.IsNaN(m) {
					m = fill
				}
				maCols[w][i] = m
			}

			for _, w := range b.cfg.StdWindows {
				win := window(target, sp.Start, i, w)
				valid := dropNaN(win)
				if len(valid) < 2 {
					stdCols[w][i] = 0
				} else {
					stdCols[w][i] = nanStd(valid)
				}
			}

			med.push(target[i])
		}
	}

	for _, a := range out {
		f.AddFeature(a.name, a.vals, a.def)
	}
	return nil
}

// window returns the slice of vals covering the up-to-w rows before i,
// bounded by the series start.
func window(vals []float64, start, i, w int) []float64 {
	lo := i - w
	if lo < start {
		lo = start
	}
	return vals[lo:i]
}
