package features

// trendFeatures derives short-horizon momentum signals from the lag
// and moving-average columns. Runs after lagFeatures and
// rollingFeatures.
func (b *Builder) trendFeatures(f *Frame) error {
	target := f.Col(TargetColumn)
	n := f.Len()

	// short momentum against the weekly average, weekly average against
	// the monthly one
	diff := func(name string, a, b []float64) {
		if a == nil || b == nil {
			return
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = a[i] - b[i]
		}
		f.AddFeature(name, vals, 0)
	}
	diff(trendName(1, 7), f.Col(lagName(1)), f.Col(maName(7)))
	diff(trendName(7, 30), f.Col(maName(7)), f.Col(maName(30)))

	// slope of the last up-to-7 observed targets before each row
	slope := make([]float64, n)
	for _, sp := range f.Spans() {
		for i := sp.Start; i < sp.End; i++ {
			win := dropNaN(window(target, sp.Start, i, 7))
			if len(win) < 3 {
				slope[i] = 0
				continue
			}
			slope[i] = fitSlope(win)
		}
	}
	f.AddFeature("trend_slope_7", slope, 0)
	return nil
}
