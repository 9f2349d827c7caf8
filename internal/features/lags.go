package features

// lagFeatures shifts the target backwards by each configured offset
// within every sku/store series. Positions without enough history get
// the expanding median of the targets seen so far in the series, so
// the value at a row never depends on rows after it.
func (b *Builder) lagFeatures(f *Frame) error {
	offsets := b.cfg.LagOffsets
	target := f.Col(TargetColumn)
	n := f.Len()

	cols := make([][]float64, len(offsets))
	for j := range cols {
		cols[j] = make([]float64, n)
	}

	for _, sp := range f.Spans() {
		med := newRunningMedian()
		for i := sp.Start; i < sp.End; i++ {
			fill := med.value(0)
			pos := i - sp.Start
			for j, k := range offsets {
				if pos >= k {
					cols[j][i] = target[i-k]
				} else {
					cols[j][i] = fill
				}
			}
			med.push(target[i])
		}
	}

	for j, k := range offsets {
		f.AddFeature(lagName(k), cols[j], 0)
	}
	return nil
}
