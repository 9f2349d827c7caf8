package features

// priceFeatures derives discount context from the current row's price
// fields. These read non-target context only, so using the current day
// is allowed.
func (b *Builder) priceFeatures(f *Frame) error {
	n := f.Len()
	disc := f.Col("discounted_price")
	list := f.Col("list_price")

	ratio := make([]float64, n)
	wasDiscounted := make([]float64, n)

	for i := 0; i < n; i++ {
		// a zero list price means no discount is expressible
		if list[i] == 0 {
			ratio[i] = 0
		} else {
			r := 1 - disc[i]/list[i]
			if r < 0 {
				r = 0
			} else if r > 1 {
				r = 1
			}
			ratio[i] = r
		}
		wasDiscounted[i] = boolToFloat(disc[i] < list[i])
	}

	f.AddFeature("discount_ratio", ratio, 0)
	f.AddFeature("was_discounted", wasDiscounted, 0)
	return nil
}

// seriesStats derives the whole-history descriptive statistics: the
// target's all-time mean within each series key and the deviation of
// the row's price from the SKU's all-time mean price. Both read rows
// after the feature's own date, unlike everything else in this
// package. Callers that need strict causality must exclude
// series_mean and price_dev_sku.
func (b *Builder) seriesStats(f *Frame) error {
	n := f.Len()
	target := f.Col(TargetColumn)
	disc := f.Col("discounted_price")

	seriesMean := make([]float64, n)
	for _, sp := range f.Spans() {
		mean := nanMean(target[sp.Start:sp.End])
		for i := sp.Start; i < sp.End; i++ {
			seriesMean[i] = mean
		}
	}

	skuPriceSum := make(map[string]float64)
	skuPriceCnt := make(map[string]int)
	for i := 0; i < n; i++ {
		skuPriceSum[f.SKUs[i]] += disc[i]
		skuPriceCnt[f.SKUs[i]]++
	}
	priceDev := make([]float64, n)
	for i := 0; i < n; i++ {
		mean := skuPriceSum[f.SKUs[i]] / float64(skuPriceCnt[f.SKUs[i]])
		priceDev[i] = disc[i] - mean
	}

	f.AddFeature("series_mean", seriesMean, 0)
	f.AddFeature("price_dev_sku", priceDev, 0)
	return nil
}
