package features

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/config"
	"demandcast/internal/dataset"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seriesRecords builds consecutive daily records for one sku/store pair.
func seriesRecords(sku, store string, start time.Time, targets []float64) []dataset.Record {
	records := make([]dataset.Record, len(targets))
	for i, t := range targets {
		records[i] = dataset.Record{
			SaleEvent: dataset.SaleEvent{
				SKU:             sku,
				Store:           store,
				Date:            start.AddDate(0, 0, i),
				DiscountedPrice: 80,
				ListPrice:       100,
			},
			NetUnits:  t,
			PromoType: dataset.NoPromotion,
		}
	}
	return records
}

func buildFrame(t *testing.T, records []dataset.Record, holidays []dataset.Holiday) *Frame {
	t.Helper()
	b := NewBuilder(config.Default().Features, nil)
	f, err := b.Build(context.Background(), records, holidays)
	require.NoError(t, err)
	return f
}

func TestLagFeatures(t *testing.T) {
	start := day(2024, time.March, 1)
	f := buildFrame(t, seriesRecords("sku-1", "store-1", start, []float64{5, 3, 8, 4}), nil)

	lag1 := f.Col("lag_1")
	require.NotNil(t, lag1)
	// no history at the first row falls back to the expanding median,
	// which defaults to zero when nothing has been seen
	assert.Equal(t, 0.0, lag1[0])
	assert.Equal(t, 5.0, lag1[1])
	assert.Equal(t, 3.0, lag1[2])
	assert.Equal(t, 8.0, lag1[3])

	// offset larger than position: expanding median of the prior targets
	lag7 := f.Col("lag_7")
	require.NotNil(t, lag7)
	assert.Equal(t, 0.0, lag7[0])
	assert.Equal(t, 5.0, lag7[1]) // median{5}
	assert.Equal(t, 4.0, lag7[2]) // median{5,3}
	assert.Equal(t, 5.0, lag7[3]) // median{5,3,8}
}

func TestRollingFeaturesExcludeCurrentRow(t *testing.T) {
	start := day(2024, time.March, 1)
	f := buildFrame(t, seriesRecords("sku-1", "store-1", start, []float64{5, 3, 8, 4}), nil)

	sum := f.Col("roll_sum_3")
	mean := f.Col("roll_mean_3")
	median := f.Col("roll_median_3")
	count := f.Col("roll_count_3")
	require.NotNil(t, sum)

	// row 3 sees rows 0..2 only; its own target never enters the window
	assert.Equal(t, 16.0, sum[3])
	assert.InDelta(t, 16.0/3, mean[3], 1e-9)
	assert.Equal(t, 5.0, median[3])
	assert.Equal(t, 3.0, count[3])
	assert.Equal(t, 8.0, f.Col("roll_max_3")[3])
	assert.Equal(t, 3.0, f.Col("roll_min_3")[3])

	// empty window on the first row
	assert.Equal(t, 0.0, sum[0])
	assert.Equal(t, 0.0, count[0])
	assert.Equal(t, 0.0, mean[0])
	assert.Equal(t, 0.0, f.Col("roll_max_3")[0])

	ma7 := f.Col("ma_7")
	require.NotNil(t, ma7)
	assert.InDelta(t, (5.0+3+8)/3, ma7[3], 1e-9)
}

func TestTrendFeatures(t *testing.T) {
	start := day(2024, time.March, 1)
	f := buildFrame(t, seriesRecords("sku-1", "store-1", start, []float64{5, 3, 8, 4}), nil)

	trend := f.Col("trend_1_7")
	require.NotNil(t, trend)
	lag1 := f.Col("lag_1")
	ma7 := f.Col("ma_7")
	for i := 0; i < f.Len(); i++ {
		assert.InDelta(t, lag1[i]-ma7[i], trend[i], 1e-9)
	}

	// the longer trend compares the two moving averages
	t730 := f.Col("trend_7_30")
	require.NotNil(t, t730)
	ma30 := f.Col("ma_30")
	for i := 0; i < f.Len(); i++ {
		assert.InDelta(t, ma7[i]-ma30[i], t730[i], 1e-9)
	}

	// exact slope on a linear ramp
	g := buildFrame(t, seriesRecords("sku-2", "store-1", start, []float64{1, 2, 3, 4, 5}), nil)
	slope := g.Col("trend_slope_7")
	require.NotNil(t, slope)
	assert.Equal(t, 0.0, slope[0]) // fewer than 3 observations
	assert.Equal(t, 0.0, slope[2])
	assert.InDelta(t, 1.0, slope[3], 1e-9)
	assert.InDelta(t, 1.0, slope[4], 1e-9)
}

func TestCalendarFeatures(t *testing.T) {
	// 2024-01-01 is a Monday
	f := buildFrame(t, seriesRecords("sku-1", "store-1", day(2024, time.January, 1), []float64{1, 1, 1, 1, 1, 1, 1}), nil)

	dow := f.Col("day_of_week")
	weekend := f.Col("is_weekend")
	assert.Equal(t, 0.0, dow[0])
	assert.Equal(t, 5.0, dow[5]) // Saturday
	assert.Equal(t, 1.0, weekend[5])
	assert.Equal(t, 1.0, weekend[6])
	assert.Equal(t, 0.0, weekend[4])

	assert.Equal(t, 0.0, f.Col("days_since_start")[0])
	assert.Equal(t, 6.0, f.Col("days_since_start")[6])
	assert.Equal(t, 1.0, f.Col("month_start")[0])
	assert.Equal(t, 1.0, f.Col("payday")[0]) // first of month
	assert.Equal(t, 0.0, f.Col("sale_season")[0])
}

func TestHolidayProximity(t *testing.T) {
	start := day(2024, time.March, 1)
	holidays := []dataset.Holiday{
		{Date: day(2024, time.March, 3), Name: "spring", Type: "public"},
	}
	f := buildFrame(t, seriesRecords("sku-1", "store-1", start, []float64{1, 1, 1, 1, 1}), holidays)

	to := f.Col("days_to_holiday")
	from := f.Col("days_from_holiday")
	assert.Equal(t, 2.0, to[0])
	assert.Equal(t, 0.0, to[2])
	assert.Equal(t, 0.0, from[2])
	assert.Equal(t, 2.0, from[4])
	// nothing ahead of the last holiday
	assert.Equal(t, 999.0, to[4])
	// nothing behind the first rows
	assert.Equal(t, 999.0, from[0])
}

func TestHolidayProximityNoHolidays(t *testing.T) {
	f := buildFrame(t, seriesRecords("sku-1", "store-1", day(2024, time.March, 1), []float64{1, 1}), nil)
	assert.Equal(t, 999.0, f.Col("days_to_holiday")[0])
	assert.Equal(t, 999.0, f.Col("days_from_holiday")[1])
}

func TestPromotionWindowCountsDistinctActiveIDs(t *testing.T) {
	start := day(2024, time.March, 1)
	records := seriesRecords("sku-1", "store-1", start, []float64{1, 1, 1, 1})
	records[0].PromotionID = 11
	records[0].PromoActive = true
	records[1].PromotionID = 22
	records[1].PromoActive = true
	records[2].PromotionID = 11 // same promotion again
	records[2].PromoActive = true
	records[3].PromotionID = 33
	records[3].PromoActive = false // matched but not active

	f := buildFrame(t, records, nil)
	distinct := f.Col("promo_distinct_window")
	require.NotNil(t, distinct)
	assert.Equal(t, []float64{1, 2, 2, 2}, distinct)
}

func TestPromotionWindowIsCalendarDays(t *testing.T) {
	start := day(2024, time.March, 1)
	// two active promo rows 40 calendar days apart: the second row's
	// window no longer contains the first even though it is the
	// immediately preceding row
	records := []dataset.Record{
		{SaleEvent: dataset.SaleEvent{SKU: "s", Store: "st", Date: start, PromotionID: 11}, NetUnits: 1, PromoActive: true, PromoType: "flyer"},
		{SaleEvent: dataset.SaleEvent{SKU: "s", Store: "st", Date: start.AddDate(0, 0, 40), PromotionID: 22}, NetUnits: 1, PromoActive: true, PromoType: "flyer"},
	}
	f := buildFrame(t, records, nil)
	assert.Equal(t, []float64{1, 1}, f.Col("promo_distinct_window"))
}

func TestDiscountRatio(t *testing.T) {
	start := day(2024, time.March, 1)
	records := seriesRecords("sku-1", "store-1", start, []float64{1, 1, 1})
	records[0].DiscountedPrice = 80
	records[0].ListPrice = 100
	records[1].DiscountedPrice = 120 // above list
	records[1].ListPrice = 100
	records[2].DiscountedPrice = 50
	records[2].ListPrice = 0 // unknown list price

	f := buildFrame(t, records, nil)
	ratio := f.Col("discount_ratio")
	require.NotNil(t, ratio)
	assert.InDelta(t, 0.2, ratio[0], 1e-9)
	assert.Equal(t, 0.0, ratio[1]) // clamped
	assert.Equal(t, 0.0, ratio[2]) // zero list price
}

// Dropping rows after a cutoff date must leave every causal feature of
// the surviving rows untouched. Only the whole-history series stats may
// move.
func TestTruncationLeavesCausalFeaturesUnchanged(t *testing.T) {
	start := day(2024, time.March, 1)
	targets := []float64{5, 3, 8, 4, 9, 2, 7, 6, 1, 10}
	full := seriesRecords("sku-1", "store-1", start, targets)
	full = append(full, seriesRecords("sku-2", "store-1", start, []float64{2, 4, 6, 8, 10, 12, 14, 16, 18, 20})...)

	cutoff := start.AddDate(0, 0, 5)
	var truncated []dataset.Record
	for _, r := range full {
		if !r.Date.After(cutoff) {
			truncated = append(truncated, r)
		}
	}

	fullFrame := buildFrame(t, full, nil)
	truncFrame := buildFrame(t, truncated, nil)
	require.Less(t, truncFrame.Len(), fullFrame.Len())

	nonCausal := map[string]bool{"series_mean": true, "price_dev_sku": true}
	for _, spec := range truncFrame.FeatureSpecs() {
		if nonCausal[spec.Name] {
			continue
		}
		got := truncFrame.Col(spec.Name)
		want := fullFrame.Col(spec.Name)
		require.NotNil(t, want, spec.Name)
		for i := range got {
			// frames sort identically, so shared rows line up by
			// (sku, store, date)
			j := findRow(fullFrame, truncFrame.SKUs[i], truncFrame.Stores[i], truncFrame.Dates[i])
			require.GreaterOrEqual(t, j, 0)
			if math.IsNaN(got[i]) {
				assert.True(t, math.IsNaN(want[j]), spec.Name)
				continue
			}
			assert.InDelta(t, want[j], got[i], 1e-9, "column %s row %d", spec.Name, i)
		}
	}
}

func findRow(f *Frame, sku, store string, date time.Time) int {
	for i := 0; i < f.Len(); i++ {
		if f.SKUs[i] == sku && f.Stores[i] == store && f.Dates[i].Equal(date) {
			return i
		}
	}
	return -1
}

func TestSeriesAreIndependent(t *testing.T) {
	start := day(2024, time.March, 1)
	records := append(
		seriesRecords("sku-1", "store-1", start, []float64{5, 3, 8}),
		seriesRecords("sku-2", "store-1", start, []float64{100, 200, 300})...,
	)
	f := buildFrame(t, records, nil)

	lag1 := f.Col("lag_1")
	spans := f.Spans()
	require.Len(t, spans, 2)
	// first row of the second series must not see the first series
	assert.Equal(t, 0.0, lag1[spans[1].Start])
}

func TestClipCeilingAndApply(t *testing.T) {
	start := day(2024, time.March, 1)
	targets := make([]float64, 100)
	for i := range targets {
		targets[i] = float64(i + 1)
	}
	f := buildFrame(t, seriesRecords("sku-1", "store-1", start, targets), nil)

	rows := make([]int, f.Len())
	for i := range rows {
		rows[i] = i
	}
	ceiling, err := ClipCeiling(f, rows, 0.99)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ceiling, 98.0)
	assert.LessOrEqual(t, ceiling, 100.0)

	ApplyClip(f, ceiling)
	clipped := f.Col(ClippedTarget)
	logged := f.Col(LogTarget)
	require.NotNil(t, clipped)
	for i, v := range clipped {
		assert.LessOrEqual(t, v, ceiling)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.InDelta(t, math.Log1p(v), logged[i], 1e-9)
	}
	// clipped targets stay out of the model inputs
	for _, spec := range f.FeatureSpecs() {
		assert.NotEqual(t, ClippedTarget, spec.Name)
		assert.NotEqual(t, LogTarget, spec.Name)
	}
}

func TestClipCeilingNoTargets(t *testing.T) {
	f := buildFrame(t, seriesRecords("sku-1", "store-1", day(2024, time.March, 1), []float64{1}), nil)
	_, err := ClipCeiling(f, nil, 0.99)
	assert.Error(t, err)
}

func TestCaseRowFeaturesFromHistory(t *testing.T) {
	start := day(2024, time.March, 1)
	records := seriesRecords("sku-1", "store-1", start, []float64{2, 0, 5})

	// synthetic row for the next day, target unknown
	caseRec := records[2]
	caseRec.Date = start.AddDate(0, 0, 3)
	caseRec.NetUnits = math.NaN()
	f := buildFrame(t, append(records, caseRec), nil)

	caseRow := len(records)
	assert.Equal(t, 5.0, f.Col("lag_1")[caseRow])
	assert.InDelta(t, 7.0/3.0, f.Col("roll_mean_3")[caseRow], 1e-9)
	assert.Equal(t, 7.0, f.Col("roll_sum_3")[caseRow])
	assert.Equal(t, 3.0, f.Col("roll_count_3")[caseRow])
}

func TestOriginOverridePinsDayIndex(t *testing.T) {
	start := day(2024, time.March, 1)
	full := seriesRecords("sku-1", "store-1", start, []float64{5, 3, 8, 4, 9, 2, 7})
	fullFrame := buildFrame(t, full, nil)

	// a frame holding only the series tail counts days from the tail
	// start unless the origin is pinned
	tail := full[4:]
	b := NewBuilder(config.Default().Features, nil)
	b.SetOrigin(start)
	tailFrame, err := b.Build(context.Background(), tail, nil)
	require.NoError(t, err)

	got := tailFrame.Col("days_since_start")
	want := fullFrame.Col("days_since_start")
	assert.Equal(t, want[4:], got)
	assert.Equal(t, 6.0, got[len(got)-1])
}

func TestStorePromoCountInjection(t *testing.T) {
	start := day(2024, time.March, 1)
	a := seriesRecords("sku-a", "store-1", start, []float64{1, 1, 1})
	b := seriesRecords("sku-b", "store-1", start, []float64{2, 2, 2})
	for i := range b {
		b[i].PromotionID = 11
		b[i].PromoActive = true
	}

	full := append(append([]dataset.Record(nil), a...), b...)
	fullFrame := buildFrame(t, full, nil)
	// within the full frame, sku-a rows see sku-b's active promotions
	assert.Equal(t, 1.0, fullFrame.Col("store_active_promos")[0])

	// a frame built from sku-a alone cannot, unless the counts are
	// injected from the full record set
	bare := buildFrame(t, a, nil)
	assert.Equal(t, 0.0, bare.Col("store_active_promos")[0])

	bld := NewBuilder(config.Default().Features, nil)
	bld.SetStorePromoCounts(CountStorePromos(full))
	injected, err := bld.Build(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, injected.Col("store_active_promos")[0])
}

func TestResolveNumericsExcludesNaNRows(t *testing.T) {
	start := day(2024, time.March, 1)
	records := seriesRecords("sku-1", "store-1", start, []float64{5, 3, 8})
	records[1].DiscountedPrice = math.NaN()
	f := buildFrame(t, records, nil)

	excluded := f.ResolveNumerics()
	assert.Equal(t, []int{1}, excluded)

	// serving path fills instead of excluding
	f.FillUnresolved()
	assert.Equal(t, f.Default("discounted_price"), f.Col("discounted_price")[1])
	assert.Empty(t, f.ResolveNumerics())
}
