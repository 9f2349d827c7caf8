package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"demandcast/internal/dataset"
)

// TargetColumn is the raw net-units target. It is never offered to the
// model; ClippedTarget and LogTarget are derived from it by the trainer.
const (
	TargetColumn  = "net_units"
	ClippedTarget = "net_units_clipped"
	LogTarget     = "log_net_units"
)

// FeatureSpec describes one model input column: its name and the
// neutral default used when the column is absent or unresolvable at
// inference time. The set of specs registered during a build is the
// single source of truth consulted by training and reconstruction.
type FeatureSpec struct {
	Name    string
	Default float64
}

// Span is a half-open row range [Start, End) covering one series key.
type Span struct {
	Start, End int
}

// Frame is an ordered columnar table of (series key, date)
// observations. All grouped feature computation requires the frame to
// be sorted by (SKU, store, date); Build establishes that order once
// and every stage asserts it.
type Frame struct {
	n int

	SKUs   []string
	Stores []string
	Dates  []time.Time

	// promotion context used by the calendar-day diversity window
	PromoIDs    []int64
	PromoActive []bool

	cols     map[string][]float64
	order    []string
	defaults map[string]float64
	base     map[string]bool

	cats     map[string][]string
	catOrder []string

	sorted bool
	spans  []Span
}

// NewFrame builds a frame from joined, annotated records and sorts it
// by (SKU, store, date). Date ties within a key keep their input order.
func NewFrame(records []dataset.Record) *Frame {
	n := len(records)
	f := &Frame{
		n:           n,
		SKUs:        make([]string, n),
		Stores:      make([]string, n),
		Dates:       make([]time.Time, n),
		PromoIDs:    make([]int64, n),
		PromoActive: make([]bool, n),
		cols:        make(map[string][]float64),
		defaults:    make(map[string]float64),
		base:        make(map[string]bool),
		cats:        make(map[string][]string),
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := &records[idx[a]], &records[idx[b]]
		if ra.SKU != rb.SKU {
			return ra.SKU < rb.SKU
		}
		if ra.Store != rb.Store {
			return ra.Store < rb.Store
		}
		return ra.Date.Before(rb.Date)
	})

	target := make([]float64, n)
	discPrice := make([]float64, n)
	listPrice := make([]float64, n)
	basket := make([]float64, n)
	certificate := make([]float64, n)
	promoActive := make([]float64, n)
	discountPct := make([]float64, n)
	isHoliday := make([]float64, n)
	dayOff := make([]float64, n)

	promoType := make([]string, n)
	clearance := make([]string, n)
	promoCode := make([]string, n)
	weighted := make([]string, n)
	loyalty := make([]string, n)

	for pos, src := range idx {
		r := &records[src]
		f.SKUs[pos] = r.SKU
		f.Stores[pos] = r.Store
		f.Dates[pos] = r.Date
		f.PromoIDs[pos] = r.PromotionID
		f.PromoActive[pos] = r.PromoActive

		target[pos] = r.NetUnits
		discPrice[pos] = r.DiscountedPrice
		listPrice[pos] = r.ListPrice
		basket[pos] = r.BasketTotal
		certificate[pos] = r.CertificateAmount
		promoActive[pos] = boolToFloat(r.PromoActive)
		discountPct[pos] = r.DiscountPercent
		isHoliday[pos] = boolToFloat(r.IsHoliday)
		dayOff[pos] = boolToFloat(r.DayOff)

		promoType[pos] = r.PromoType
		clearance[pos] = flagCategory(r.Clearance)
		promoCode[pos] = flagCategory(r.PromoCodeUsed)
		weighted[pos] = flagCategory(r.Weighted)
		loyalty[pos] = r.LoyaltyBucket
	}

	f.addBase(TargetColumn, target)
	f.AddFeature("discounted_price", discPrice, 0)
	f.AddFeature("list_price", listPrice, 0)
	f.AddFeature("basket_total", basket, 0)
	f.AddFeature("certificate_amount", certificate, 0)
	f.AddFeature("promo_active", promoActive, 0)
	f.AddFeature("discount_percent", discountPct, 0)
	f.AddFeature("is_holiday", isHoliday, 0)
	f.AddFeature("day_off", dayOff, 0)

	f.AddCategorical("sku", f.SKUs)
	f.AddCategorical("store", f.Stores)
	f.AddCategorical("promo_type", promoType)
	f.AddCategorical("clearance", clearance)
	f.AddCategorical("promo_code_used", promoCode)
	f.AddCategorical("weighted", weighted)
	f.AddCategorical("loyalty_bucket", loyalty)

	f.sorted = true
	f.computeSpans()
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// AddFeature registers a model input column with its neutral default.
func (f *Frame) AddFeature(name string, values []float64, def float64) {
	if len(values) != f.n {
		panic(fmt.Sprintf("column %s has %d values, frame has %d rows", name, len(values), f.n))
	}
	if _, exists := f.cols[name]; !exists {
		f.order = append(f.order, name)
	}
	f.cols[name] = values
	f.defaults[name] = def
}

// addBase registers a column held by the frame but never offered to
// the model (targets and their derivations).
func (f *Frame) addBase(name string, values []float64) {
	if _, exists := f.cols[name]; !exists {
		f.order = append(f.order, name)
	}
	f.cols[name] = values
	f.base[name] = true
}

// AddCategorical registers a raw categorical column.
func (f *Frame) AddCategorical(name string, values []string) {
	if len(values) != f.n {
		panic(fmt.Sprintf("column %s has %d values, frame has %d rows", name, len(values), f.n))
	}
	if _, exists := f.cats[name]; !exists {
		f.catOrder = append(f.catOrder, name)
	}
	f.cats[name] = values
}

// Col returns a numeric column, or nil when absent.
func (f *Frame) Col(name string) []float64 { return f.cols[name] }

// Cat returns a raw categorical column, or nil when absent.
func (f *Frame) Cat(name string) []string { return f.cats[name] }

// HasCol reports whether a numeric column exists.
func (f *Frame) HasCol(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Default returns the registered neutral default for a feature column.
func (f *Frame) Default(name string) float64 { return f.defaults[name] }

// FeatureSpecs returns the ordered model input columns registered so
// far, excluding base (target) columns.
func (f *Frame) FeatureSpecs() []FeatureSpec {
	specs := make([]FeatureSpec, 0, len(f.order))
	for _, name := range f.order {
		if f.base[name] {
			continue
		}
		specs = append(specs, FeatureSpec{Name: name, Default: f.defaults[name]})
	}
	return specs
}

// CategoricalColumns returns the ordered raw categorical column names.
func (f *Frame) CategoricalColumns() []string {
	return append([]string(nil), f.catOrder...)
}

// Spans returns the per-series contiguous row ranges.
func (f *Frame) Spans() []Span {
	f.mustBeSorted()
	return f.spans
}

// MinDate returns the earliest date in the frame, the origin of the
// days-since-start index.
func (f *Frame) MinDate() time.Time {
	if f.n == 0 {
		return time.Time{}
	}
	min := f.Dates[0]
	for _, d := range f.Dates[1:] {
		if d.Before(min) {
			min = d
		}
	}
	return min
}

// ResolveNumerics neutralizes infinities in every feature column to the
// column default, then reports rows still carrying NaN in any feature
// column. Training excludes those rows; serving fills them instead.
func (f *Frame) ResolveNumerics() []int {
	bad := make([]bool, f.n)
	for _, name := range f.order {
		if f.base[name] {
			continue
		}
		col := f.cols[name]
		def := f.defaults[name]
		for i, v := range col {
			if math.IsInf(v, 0) {
				col[i] = def
			} else if math.IsNaN(v) {
				bad[i] = true
			}
		}
	}
	var excluded []int
	for i, b := range bad {
		if b {
			excluded = append(excluded, i)
		}
	}
	return excluded
}

// FillUnresolved replaces any remaining NaN in feature columns with
// the column default. Serving uses this instead of row exclusion.
func (f *Frame) FillUnresolved() {
	for _, name := range f.order {
		if f.base[name] {
			continue
		}
		col := f.cols[name]
		def := f.defaults[name]
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				col[i] = def
			}
		}
	}
}

func (f *Frame) computeSpans() {
	f.spans = f.spans[:0]
	for start := 0; start < f.n; {
		end := start + 1
		for end < f.n && f.SKUs[end] == f.SKUs[start] && f.Stores[end] == f.Stores[start] {
			end++
		}
		f.spans = append(f.spans, Span{Start: start, End: end})
		start = end
	}
}

func (f *Frame) mustBeSorted() {
	if !f.sorted {
		panic("frame is not sorted by (sku, store, date)")
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// flagCategory renders a boolean flag as a categorical value.
func flagCategory(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
