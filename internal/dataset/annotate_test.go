package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{SaleEvent: SaleEvent{SKU: "A", Store: "s1", Date: day("2024-03-08"), PromotionID: 7}},
		{SaleEvent: SaleEvent{SKU: "A", Store: "s1", Date: day("2024-03-09"), PromotionID: 7}},
		{SaleEvent: SaleEvent{SKU: "B", Store: "s1", Date: day("2024-03-10"), PromotionID: 0}},
	}
}

func sampleTables() ([]Holiday, []Promotion) {
	holidays := []Holiday{
		{Date: day("2024-03-08"), Name: "Women's Day", Type: "national", DayOff: true},
	}
	promos := []Promotion{
		{ID: 7, Start: day("2024-03-01"), End: day("2024-03-08"), Type: "percent_off", DiscountPercent: 20},
	}
	return holidays, promos
}

func TestAnnotate_HolidayExactMatch(t *testing.T) {
	holidays, promos := sampleTables()
	records := Annotate(context.Background(), sampleRecords(), holidays, promos)

	assert.True(t, records[0].IsHoliday)
	assert.Equal(t, "national", records[0].HolidayType)
	assert.True(t, records[0].DayOff)

	assert.False(t, records[1].IsHoliday)
	assert.Equal(t, NoHoliday, records[1].HolidayType)
}

func TestAnnotate_ActiveRequiresTemporalCoverage(t *testing.T) {
	holidays, promos := sampleTables()
	records := Annotate(context.Background(), sampleRecords(), holidays, promos)

	// inside [start, end]
	assert.True(t, records[0].PromoActive)
	assert.Equal(t, "percent_off", records[0].PromoType)

	// metadata attached but interval does not cover the date
	assert.False(t, records[1].PromoActive)
	assert.Equal(t, "percent_off", records[1].PromoType)
	assert.Equal(t, 20.0, records[1].DiscountPercent)
}

func TestAnnotate_PromotionZeroNeverActive(t *testing.T) {
	promos := []Promotion{
		// referential drift: a table row with id 0 must not activate anything
		{ID: 0, Start: day("2000-01-01"), End: day("2100-01-01"), Type: "bogus"},
	}
	records := Annotate(context.Background(), sampleRecords(), nil, promos)

	assert.False(t, records[2].PromoActive)
	assert.Equal(t, NoPromotion, records[2].PromoType)
}

func TestAnnotate_UnmatchedUsesSentinels(t *testing.T) {
	records := Annotate(context.Background(), sampleRecords(), nil, nil)

	for _, r := range records {
		assert.Equal(t, NoHoliday, r.HolidayType)
		assert.Equal(t, NoPromotion, r.PromoType)
		assert.False(t, r.PromoActive)
	}
}

func TestAnnotate_Idempotent(t *testing.T) {
	holidays, promos := sampleTables()

	once := Annotate(context.Background(), sampleRecords(), holidays, promos)
	twice := Annotate(context.Background(), append([]Record(nil), once...), holidays, promos)

	require.Equal(t, once, twice)
}
