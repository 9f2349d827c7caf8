package dataset

import (
	"context"
	"log/slog"
	"time"
)

// Annotate attaches holiday and promotion context to every record as of
// its transaction date. Holiday matching is exact-date only. Promotion
// metadata is attached by promotion id; the active flag is computed
// independently and requires id != 0 AND the date inside [start, end]
// inclusive, because a row may carry the id of a promotion whose
// interval does not cover the sale date.
//
// The annotation is a pure function of the sale event and the two
// lookup tables, so running it again over already-annotated records
// yields identical output.
func Annotate(ctx context.Context, records []Record, holidays []Holiday, promos []Promotion) []Record {
	logger := slog.Default()

	holidayByDate := make(map[time.Time]Holiday, len(holidays))
	for _, h := range holidays {
		holidayByDate[dateOnly(h.Date)] = h
	}
	promoByID := make(map[int64]Promotion, len(promos))
	for _, p := range promos {
		promoByID[p.ID] = p
	}

	annotated := 0
	for i := range records {
		r := &records[i]
		day := dateOnly(r.Date)

		if h, ok := holidayByDate[day]; ok {
			r.IsHoliday = true
			r.HolidayType = h.Type
			r.DayOff = h.DayOff
		} else {
			r.IsHoliday = false
			r.HolidayType = NoHoliday
			r.DayOff = false
		}

		p, havePromo := promoByID[r.PromotionID]
		if havePromo && r.PromotionID != 0 {
			r.PromoType = p.Type
			r.DiscountPercent = p.DiscountPercent
			r.Clearance = p.Clearance
			// activity is the temporal check, separate from the join
			r.PromoActive = !day.Before(dateOnly(p.Start)) && !day.After(dateOnly(p.End))
			annotated++
		} else {
			r.PromoType = NoPromotion
			r.DiscountPercent = 0
			r.Clearance = false
			r.PromoActive = false
		}
	}

	logger.InfoContext(ctx, "annotation complete",
		"rows", len(records),
		"holidays", len(holidayByDate),
		"promotions", len(promoByID),
		"promo_matched_rows", annotated,
	)
	return records
}

// dateOnly truncates a timestamp to its calendar day in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
