package features

import (
	"math"
)

// calendarFeatures derives pure date functions: no causality concern.
func (b *Builder) calendarFeatures(f *Frame) error {
	n := f.Len()
	origin := b.origin
	if origin.IsZero() {
		origin = f.MinDate()
	}

	dayOfWeek := make([]float64, n)
	month := make([]float64, n)
	year := make([]float64, n)
	isWeekend := make([]float64, n)
	daysSinceStart := make([]float64, n)
	dayOfYear := make([]float64, n)
	doySin := make([]float64, n)
	doyCos := make([]float64, n)
	weekSin := make([]float64, n)
	weekCos := make([]float64, n)
	monthSin := make([]float64, n)
	monthCos := make([]float64, n)
	dayOfMonth := make([]float64, n)
	monthStart := make([]float64, n)
	monthEnd := make([]float64, n)
	payday := make([]float64, n)
	saleSeason := make([]float64, n)

	for i := 0; i < n; i++ {
		d := f.Dates[i]
		// Monday = 0 .. Sunday = 6
		dow := (int(d.Weekday()) + 6) % 7
		doy := float64(d.YearDay())
		m := int(d.Month())
		dom := d.Day()

		dayOfWeek[i] = float64(dow)
		month[i] = float64(m)
		year[i] = float64(d.Year())
		isWeekend[i] = boolToFloat(dow >= 5)
		daysSinceStart[i] = math.Floor(d.Sub(origin).Hours() / 24)
		dayOfYear[i] = doy
		doySin[i] = math.Sin(2 * math.Pi * doy / 365)
		doyCos[i] = math.Cos(2 * math.Pi * doy / 365)
		weekSin[i] = math.Sin(2 * math.Pi * float64(dow) / 7)
		weekCos[i] = math.Cos(2 * math.Pi * float64(dow) / 7)
		monthSin[i] = math.Sin(2 * math.Pi * float64(m) / 12)
		monthCos[i] = math.Cos(2 * math.Pi * float64(m) / 12)
		dayOfMonth[i] = float64(dom)
		monthStart[i] = boolToFloat(dom <= 5)
		monthEnd[i] = boolToFloat(dom >= 25)
		payday[i] = boolToFloat((dom >= 14 && dom <= 16) || dom >= 29 || dom == 1)
		saleSeason[i] = boolToFloat(m == 11 || m == 12)
	}

	f.AddFeature("day_of_week", dayOfWeek, 0)
	f.AddFeature("month", month, 0)
	f.AddFeature("year", year, 0)
	f.AddFeature("is_weekend", isWeekend, 0)
	f.AddFeature("days_since_start", daysSinceStart, 0)
	f.AddFeature("day_of_year", dayOfYear, 0)
	f.AddFeature("doy_sin", doySin, 0)
	f.AddFeature("doy_cos", doyCos, 0)
	f.AddFeature("week_sin", weekSin, 0)
	f.AddFeature("week_cos", weekCos, 0)
	f.AddFeature("month_sin", monthSin, 0)
	f.AddFeature("month_cos", monthCos, 0)
	f.AddFeature("day_of_month", dayOfMonth, 0)
	f.AddFeature("month_start", monthStart, 0)
	f.AddFeature("month_end", monthEnd, 0)
	f.AddFeature("payday", payday, 0)
	f.AddFeature("sale_season", saleSeason, 0)
	return nil
}
