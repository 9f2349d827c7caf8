package forecast

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"demandcast/internal/artifact"
	"demandcast/internal/config"
	"demandcast/internal/dataset"
	"demandcast/internal/errors"
	"demandcast/internal/features"
	"demandcast/internal/infrastructure"
)

// Case is one prediction request: a sku/store pair, the target date
// and the pricing context the caller intends for it.
type Case struct {
	SKU             string    `json:"sku" validate:"required"`
	Store           string    `json:"store" validate:"required"`
	Date            time.Time `json:"date" validate:"required"`
	DiscountedPrice float64   `json:"discounted_price" validate:"gte=0"`
	ListPrice       float64   `json:"list_price" validate:"gte=0"`
	PromotionID     int64     `json:"promotion_id"`
	PromoCodeUsed   bool      `json:"promo_code_used"`
	Weighted        bool      `json:"weighted"`
	LoyaltyBucket   string    `json:"loyalty_bucket"`
}

// Prediction is the scored case.
type Prediction struct {
	Case        Case    `json:"case"`
	NetUnits    float64 `json:"net_units"`
	HistoryRows int     `json:"history_rows"`
	// Neutral marks a forecast made without any series history: every
	// lag and rolling feature fell back to its default.
	Neutral bool `json:"neutral"`
}

type seriesKey struct {
	sku, store string
}

// Reconstructor rebuilds a case's feature row from its recent history
// with the training-time feature builder and scores it against a
// loaded artifact.
type Reconstructor struct {
	cfg      *config.Config
	art      *artifact.Artifact
	builder  *features.Builder
	logger   *slog.Logger
	history  map[seriesKey][]dataset.Record
	promos   []dataset.Promotion
	holidays []dataset.Holiday
}

// NewReconstructor indexes the annotated event history by series. The
// records must come from the same join/annotate treatment used at
// training time.
func NewReconstructor(
	cfg *config.Config,
	art *artifact.Artifact,
	records []dataset.Record,
	promos []dataset.Promotion,
	holidays []dataset.Holiday,
	logger *slog.Logger,
) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	history := make(map[seriesKey][]dataset.Record)
	for _, r := range records {
		k := seriesKey{r.SKU, r.Store}
		history[k] = append(history[k], r)
	}
	for k := range history {
		rs := history[k]
		sort.SliceStable(rs, func(a, b int) bool { return rs[a].Date.Before(rs[b].Date) })
		history[k] = rs
	}
	// window-built frames must count days from the training origin and
	// see store-wide promotion activity beyond their own series
	builder := features.NewBuilder(cfg.Features, logger)
	if !art.Origin.IsZero() {
		builder.SetOrigin(art.Origin)
	}
	builder.SetStorePromoCounts(features.CountStorePromos(records))
	return &Reconstructor{
		cfg:      cfg,
		art:      art,
		builder:  builder,
		logger:   logger,
		history:  history,
		promos:   promos,
		holidays: holidays,
	}
}

// Predict reconstructs the case's history window, appends a synthetic
// row for the case itself, runs the feature builder over the truncated
// series and scores the final row. Prediction-time gaps fill with the
// artifact's per-feature defaults instead of failing.
func (r *Reconstructor) Predict(ctx context.Context, c Case) (Prediction, error) {
	ctx, span := infrastructure.StartSpan(ctx, "forecast.Predict")
	defer span.End()

	if c.SKU == "" || c.Store == "" {
		return Prediction{}, errors.NewValidationError("case requires sku and store")
	}
	if c.Date.IsZero() {
		return Prediction{}, errors.NewValidationError("case requires a date")
	}

	window := r.window(c)
	annotated := dataset.Annotate(ctx, []dataset.Record{r.caseRecord(c)}, r.holidays, r.promos)
	rows := append(append([]dataset.Record(nil), window...), annotated[0])

	frame, err := r.builder.Build(ctx, rows, r.holidays)
	if err != nil {
		return Prediction{}, err
	}
	frame.FillUnresolved()

	sch := &schema{
		numeric:      r.art.Features,
		categoricals: r.art.Categoricals,
		maps:         r.art.CategoryMaps,
	}
	caseRow := findCaseRow(frame, c)
	if caseRow < 0 {
		return Prediction{}, errors.NewNotFoundError("case row lost during frame assembly")
	}
	X, err := sch.lenientMatrix(frame, []int{caseRow})
	if err != nil {
		return Prediction{}, err
	}

	raw := r.art.Model.Predict(X[0])
	units := clampPrediction(math.Expm1(raw), r.art.ClipCeiling)

	p := Prediction{
		Case:        c,
		NetUnits:    units,
		HistoryRows: len(window),
		Neutral:     len(window) == 0,
	}
	if p.Neutral {
		infrastructure.NeutralForecasts.Inc()
		r.logger.WarnContext(ctx, "no history for case",
			"sku", c.SKU, "store", c.Store, "date", c.Date)
	}
	return p, nil
}

// window returns the series history inside [date-horizon, date).
// Nothing at or after the case date may leak in.
func (r *Reconstructor) window(c Case) []dataset.Record {
	all := r.history[seriesKey{c.SKU, c.Store}]
	from := c.Date.AddDate(0, 0, -r.cfg.Evaluation.HorizonDays)

	var out []dataset.Record
	for _, rec := range all {
		if rec.Date.Before(c.Date) && !rec.Date.Before(from) {
			out = append(out, rec)
		}
	}
	return out
}

// caseRecord is the synthetic row for the case itself. Its target is
// unknown by construction.
func (r *Reconstructor) caseRecord(c Case) dataset.Record {
	return dataset.Record{
		SaleEvent: dataset.SaleEvent{
			SKU:             c.SKU,
			Store:           c.Store,
			Date:            c.Date,
			DiscountedPrice: c.DiscountedPrice,
			ListPrice:       c.ListPrice,
			PromotionID:     c.PromotionID,
			PromoCodeUsed:   c.PromoCodeUsed,
			Weighted:        c.Weighted,
			LoyaltyBucket:   c.LoyaltyBucket,
		},
		NetUnits: math.NaN(),
	}
}

func findCaseRow(f *features.Frame, c Case) int {
	for i := f.Len() - 1; i >= 0; i-- {
		if f.SKUs[i] == c.SKU && f.Stores[i] == c.Store && f.Dates[i].Equal(c.Date) {
			return i
		}
	}
	return -1
}

func clampPrediction(v, ceiling float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if ceiling > 0 && v > ceiling {
		return ceiling
	}
	return v
}

func unlog(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = math.Expm1(v)
	}
	return out
}

func clipNonNegative(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}
