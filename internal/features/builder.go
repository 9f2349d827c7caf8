// Package features builds the model matrix from annotated sale
// records: calendar encodings, price and promotion signals, and
// per-series lag, rolling and trend aggregates of net units. Every
// derived column at a row depends only on that row's own attributes
// and on rows strictly before it within the same sku/store series, so
// the same builder serves both training and prediction-time history
// reconstruction.
package features

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"demandcast/internal/config"
	"demandcast/internal/dataset"
	"demandcast/internal/infrastructure"
)

// Builder derives feature columns from annotated records.
type Builder struct {
	cfg        config.FeaturesConfig
	logger     *slog.Logger
	origin     time.Time
	storePromo map[StoreDay]float64
}

// NewBuilder creates a feature builder with the given parameters.
func NewBuilder(cfg config.FeaturesConfig, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{cfg: cfg, logger: logger}
}

// SetOrigin pins the day-index origin to a fixed date instead of the
// frame's own earliest date. Serving over a trailing history window
// must pin it to the training-time origin, or the elapsed-days column
// collapses to the window length.
func (b *Builder) SetOrigin(t time.Time) { b.origin = t }

// SetStorePromoCounts supplies store-wide active-promotion counts
// computed over the full record set. Frames built from a single
// series' window cannot see the other series sharing the store, so
// serving must inject the counts the training frame derived for
// itself.
func (b *Builder) SetStorePromoCounts(counts map[StoreDay]float64) { b.storePromo = counts }

type stage struct {
	name string
	run  func(*Frame) error
}

// Build assembles the full feature frame from annotated records.
// Stage order matters: trend features read the lag and moving-average
// columns produced earlier.
func (b *Builder) Build(ctx context.Context, records []dataset.Record, holidays []dataset.Holiday) (*Frame, error) {
	ctx, span := infrastructure.StartSpan(ctx, "features.Build")
	defer span.End()

	f := NewFrame(records)

	stages := []stage{
		{"calendar", b.calendarFeatures},
		{"price", b.priceFeatures},
		{"series", b.seriesStats},
		{"promotion", b.promotionFeatures},
		{"holiday", func(f *Frame) error { return b.holidayFeatures(f, holidays) }},
		{"lags", b.lagFeatures},
		{"rolling", b.rollingFeatures},
		{"trend", b.trendFeatures},
	}
	for _, s := range stages {
		if err := s.run(f); err != nil {
			return nil, fmt.Errorf("feature stage %s: %w", s.name, err)
		}
	}

	b.logger.InfoContext(ctx, "feature frame built",
		"rows", f.Len(),
		"series", len(f.Spans()),
		"features", len(f.FeatureSpecs()),
		"categoricals", len(f.CategoricalColumns()))
	return f, nil
}

func lagName(k int) string { return fmt.Sprintf("lag_%d", k) }

func maName(w int) string { return fmt.Sprintf("ma_%d", w) }

func trendName(lag, ma int) string { return fmt.Sprintf("trend_%d_%d", lag, ma) }
