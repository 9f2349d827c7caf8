package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics. The error-handling design requires exclusion
// counts to be observable, not silently swallowed; these counters are
// the observation surface.
var (
	// ReturnsDropped counts return records referencing a transaction
	// absent from the sales table.
	ReturnsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "demandcast",
		Subsystem: "dataset",
		Name:      "returns_dropped_total",
		Help:      "Return records dropped because their transaction id is unknown",
	})

	// RowsExcluded counts feature rows excluded from fitting because a
	// required feature stayed unresolvable after neutralization.
	RowsExcluded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "demandcast",
		Subsystem: "features",
		Name:      "rows_excluded_total",
		Help:      "Feature rows excluded from model fitting",
	})

	// UnknownCategories counts inference-time categorical values absent
	// from the frozen category maps.
	UnknownCategories = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "demandcast",
		Subsystem: "encoding",
		Name:      "unknown_categories_total",
		Help:      "Out-of-vocabulary categorical values mapped to the unknown bucket",
	}, []string{"column"})

	// TrainingDuration observes end-to-end training pipeline duration.
	TrainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "demandcast",
		Subsystem: "training",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of a training run",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	})

	// TunerTrials counts completed hyperparameter search trials.
	TunerTrials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "demandcast",
		Subsystem: "training",
		Name:      "tuner_trials_total",
		Help:      "Completed hyperparameter search trials",
	})

	// PredictionBatchSize observes how many cases arrive per batch call.
	PredictionBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "demandcast",
		Subsystem: "serving",
		Name:      "prediction_batch_size",
		Help:      "Number of cases per batch prediction call",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	// NeutralForecasts counts cases answered with a flagged neutral
	// forecast because no usable history existed.
	NeutralForecasts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "demandcast",
		Subsystem: "serving",
		Name:      "neutral_forecasts_total",
		Help:      "Cases scored with a neutral forecast due to missing history",
	})
)
