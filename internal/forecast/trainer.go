// Package forecast orchestrates the full modeling cycle: training a
// net-demand model from raw sale and return events, persisting it as
// an artifact, and serving predictions by reconstructing a case's
// feature row from its recent history with the very same feature
// builder that produced the training matrix.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"demandcast/internal/artifact"
	"demandcast/internal/config"
	"demandcast/internal/dataset"
	"demandcast/internal/evaluation"
	"demandcast/internal/features"
	"demandcast/internal/infrastructure"
	"demandcast/internal/learner"
	"demandcast/internal/tuner"
)

// Trainer runs the training pipeline end to end.
type Trainer struct {
	cfg     *config.Config
	learner learner.Learner
	logger  *slog.Logger
}

// NewTrainer wires the pipeline. A nil learner defaults to boosted
// trees.
func NewTrainer(cfg *config.Config, l learner.Learner, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	if l == nil {
		l = learner.NewGBRT(logger)
	}
	return &Trainer{cfg: cfg, learner: l, logger: logger}
}

// Report summarizes one training run for logs and the workbook report.
type Report struct {
	JoinStats    dataset.JoinStats
	RowsTotal    int
	RowsExcluded int
	CVMAE        float64
	TestMetrics  evaluation.Metrics
	BestParams   learner.Params
	BestRound    int
	Trials       int
	FailedTrials int
	Duration     time.Duration
}

// Train fits a model on the event history and returns the artifact
// bundle ready to persist.
func (t *Trainer) Train(
	ctx context.Context,
	sales []dataset.SaleEvent,
	returns []dataset.ReturnRecord,
	promos []dataset.Promotion,
	holidays []dataset.Holiday,
) (*artifact.Artifact, *Report, error) {
	ctx, span := infrastructure.StartSpan(ctx, "forecast.Train")
	defer span.End()
	start := time.Now()
	defer func() {
		infrastructure.TrainingDuration.Observe(time.Since(start).Seconds())
	}()

	records, joinStats := dataset.Join(ctx, sales, returns)
	records = dataset.Annotate(ctx, records, holidays, promos)

	builder := features.NewBuilder(t.cfg.Features, t.logger)
	frame, err := builder.Build(ctx, records, holidays)
	if err != nil {
		return nil, nil, err
	}

	excluded := frame.ResolveNumerics()
	infrastructure.RowsExcluded.Add(float64(len(excluded)))
	usable := usableRows(frame.Len(), excluded)
	if len(usable) == 0 {
		return nil, nil, fmt.Errorf("training pipeline: no usable rows after resolution")
	}
	t.logger.InfoContext(ctx, "rows resolved",
		"total", frame.Len(),
		"excluded", len(excluded))

	split, err := evaluation.HoldoutSplit(datesAt(frame, usable), t.cfg.Evaluation.TestDays)
	if err != nil {
		return nil, nil, err
	}
	trainRows := indexAt(usable, split.Train)
	testRows := indexAt(usable, split.Test)

	ceiling, err := features.ClipCeiling(frame, trainRows, t.cfg.Features.TargetClipQuantile)
	if err != nil {
		return nil, nil, err
	}
	features.ApplyClip(frame, ceiling)

	sch := &schema{
		numeric:      frame.FeatureSpecs(),
		categoricals: frame.CategoricalColumns(),
		maps:         freezeOn(frame, trainRows),
	}

	result, err := t.tune(ctx, frame, sch, trainRows)
	if err != nil {
		return nil, nil, err
	}
	t.logger.InfoContext(ctx, "search finished",
		"trials", result.Trials,
		"failed", result.Failed,
		"cv_mae", result.Score)

	model, testMetrics, err := t.finalFit(ctx, frame, sch, trainRows, testRows, result.Params)
	if err != nil {
		return nil, nil, err
	}

	art := artifact.New(t.cfg.Evaluation.Seed)
	art.Model = model.(*learner.BoostedModel)
	art.Features = sch.numeric
	art.Categoricals = sch.categoricals
	art.CategoryMaps = sch.maps
	art.ClipCeiling = ceiling
	art.Origin = frame.MinDate()
	art.Params = result.Params
	art.CVMAE = result.Score
	art.HoldoutMAE = testMetrics.MAE
	art.TestMetrics = testMetrics

	report := &Report{
		JoinStats:    joinStats,
		RowsTotal:    frame.Len(),
		RowsExcluded: len(excluded),
		CVMAE:        result.Score,
		TestMetrics:  testMetrics,
		BestParams:   result.Params,
		BestRound:    model.BestRound(),
		Trials:       result.Trials,
		FailedTrials: result.Failed,
		Duration:     time.Since(start),
	}
	t.logger.InfoContext(ctx, "training complete",
		"test_mae", testMetrics.MAE,
		"test_rmse", testMetrics.RMSE,
		"best_round", report.BestRound,
		"duration", report.Duration)
	return art, report, nil
}

// tune scores candidate parameters by walk-forward cross-validation
// over the training rows only. Fold encodings reuse the frozen maps:
// the vocabulary is fixed before any fold sees data.
func (t *Trainer) tune(ctx context.Context, frame *features.Frame, sch *schema, trainRows []int) (tuner.Result, error) {
	folds, err := evaluation.WalkForward(datesAt(frame, trainRows), t.cfg.Evaluation.Folds)
	if err != nil {
		return tuner.Result{}, err
	}

	space, err := tuner.NewSpace(t.cfg.Search)
	if err != nil {
		return tuner.Result{}, err
	}

	mask := sch.mask()
	objective := func(ctx context.Context, p learner.Params) (float64, error) {
		p.Rounds = t.cfg.Evaluation.MaxRounds
		p.EarlyStopping = t.cfg.Evaluation.EarlyStopping
		p.Seed = t.cfg.Evaluation.Seed

		total := 0.0
		for _, fold := range folds {
			foldTrain := indexAt(trainRows, fold.Train)
			foldVal := indexAt(trainRows, fold.Val)

			Xt, err := sch.matrix(frame, foldTrain)
			if err != nil {
				return 0, err
			}
			Xv, err := sch.matrix(frame, foldVal)
			if err != nil {
				return 0, err
			}
			train := learner.Dataset{X: Xt, Y: targetAt(frame, features.LogTarget, foldTrain)}
			valid := learner.Dataset{X: Xv, Y: targetAt(frame, features.LogTarget, foldVal)}

			model, err := t.learner.Fit(ctx, train, &valid, mask, p)
			if err != nil {
				return 0, err
			}
			mae, err := evaluation.MAE(
				targetAt(frame, features.ClippedTarget, foldVal),
				unlog(model.PredictBatch(Xv)))
			if err != nil {
				return 0, err
			}
			total += mae
		}
		return total / float64(len(folds)), nil
	}

	return tuner.New(space, t.logger).Optimize(ctx, t.cfg.Evaluation.Seed, t.cfg.Evaluation.Trials, objective)
}

// finalFit trains on all training rows with early stopping against the
// trailing holdout, then scores the holdout in original units.
func (t *Trainer) finalFit(
	ctx context.Context,
	frame *features.Frame,
	sch *schema,
	trainRows, testRows []int,
	p learner.Params,
) (learner.Model, evaluation.Metrics, error) {
	Xt, err := sch.matrix(frame, trainRows)
	if err != nil {
		return nil, evaluation.Metrics{}, err
	}
	Xh, err := sch.matrix(frame, testRows)
	if err != nil {
		return nil, evaluation.Metrics{}, err
	}

	p.Rounds = t.cfg.Evaluation.MaxRounds
	p.EarlyStopping = t.cfg.Evaluation.EarlyStopping
	p.Seed = t.cfg.Evaluation.Seed

	train := learner.Dataset{X: Xt, Y: targetAt(frame, features.LogTarget, trainRows)}
	holdout := learner.Dataset{X: Xh, Y: targetAt(frame, features.LogTarget, testRows)}

	model, err := t.learner.Fit(ctx, train, &holdout, sch.mask(), p)
	if err != nil {
		return nil, evaluation.Metrics{}, err
	}

	metrics, err := evaluation.Evaluate(
		targetAt(frame, features.ClippedTarget, testRows),
		clipNonNegative(unlog(model.PredictBatch(Xh))))
	if err != nil {
		return nil, evaluation.Metrics{}, err
	}
	return model, metrics, nil
}

// freezeOn freezes category maps from the training rows only, so the
// holdout exercises the unknown-category path exactly as serving does.
func freezeOn(f *features.Frame, rows []int) map[string]features.CategoryMap {
	maps := make(map[string]features.CategoryMap)
	for _, name := range f.CategoricalColumns() {
		raw := f.Cat(name)
		vals := make([]string, 0, len(rows))
		for _, i := range rows {
			vals = append(vals, raw[i])
		}
		maps[name] = features.Freeze(vals)
	}
	return maps
}

func usableRows(n int, excluded []int) []int {
	skip := make(map[int]bool, len(excluded))
	for _, i := range excluded {
		skip[i] = true
	}
	rows := make([]int, 0, n-len(excluded))
	for i := 0; i < n; i++ {
		if !skip[i] {
			rows = append(rows, i)
		}
	}
	return rows
}

func datesAt(f *features.Frame, rows []int) []time.Time {
	out := make([]time.Time, len(rows))
	for k, i := range rows {
		out[k] = f.Dates[i]
	}
	return out
}

// indexAt resolves positions within a row subset back to frame rows.
func indexAt(rows []int, positions []int) []int {
	out := make([]int, len(positions))
	for k, p := range positions {
		out[k] = rows[p]
	}
	return out
}
