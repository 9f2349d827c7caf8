package learner

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
)

// GBRT is a gradient-boosted regression tree learner with a squared
// error objective.
type GBRT struct {
	logger *slog.Logger
}

// NewGBRT creates the boosted-trees learner.
func NewGBRT(logger *slog.Logger) *GBRT {
	if logger == nil {
		logger = slog.Default()
	}
	return &GBRT{logger: logger}
}

// BoostedModel is the fitted ensemble. Exported fields serialize with
// gob as part of a model artifact.
type BoostedModel struct {
	Base         float64
	LearningRate float64
	Trees        []*node
}

// Predict scores one feature vector.
func (m *BoostedModel) Predict(x []float64) float64 {
	out := m.Base
	for _, t := range m.Trees {
		out += m.LearningRate * t.predict(x)
	}
	return out
}

// PredictBatch scores every row.
func (m *BoostedModel) PredictBatch(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = m.Predict(x)
	}
	return out
}

// BestRound reports how many boosting rounds the ensemble kept.
func (m *BoostedModel) BestRound() int { return len(m.Trees) }

// Fit trains the ensemble. With a validation set, boosting stops after
// p.EarlyStopping rounds without improvement on validation MAE and the
// ensemble is truncated to its best round. Identical inputs and seed
// produce an identical model.
func (g *GBRT) Fit(ctx context.Context, train Dataset, valid *Dataset, categorical []bool, p Params) (Model, error) {
	if err := validate(train, valid, categorical, p); err != nil {
		return nil, err
	}

	n := train.Len()
	width := len(train.X[0])
	rng := rand.New(rand.NewSource(p.Seed))

	base := mean(train.Y)
	model := &BoostedModel{Base: base, LearningRate: p.LearningRate}

	// running predictions, updated per round
	cur := make([]float64, n)
	for i := range cur {
		cur[i] = base
	}
	var valCur []float64
	if valid != nil && valid.Len() > 0 {
		valCur = make([]float64, valid.Len())
		for i := range valCur {
			valCur[i] = base
		}
	}

	grad := make([]float64, n)
	bestMAE := math.Inf(1)
	bestRound := 0
	sinceBest := 0

	for round := 0; round < p.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := range grad {
			grad[i] = train.Y[i] - cur[i]
		}

		rows := sampleRows(rng, n, p.RowFrac)
		features := sampleFeatures(rng, width, p.FeatureFrac)

		grower := &treeGrower{
			x:           train.X,
			grad:        grad,
			categorical: categorical,
			maxDepth:    p.MaxDepth,
			maxLeaves:   maxLeaves(p),
			minLeaf:     max(1, p.MinSamplesLeaf),
			features:    features,
		}
		tree := grower.grow(rows)
		model.Trees = append(model.Trees, tree)

		for i := range cur {
			cur[i] += p.LearningRate * tree.predict(train.X[i])
		}

		if valCur == nil {
			continue
		}
		for i := range valCur {
			valCur[i] += p.LearningRate * tree.predict(valid.X[i])
		}
		mae := maeOf(valid.Y, valCur)
		if mae < bestMAE-1e-12 {
			bestMAE = mae
			bestRound = round + 1
			sinceBest = 0
		} else {
			sinceBest++
			if p.EarlyStopping > 0 && sinceBest >= p.EarlyStopping {
				break
			}
		}
	}

	if valCur != nil && bestRound > 0 {
		model.Trees = model.Trees[:bestRound]
		g.logger.InfoContext(ctx, "boosting stopped",
			"best_round", bestRound,
			"val_mae", bestMAE,
			"rounds_grown", bestRound+sinceBest)
	}
	return model, nil
}

func maxLeaves(p Params) int {
	if p.NumLeaves > 1 {
		return p.NumLeaves
	}
	return 1 << p.MaxDepth
}

func sampleRows(rng *rand.Rand, n int, frac float64) []int {
	k := int(math.Ceil(frac * float64(n)))
	if k >= n {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	perm := rng.Perm(n)[:k]
	return perm
}

func sampleFeatures(rng *rand.Rand, width int, frac float64) []int {
	k := int(math.Ceil(frac * float64(width)))
	if k >= width {
		all := make([]int, width)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(width)[:k]
}

func mean(ys []float64) float64 {
	sum := 0.0
	for _, y := range ys {
		sum += y
	}
	return sum / float64(len(ys))
}

func maeOf(actual, predicted []float64) float64 {
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}
