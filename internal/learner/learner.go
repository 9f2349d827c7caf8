// Package learner provides the regression learner behind the demand
// model: gradient-boosted regression trees with native categorical
// splits, row and feature subsampling and early stopping on a
// validation set. Training is deterministic for a fixed seed.
package learner

import (
	"context"

	"demandcast/internal/errors"
)

// Dataset is a dense design matrix with its target vector. Rows of X
// and Y line up; categorical columns carry integer codes (with -1 for
// out-of-vocabulary values).
type Dataset struct {
	X [][]float64
	Y []float64
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.X) }

// Params are the tunable hyperparameters of a single fit.
type Params struct {
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	NumLeaves      int     `json:"num_leaves"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	FeatureFrac    float64 `json:"feature_frac"`
	RowFrac        float64 `json:"row_frac"`
	Rounds         int     `json:"rounds"`
	EarlyStopping  int     `json:"early_stopping"`
	Seed           int64   `json:"seed"`
}

// Model scores feature vectors produced by the same encoding that
// trained it.
type Model interface {
	Predict(x []float64) float64
	PredictBatch(X [][]float64) []float64
	// BestRound reports the boosting round the model was truncated to.
	BestRound() int
}

// Learner fits a Model. A nil valid set disables early stopping and
// runs all rounds.
type Learner interface {
	Fit(ctx context.Context, train Dataset, valid *Dataset, categorical []bool, p Params) (Model, error)
}

func validate(train Dataset, valid *Dataset, categorical []bool, p Params) error {
	if train.Len() == 0 {
		return errors.NewNumericError("empty training set")
	}
	if len(train.Y) != train.Len() {
		return errors.NewNumericError("target length does not match design matrix")
	}
	width := len(train.X[0])
	if len(categorical) != width {
		return errors.NewNumericError("categorical mask does not match feature width")
	}
	if valid != nil && valid.Len() > 0 && len(valid.X[0]) != width {
		return errors.NewNumericError("validation feature width differs from training")
	}
	if p.LearningRate <= 0 || p.Rounds <= 0 || p.MaxDepth <= 0 {
		return errors.NewNumericError("non-positive learning rate, rounds or depth")
	}
	if p.FeatureFrac <= 0 || p.FeatureFrac > 1 || p.RowFrac <= 0 || p.RowFrac > 1 {
		return errors.NewNumericError("subsample fractions must lie in (0, 1]")
	}
	return nil
}
