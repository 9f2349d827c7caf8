// Package tuner implements seeded random search over the learner's
// hyperparameter space. Bounds are validated when the space is built;
// an inverted or empty range never reaches a trial.
package tuner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"demandcast/internal/config"
	"demandcast/internal/errors"
	"demandcast/internal/infrastructure"
	"demandcast/internal/learner"
)

// Space is a validated hyperparameter search space.
type Space struct {
	cfg config.SearchConfig
}

// NewSpace validates the configured bounds and returns the space.
func NewSpace(cfg config.SearchConfig) (*Space, error) {
	checks := []struct {
		name     string
		min, max float64
	}{
		{"learning_rate", cfg.LearningRateMin, cfg.LearningRateMax},
		{"leaves", float64(cfg.LeavesMin), float64(cfg.LeavesMax)},
		{"depth", float64(cfg.DepthMin), float64(cfg.DepthMax)},
		{"min_samples", float64(cfg.MinSamplesMin), float64(cfg.MinSamplesMax)},
		{"feature_frac", cfg.FeatureFracMin, cfg.FeatureFracMax},
		{"row_frac", cfg.RowFracMin, cfg.RowFracMax},
	}
	for _, c := range checks {
		if c.min > c.max {
			return nil, errors.NewSearchSpaceError(
				fmt.Sprintf("%s bounds inverted: min %v > max %v", c.name, c.min, c.max))
		}
		if c.min <= 0 {
			return nil, errors.NewSearchSpaceError(
				fmt.Sprintf("%s lower bound must be positive, got %v", c.name, c.min))
		}
	}
	return &Space{cfg: cfg}, nil
}

// Sample draws one parameter set. Learning rate is sampled
// log-uniformly, integer parameters uniformly over their closed range.
func (s *Space) Sample(rng *rand.Rand) learner.Params {
	c := s.cfg
	return learner.Params{
		LearningRate:   logUniform(rng, c.LearningRateMin, c.LearningRateMax),
		NumLeaves:      intUniform(rng, c.LeavesMin, c.LeavesMax),
		MaxDepth:       intUniform(rng, c.DepthMin, c.DepthMax),
		MinSamplesLeaf: intUniform(rng, c.MinSamplesMin, c.MinSamplesMax),
		FeatureFrac:    uniform(rng, c.FeatureFracMin, c.FeatureFracMax),
		RowFrac:        uniform(rng, c.RowFracMin, c.RowFracMax),
	}
}

// Objective scores one parameter set; lower is better.
type Objective func(ctx context.Context, p learner.Params) (float64, error)

// Result is the outcome of a search.
type Result struct {
	Params learner.Params
	Score  float64
	Trials int
	Failed int
}

// Tuner runs the random search.
type Tuner struct {
	space  *Space
	logger *slog.Logger
}

// New creates a tuner over a validated space.
func New(space *Space, logger *slog.Logger) *Tuner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tuner{space: space, logger: logger}
}

// Optimize draws trials parameter sets from the space and keeps the
// best-scoring one. A failing trial is logged and skipped; the search
// only errors when every trial failed. The same seed replays the same
// trial sequence.
func (t *Tuner) Optimize(ctx context.Context, seed int64, trials int, objective Objective) (Result, error) {
	if trials < 1 {
		return Result{}, errors.NewValidationError("at least one trial required")
	}

	rng := rand.New(rand.NewSource(seed))
	best := Result{Score: math.Inf(1)}

	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		p := t.space.Sample(rng)
		best.Trials++
		infrastructure.TunerTrials.Inc()

		score, err := objective(ctx, p)
		if err != nil {
			best.Failed++
			t.logger.WarnContext(ctx, "trial failed", "trial", i, "error", err)
			continue
		}
		t.logger.InfoContext(ctx, "trial scored",
			"trial", i,
			"score", score,
			"learning_rate", p.LearningRate,
			"depth", p.MaxDepth,
			"leaves", p.NumLeaves)
		if score < best.Score {
			best.Score = score
			best.Params = p
		}
	}

	if best.Failed == best.Trials {
		return Result{}, errors.NewNumericError("all tuning trials failed")
	}
	return best, nil
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

func logUniform(rng *rand.Rand, min, max float64) float64 {
	return math.Exp(uniform(rng, math.Log(min), math.Log(max)))
}

func intUniform(rng *rand.Rand, min, max int) int {
	return min + rng.Intn(max-min+1)
}
