package tuner

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/config"
	"demandcast/internal/errors"
	"demandcast/internal/learner"
)

func validSpace(t *testing.T) *Space {
	t.Helper()
	s, err := NewSpace(config.Default().Search)
	require.NoError(t, err)
	return s
}

func TestNewSpaceRejectsInvertedBounds(t *testing.T) {
	cfg := config.Default().Search
	cfg.DepthMin = 10
	cfg.DepthMax = 3
	_, err := NewSpace(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSearchSpace))
}

func TestNewSpaceRejectsNonPositiveBounds(t *testing.T) {
	cfg := config.Default().Search
	cfg.LearningRateMin = 0
	_, err := NewSpace(cfg)
	assert.Error(t, err)
}

func TestSampleStaysInBounds(t *testing.T) {
	s := validSpace(t)
	cfg := config.Default().Search
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		p := s.Sample(rng)
		assert.GreaterOrEqual(t, p.LearningRate, cfg.LearningRateMin)
		assert.LessOrEqual(t, p.LearningRate, cfg.LearningRateMax)
		assert.GreaterOrEqual(t, p.MaxDepth, cfg.DepthMin)
		assert.LessOrEqual(t, p.MaxDepth, cfg.DepthMax)
		assert.GreaterOrEqual(t, p.NumLeaves, cfg.LeavesMin)
		assert.LessOrEqual(t, p.NumLeaves, cfg.LeavesMax)
		assert.GreaterOrEqual(t, p.RowFrac, cfg.RowFracMin)
		assert.LessOrEqual(t, p.RowFrac, cfg.RowFracMax)
	}
}

func TestOptimizeKeepsBestTrial(t *testing.T) {
	tu := New(validSpace(t), nil)

	// score prefers a small learning rate: the search must land closer
	// to the lower bound than a single draw would on average
	res, err := tu.Optimize(context.Background(), 42, 50, func(_ context.Context, p learner.Params) (float64, error) {
		return p.LearningRate, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Trials)
	assert.Zero(t, res.Failed)
	assert.Equal(t, res.Params.LearningRate, res.Score)
	assert.Less(t, res.Score, 0.02)
}

func TestOptimizeDeterministicForSeed(t *testing.T) {
	tu := New(validSpace(t), nil)
	obj := func(_ context.Context, p learner.Params) (float64, error) {
		return p.LearningRate * float64(p.MaxDepth), nil
	}

	a, err := tu.Optimize(context.Background(), 42, 20, obj)
	require.NoError(t, err)
	b, err := tu.Optimize(context.Background(), 42, 20, obj)
	require.NoError(t, err)
	assert.Equal(t, a.Params, b.Params)
	assert.Equal(t, a.Score, b.Score)
}

func TestOptimizeSkipsFailedTrials(t *testing.T) {
	tu := New(validSpace(t), nil)
	calls := 0
	res, err := tu.Optimize(context.Background(), 1, 10, func(_ context.Context, p learner.Params) (float64, error) {
		calls++
		if calls%2 == 0 {
			return 0, errors.NewNumericError("singular fold")
		}
		return float64(calls), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Trials)
	assert.Equal(t, 5, res.Failed)
	assert.Equal(t, 1.0, res.Score)
}

func TestOptimizeAllTrialsFailed(t *testing.T) {
	tu := New(validSpace(t), nil)
	_, err := tu.Optimize(context.Background(), 1, 5, func(_ context.Context, _ learner.Params) (float64, error) {
		return 0, errors.NewNumericError("boom")
	})
	assert.Error(t, err)
}

func TestOptimizeCancelledContext(t *testing.T) {
	tu := New(validSpace(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tu.Optimize(ctx, 1, 5, func(_ context.Context, _ learner.Params) (float64, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
