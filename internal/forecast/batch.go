package forecast

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"demandcast/internal/infrastructure"
)

// PredictBatch scores a batch of cases concurrently. Output order
// matches input order; one failing case fails the batch.
func (r *Reconstructor) PredictBatch(ctx context.Context, cases []Case) ([]Prediction, error) {
	ctx, span := infrastructure.StartSpan(ctx, "forecast.PredictBatch")
	defer span.End()
	infrastructure.PredictionBatchSize.Observe(float64(len(cases)))

	out := make([]Prediction, len(cases))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, c := range cases {
		i, c := i, c
		g.Go(func() error {
			p, err := r.Predict(ctx, c)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
