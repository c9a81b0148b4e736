package provider

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"lime-explainer/internal/model"
)

// PredictFunc scores a single input.
type PredictFunc func(model.PredictionInput) (model.PredictionOutput, error)

// Local runs an in-process model. Work happens off the caller's goroutine so
// a context deadline is honoured even when the function itself never
// checks one.
type Local struct {
	predict PredictFunc
	workers int
}

// NewLocal wraps fn. workers > 1 fans a batch out across that many
// goroutines; results stay index-aligned.
func NewLocal(fn PredictFunc, workers int) *Local {
	if workers < 1 {
		workers = 1
	}
	return &Local{predict: fn, workers: workers}
}

func (l *Local) Predict(ctx context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
	type result struct {
		outputs []model.PredictionOutput
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outputs, err := l.run(ctx, inputs)
		done <- result{outputs: outputs, err: err}
	}()

	select {
	case r := <-done:
		return r.outputs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Local) run(ctx context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
	outputs := make([]model.PredictionOutput, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := l.predict(in)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
