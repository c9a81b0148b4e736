package model

import "context"

// PredictionProvider is the black-box model under explanation. Predict
// returns one output per input, index-aligned. Implementations may answer
// synchronously or hand the batch to another goroutine or process; either
// way they must stop work when ctx is done.
type PredictionProvider interface {
	Predict(ctx context.Context, inputs []PredictionInput) ([]PredictionOutput, error)
}

// PredictionProviderFunc adapts a function to PredictionProvider.
type PredictionProviderFunc func(ctx context.Context, inputs []PredictionInput) ([]PredictionOutput, error)

func (f PredictionProviderFunc) Predict(ctx context.Context, inputs []PredictionInput) ([]PredictionOutput, error) {
	return f(ctx, inputs)
}
