package lime

import (
	"context"
	"fmt"
	"time"

	"lime-explainer/internal/model"
)

// ImpactScore drops the given features from the prediction's input, asks the
// provider once, and returns the fraction of outputs whose value changed.
// A complete explanation of a prediction scores 1 with its top features.
func ImpactScore(ctx context.Context, provider model.PredictionProvider, prediction model.Prediction, features []model.FeatureImportance, timeout time.Duration) (float64, error) {
	if len(prediction.Output.Outputs) == 0 {
		return 0, fmt.Errorf("%w: prediction has no outputs", ErrInsufficientData)
	}
	drop := make(map[string]bool, len(features))
	for _, fi := range features {
		drop[fi.Feature.Name] = true
	}
	altered := make([]model.Feature, len(prediction.Input.Features))
	for i, f := range prediction.Input.Features {
		if drop[f.Name] {
			f = f.Dropped()
		}
		altered[i] = f
	}

	outputs, err := callProvider(ctx, provider, []model.PredictionInput{{Features: altered}}, timeout)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, o := range prediction.Output.Outputs {
		got, ok := outputs[0].ByName(o.Name)
		if !ok || !got.Value.Equal(o.Value) {
			changed++
		}
	}
	return float64(changed) / float64(len(prediction.Output.Outputs)), nil
}
