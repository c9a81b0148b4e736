package lime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"lime-explainer/internal/model"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu           sync.RWMutex
	explanations int
	failures     map[string]int
	latencies    []float64
	providerLat  []float64
	timeouts     int
	ridge        int
	filtered     float64
	ratios       []float64
}

func (m *MockMetrics) ExplanationsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.explanations++
}

func (m *MockMetrics) ExplanationFailuresInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[kind]++
}

func (m *MockMetrics) ExplanationLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, v)
}

func (m *MockMetrics) ProviderLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providerLat = append(m.providerLat, v)
}

func (m *MockMetrics) ProviderTimeoutsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

func (m *MockMetrics) RidgeFallbacksInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ridge++
}

func (m *MockMetrics) FilteredSamplesAdd(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filtered += v
}

func (m *MockMetrics) StabilityRatioObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratios = append(m.ratios, v)
}

func (m *MockMetrics) GetExplanations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.explanations
}

func (m *MockMetrics) GetFailures(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures[kind]
}

func (m *MockMetrics) GetTimeouts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeouts
}

func (m *MockMetrics) GetRidgeFallbacks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ridge
}

func (m *MockMetrics) GetRatios() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.ratios...)
}

// countingProvider wraps a provider and counts batch calls.
type countingProvider struct {
	calls atomic.Int64
	next  model.PredictionProvider
}

func (p *countingProvider) Predict(ctx context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
	p.calls.Add(1)
	return p.next.Predict(ctx, inputs)
}

// sumSkipProvider sums every numeric feature except the one at skip.
func sumSkipProvider(skip int) model.PredictionProvider {
	return model.PredictionProviderFunc(func(_ context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
		out := make([]model.PredictionOutput, len(inputs))
		for i, in := range inputs {
			sum := 0.0
			for j, f := range in.Features {
				if j != skip {
					sum += f.Value.AsNumber()
				}
			}
			out[i] = model.NewPredictionOutput(model.NewOutput("sum-skip", model.Number, model.NewValue(sum), 1))
		}
		return out, nil
	})
}

// linearProvider returns sum(coefs[i] * feature i) as output "y".
func linearProvider(coefs ...float64) model.PredictionProvider {
	return model.PredictionProviderFunc(func(_ context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
		out := make([]model.PredictionOutput, len(inputs))
		for i, in := range inputs {
			y := 0.0
			for j, f := range in.Features {
				y += coefs[j] * f.Value.AsNumber()
			}
			out[i] = model.NewPredictionOutput(model.NewOutput("y", model.Number, model.NewValue(y), 1))
		}
		return out, nil
	})
}

// spamProvider flags an input as spam when any text feature mentions money.
func spamProvider() model.PredictionProvider {
	return model.PredictionProviderFunc(func(_ context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
		out := make([]model.PredictionOutput, len(inputs))
		for i, in := range inputs {
			spam := false
			for _, f := range in.Features {
				if strings.Contains(f.Value.AsString(), "money") {
					spam = true
				}
			}
			out[i] = model.NewPredictionOutput(model.NewOutput("spam", model.Boolean, model.NewValue(spam), 1))
		}
		return out, nil
	})
}

// decisionProvider approves only the red/classB combination.
func decisionProvider() model.PredictionProvider {
	return model.PredictionProviderFunc(func(_ context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
		out := make([]model.PredictionOutput, len(inputs))
		for i, in := range inputs {
			x, _, _ := in.FeatureByName("mapX")
			y, _, _ := in.FeatureByName("mapY")
			decision := "deny"
			if x.Value.AsString() == "red" && y.Value.AsString() == "classB" {
				decision = "approve"
			}
			out[i] = model.NewPredictionOutput(model.NewOutput("decision", model.Categorical, model.NewValue(decision), 1))
		}
		return out, nil
	})
}

// predictionFor asks provider for the output of in.
func predictionFor(t *testing.T, provider model.PredictionProvider, in model.PredictionInput) model.Prediction {
	t.Helper()
	outputs, err := provider.Predict(context.Background(), []model.PredictionInput{in})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	return model.NewPrediction(in, outputs[0])
}

// numericFeatures returns features f-0..f-(n-1) with values 0..n-1.
func numericFeatures(n int) []model.Feature {
	features := make([]model.Feature, n)
	for i := range features {
		features[i] = model.NewNumericalFeature(fmt.Sprintf("f-%d", i), float64(i))
	}
	return features
}

func names(fis []model.FeatureImportance) []string {
	out := make([]string, len(fis))
	for i, fi := range fis {
		out[i] = fi.Feature.Name
	}
	return out
}
