package lime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lime-explainer/internal/model"
)

func TestEncodedVectorsMatchFeatureCount(t *testing.T) {
	in := model.NewPredictionInput(
		model.NewNumericalFeature("age", 40),
		model.NewCategoricalFeature("color", "red"),
		model.NewTextFeature("note", "hello there"),
		model.NewBooleanFeature("member", true),
	)
	cfg := DefaultConfig().WithSamples(25).WithPerturbationContext(model.NewPerturbationContext(8, 2))
	samples, err := newNeighborhoodGenerator(cfg, nil, cfg.PerturbationContext.Rand()).generate(in)
	require.NoError(t, err)

	for _, numericDelta := range []bool{false, true} {
		enc, err := newEncoder(in, numericDelta)
		require.NoError(t, err)
		assert.Len(t, enc.encodeOriginal(), 4)
		for _, s := range samples {
			v, err := enc.encode(s)
			require.NoError(t, err)
			require.Len(t, v, 4)
			for _, c := range v {
				assert.True(t, c >= 0 && c <= 1)
			}
		}
	}
}

func TestEncoderRejectsUndefinedType(t *testing.T) {
	in := model.PredictionInput{Features: []model.Feature{
		model.NewNumericalFeature("x", 1),
		{Name: "mystery", Type: model.Undefined, Value: model.NewValue(1)},
	}}
	_, err := newEncoder(in, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestEncoderRejectsTypeChange(t *testing.T) {
	in := model.NewPredictionInput(model.NewNumericalFeature("x", 1))
	enc, err := newEncoder(in, false)
	require.NoError(t, err)

	_, err = enc.encode(perturbedSample{
		input:     model.NewPredictionInput(model.NewCategoricalFeature("x", "1")),
		unchanged: []float64{0},
	})
	assert.ErrorIs(t, err, ErrEncoding)

	_, err = enc.encode(perturbedSample{input: model.PredictionInput{}, unchanged: nil})
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestEncoderNumericDeltas(t *testing.T) {
	in := model.NewPredictionInput(model.NewNumericalFeature("x", 4), model.NewBooleanFeature("b", true))
	enc, err := newEncoder(in, true)
	require.NoError(t, err)

	v, err := enc.encode(perturbedSample{
		input:     model.NewPredictionInput(model.NewNumericalFeature("x", 5), model.NewBooleanFeature("b", false)),
		unchanged: []float64{0, 0},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, v[0], 1e-12)
	assert.Equal(t, 0.0, v[1])
}

func TestNumericSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, numericSimilarity(2, 2))
	assert.InDelta(t, 0.5, numericSimilarity(2, 3), 1e-12)
	assert.Equal(t, 0.0, numericSimilarity(2, 10))
	assert.InDelta(t, 0.5, numericSimilarity(0, -0.5), 1e-12)
	assert.Equal(t, 0.0, numericSimilarity(math.NaN(), 1))
}

func TestProximityKernel(t *testing.T) {
	k := newProximityKernel(1)
	origin := []float64{1, 1, 1, 1}

	assert.Equal(t, 0.0, k.distance(origin, origin))
	assert.Equal(t, 1.0, k.weight(0))
	assert.InDelta(t, math.Sqrt2, k.distance(origin, []float64{0, 1, 0, 1}), 1e-12)
	assert.InDelta(t, math.Exp(-2), k.weight(math.Sqrt2), 1e-12)

	prev := 1.0
	for d := 0.5; d < 4; d += 0.5 {
		w := k.weight(d)
		assert.Less(t, w, prev)
		assert.Greater(t, w, 0.0)
		prev = w
	}
}

func TestProximityFilterKeepsAnchor(t *testing.T) {
	assert.Equal(t, []int{0, 2, 3}, proximityFilter([]float64{1, 0.2, 0.5, 0.9}, 0.5))
	assert.Equal(t, []int{0}, proximityFilter([]float64{0.1, 0.2, 0.3}, 0.9))
}

func TestEncoderGradesNumbersAcrossNeighborhood(t *testing.T) {
	in := model.NewPredictionInput(model.NewNumericalFeature("x", 2), model.NewCategoricalFeature("c", "red"))
	samples := []perturbedSample{
		{input: model.NewPredictionInput(model.NewNumericalFeature("x", 3), model.NewCategoricalFeature("c", "blue")), unchanged: []float64{0, 0}},
		{input: model.NewPredictionInput(model.NewNumericalFeature("x", -1), model.NewCategoricalFeature("c", "red")), unchanged: []float64{0, 1}},
		{input: model.NewPredictionInput(model.NewNumericalFeature("x", 2), model.NewCategoricalFeature("c", "green")), unchanged: []float64{1, 0}},
	}
	enc, err := newEncoder(in, true)
	require.NoError(t, err)
	enc.gradeNumbers(samples)

	want := [][]float64{{2.0 / 3, 0}, {0, 1}, {1, 0}}
	for i, s := range samples {
		v, err := enc.encode(s)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want[i], v, 1e-12)
	}
}

func TestSpreadSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, spreadSimilarity(5, 5, 2))
	assert.InDelta(t, 0.5, spreadSimilarity(5, 4, 2), 1e-12)
	assert.Equal(t, 0.0, spreadSimilarity(5, 9, 2))
	assert.Equal(t, 0.0, spreadSimilarity(5, math.NaN(), 2))
}
