package lime

import (
	"fmt"
	"math"

	"lime-explainer/internal/model"
)

// encoder maps perturbed samples to the interpretable representation: one
// component per original feature, 1 meaning "as in the original".
type encoder struct {
	original     model.PredictionInput
	numericDelta bool
	// spread[i] is the largest deviation of NUMBER feature i in the
	// neighborhood; nil unless gradeNumbers was called.
	spread []float64
}

func newEncoder(original model.PredictionInput, numericDelta bool) (*encoder, error) {
	for i, f := range original.Features {
		switch f.Type {
		case model.Number, model.Categorical, model.Text, model.Boolean, model.Composite, model.Object:
		default:
			return nil, fmt.Errorf("%w: feature %d (%s) has unsupported type %s", ErrEncoding, i, f.Name, f.Type)
		}
	}
	return &encoder{original: original, numericDelta: numericDelta}, nil
}

func (e *encoder) dims() int {
	return len(e.original.Features)
}

// encodeOriginal returns the vector of the explained input itself.
func (e *encoder) encodeOriginal() []float64 {
	v := make([]float64, e.dims())
	for i := range v {
		v[i] = 1
	}
	return v
}

// gradeNumbers encodes changed NUMBER features by their distance to the
// original relative to the largest deviation among samples, instead of 0.
// When every feature is perturbed in every sample the binary masks are the
// same for all columns and the surrogate could not tell them apart.
func (e *encoder) gradeNumbers(samples []perturbedSample) {
	e.spread = make([]float64, e.dims())
	for i, f := range e.original.Features {
		if f.Type != model.Number {
			continue
		}
		orig := f.Value.AsNumber()
		for _, s := range samples {
			if i >= len(s.input.Features) {
				continue
			}
			d := math.Abs(s.input.Features[i].Value.AsNumber() - orig)
			if !math.IsNaN(d) && !math.IsInf(d, 0) && d > e.spread[i] {
				e.spread[i] = d
			}
		}
	}
}

func (e *encoder) encode(s perturbedSample) ([]float64, error) {
	if len(s.input.Features) != e.dims() || len(s.unchanged) != e.dims() {
		return nil, fmt.Errorf("%w: sample has %d features, want %d", ErrEncoding, len(s.input.Features), e.dims())
	}
	v := make([]float64, e.dims())
	for i, orig := range e.original.Features {
		if s.input.Features[i].Type != orig.Type {
			return nil, fmt.Errorf("%w: feature %s changed type from %s to %s",
				ErrEncoding, orig.Name, orig.Type, s.input.Features[i].Type)
		}
		v[i] = s.unchanged[i]
		if orig.Type != model.Number || s.unchanged[i] != 0 {
			continue
		}
		switch {
		case e.spread != nil && e.spread[i] > 0:
			v[i] = spreadSimilarity(orig.Value.AsNumber(), s.input.Features[i].Value.AsNumber(), e.spread[i])
		case e.numericDelta:
			v[i] = numericSimilarity(orig.Value.AsNumber(), s.input.Features[i].Value.AsNumber())
		}
	}
	return v, nil
}

// numericSimilarity is 1 for identical numbers, falling linearly to 0 at a
// distance equal to the original's magnitude.
func numericSimilarity(original, perturbed float64) float64 {
	if math.IsNaN(original) || math.IsNaN(perturbed) {
		return 0
	}
	scale := math.Abs(original)
	if scale == 0 {
		scale = 1
	}
	return 1 - math.Min(1, math.Abs(perturbed-original)/scale)
}

// spreadSimilarity falls linearly from 1 at the original to 0 at the
// largest deviation seen.
func spreadSimilarity(original, perturbed, spread float64) float64 {
	d := math.Abs(perturbed - original)
	if math.IsNaN(d) {
		return 0
	}
	return 1 - math.Min(1, d/spread)
}
