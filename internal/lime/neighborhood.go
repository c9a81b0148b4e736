package lime

import (
	"fmt"
	"math/rand/v2"

	"lime-explainer/internal/model"
)

// perturbedSample is one synthetic neighbor of the explained input.
type perturbedSample struct {
	input model.PredictionInput
	// unchanged[i] is 1 when feature i equals the original, 0 otherwise.
	unchanged []float64
}

// neighborhoodGenerator builds the synthetic dataset around one input. It
// owns the random stream of a single explanation call.
type neighborhoodGenerator struct {
	samples       int
	size          int
	maxRedraws    int
	distributions map[string]model.FeatureDistribution
	rng           *rand.Rand
}

func newNeighborhoodGenerator(cfg Config, distributions map[string]model.FeatureDistribution, rng *rand.Rand) *neighborhoodGenerator {
	return &neighborhoodGenerator{
		samples:       cfg.Samples,
		size:          cfg.PerturbationContext.Size,
		maxRedraws:    cfg.MaxRedraws,
		distributions: distributions,
		rng:           rng,
	}
}

func (g *neighborhoodGenerator) generate(in model.PredictionInput) ([]perturbedSample, error) {
	n := len(in.Features)
	k := min(g.size, n)
	bag := &indexBag{rng: g.rng, n: n}

	out := make([]perturbedSample, g.samples)
	for s := range out {
		features := make([]model.Feature, n)
		copy(features, in.Features)
		unchanged := make([]float64, n)
		for i := range unchanged {
			unchanged[i] = 1
		}

		for _, idx := range bag.draw(k) {
			original := in.Features[idx]
			v, err := g.replacement(original)
			if err != nil {
				return nil, err
			}
			features[idx] = original.WithValue(v)
			if !v.Equal(original.Value) {
				unchanged[idx] = 0
			}
		}
		out[s] = perturbedSample{input: model.PredictionInput{Features: features}, unchanged: unchanged}
	}
	return out, nil
}

// replacement draws a new value for f, redrawing a bounded number of times
// when the draw equals the original. A tie left after the last redraw is
// kept.
func (g *neighborhoodGenerator) replacement(f model.Feature) (model.Value, error) {
	var v model.Value
	for attempt := 0; attempt <= g.maxRedraws; attempt++ {
		var err error
		if dist, ok := g.distributions[f.Name]; ok && dist != nil && !dist.IsEmpty() {
			v = dist.SampleWith(g.rng)
		} else {
			v, err = perturbValue(f, g.rng)
			if err != nil {
				return model.Value{}, fmt.Errorf("perturb feature %s: %w", f.Name, err)
			}
		}
		if !v.Equal(f.Value) {
			return v, nil
		}
	}
	return v, nil
}

// indexBag hands out feature indices from shuffled permutations of 0..n-1,
// refilling when drained, so every feature is picked about equally often
// across the neighborhood while each draw stays random.
type indexBag struct {
	rng     *rand.Rand
	n       int
	pending []int
}

// draw returns k distinct indices.
func (b *indexBag) draw(k int) []int {
	chosen := make([]int, 0, k)
	used := make(map[int]bool, k)
	for len(chosen) < k {
		pos := -1
		for i, c := range b.pending {
			if !used[c] {
				pos = i
				break
			}
		}
		if pos < 0 {
			b.pending = append(b.pending, b.rng.Perm(b.n)...)
			continue
		}
		c := b.pending[pos]
		b.pending = append(b.pending[:pos], b.pending[pos+1:]...)
		used[c] = true
		chosen = append(chosen, c)
	}
	return chosen
}
