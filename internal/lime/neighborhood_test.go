package lime

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lime-explainer/internal/model"
)

func perturbedCount(s perturbedSample) int {
	n := 0
	for _, u := range s.unchanged {
		if u == 0 {
			n++
		}
	}
	return n
}

func TestGeneratePerturbsExactlySizeFeatures(t *testing.T) {
	in := model.NewPredictionInput(numericFeatures(5)...)
	for _, size := range []int{0, 1, 3, 5, 9} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			cfg := DefaultConfig().WithSamples(50).WithPerturbationContext(model.NewPerturbationContext(3, size))
			gen := newNeighborhoodGenerator(cfg, nil, cfg.PerturbationContext.Rand())

			samples, err := gen.generate(in)
			require.NoError(t, err)
			require.Len(t, samples, 50)
			want := min(size, 5)
			for _, s := range samples {
				require.Len(t, s.input.Features, 5)
				assert.Equal(t, want, perturbedCount(s))
				for i, f := range s.input.Features {
					assert.Equal(t, in.Features[i].Name, f.Name)
					assert.Equal(t, in.Features[i].Type, f.Type)
					if s.unchanged[i] == 1 {
						assert.True(t, f.Value.Equal(in.Features[i].Value))
					}
				}
			}
		})
	}
}

func TestGenerateBalancesFeatureCoverage(t *testing.T) {
	in := model.NewPredictionInput(numericFeatures(5)...)
	cfg := DefaultConfig().WithSamples(10).WithPerturbationContext(model.NewPerturbationContext(11, 1))
	gen := newNeighborhoodGenerator(cfg, nil, cfg.PerturbationContext.Rand())

	samples, err := gen.generate(in)
	require.NoError(t, err)

	counts := make([]int, 5)
	for _, s := range samples {
		for i, u := range s.unchanged {
			if u == 0 {
				counts[i]++
			}
		}
	}
	assert.Equal(t, []int{2, 2, 2, 2, 2}, counts)
}

func TestGenerateDrawsFromDistributions(t *testing.T) {
	features := numericFeatures(2)
	in := model.NewPredictionInput(features...)
	dists := map[string]model.FeatureDistribution{
		"f-0": model.NumericFeatureDistribution(features[0], []float64{7, 8}, nil),
		"f-1": model.NumericFeatureDistribution(features[1], []float64{1}, nil),
	}
	cfg := DefaultConfig().WithSamples(40).WithPerturbationContext(model.NewPerturbationContext(5, 2))
	gen := newNeighborhoodGenerator(cfg, dists, cfg.PerturbationContext.Rand())

	samples, err := gen.generate(in)
	require.NoError(t, err)
	for _, s := range samples {
		v := s.input.Features[0].Value.AsNumber()
		assert.Contains(t, []float64{7, 8}, v)
		assert.Equal(t, 0.0, s.unchanged[0])
		// the only observed value ties the original; the tie is kept
		assert.Equal(t, 1.0, s.input.Features[1].Value.AsNumber())
		assert.Equal(t, 1.0, s.unchanged[1])
	}
}

func TestGenerateEmptyDistributionFallsBack(t *testing.T) {
	f := model.NewBooleanFeature("flag", true)
	in := model.NewPredictionInput(f)
	dists := map[string]model.FeatureDistribution{
		"flag": model.NewGenericFeatureDistribution(f, nil, nil),
	}
	cfg := DefaultConfig().WithSamples(5)
	gen := newNeighborhoodGenerator(cfg, dists, cfg.PerturbationContext.Rand())

	samples, err := gen.generate(in)
	require.NoError(t, err)
	for _, s := range samples {
		assert.False(t, s.input.Features[0].Value.AsBool())
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	in := model.NewPredictionInput(append(numericFeatures(3), model.NewTextFeature("t", "a b c"))...)
	cfg := DefaultConfig().WithSamples(30).WithPerturbationContext(model.NewPerturbationContext(99, 2))

	a, err := newNeighborhoodGenerator(cfg, nil, cfg.PerturbationContext.Rand()).generate(in)
	require.NoError(t, err)
	b, err := newNeighborhoodGenerator(cfg, nil, cfg.PerturbationContext.Rand()).generate(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateWithoutFallback(t *testing.T) {
	in := model.NewPredictionInput(model.NewObjectFeature("blob", map[string]int{"a": 1}))
	cfg := DefaultConfig().WithSamples(3)
	gen := newNeighborhoodGenerator(cfg, nil, cfg.PerturbationContext.Rand())

	_, err := gen.generate(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestIndexBagDrawsDistinctIndices(t *testing.T) {
	bag := &indexBag{rng: rand.New(rand.NewPCG(1, 2)), n: 4}
	for i := 0; i < 50; i++ {
		got := bag.draw(3)
		require.Len(t, got, 3)
		seen := map[int]bool{}
		for _, idx := range got {
			assert.False(t, seen[idx], "index %d drawn twice", idx)
			assert.True(t, idx >= 0 && idx < 4)
			seen[idx] = true
		}
	}
}

func TestPerturbValue(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))

	t.Run("number", func(t *testing.T) {
		for _, x := range []float64{0, 3, -2.5} {
			v, err := perturbValue(model.NewNumericalFeature("n", x), rng)
			require.NoError(t, err)
			assert.False(t, v.Equal(model.NewValue(x)))
		}
	})

	t.Run("boolean", func(t *testing.T) {
		v, err := perturbValue(model.NewBooleanFeature("b", false), rng)
		require.NoError(t, err)
		assert.True(t, v.AsBool())
	})

	t.Run("categorical", func(t *testing.T) {
		v, err := perturbValue(model.NewCategoricalFeature("c", "red"), rng)
		require.NoError(t, err)
		assert.Equal(t, "", v.AsString())

		_, err = perturbValue(model.NewCategoricalFeature("c", ""), rng)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("single token text", func(t *testing.T) {
		v, err := perturbValue(model.NewTextFeature("t", "money"), rng)
		require.NoError(t, err)
		assert.Equal(t, "", v.AsString())
	})

	t.Run("text keeps tokens from original", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			v, err := perturbValue(model.NewTextFeature("t", "send me money now"), rng)
			require.NoError(t, err)
			assert.NotEqual(t, "send me money now", v.AsString())
			for _, tok := range strings.Fields(v.AsString()) {
				assert.Contains(t, []string{"send", "me", "money", "now"}, tok)
			}
		}
	})

	t.Run("composite", func(t *testing.T) {
		subs := []model.Feature{
			model.NewNumericalFeature("a", 1),
			model.NewNumericalFeature("b", 2),
		}
		orig := model.NewCompositeFeature("pair", subs)
		for i := 0; i < 20; i++ {
			v, err := perturbValue(orig, rng)
			require.NoError(t, err)
			assert.False(t, v.Equal(orig.Value))
			assert.Len(t, v.AsFeatures(), 2)
		}
	})

	t.Run("object", func(t *testing.T) {
		_, err := perturbValue(model.NewObjectFeature("o", struct{}{}), rng)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}
