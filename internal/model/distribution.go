package model

import (
	"math/rand/v2"
	"sync"
)

// FeatureDistribution is a pool of historically observed values for one
// feature.
type FeatureDistribution interface {
	Feature() Feature
	// Sample draws one value with replacement; null when the pool is empty.
	Sample() Value
	// SampleN draws n values with replacement.
	SampleN(n int) []Value
	// SampleWith and SampleNWith draw through a caller-owned random stream.
	SampleWith(rng *rand.Rand) Value
	SampleNWith(rng *rand.Rand, n int) []Value
	// AllSamples returns every pooled value once, shuffled.
	AllSamples() []Value
	IsEmpty() bool
	Size() int
}

// GenericFeatureDistribution samples from a fixed list of values.
type GenericFeatureDistribution struct {
	feature Feature
	values  []Value

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenericFeatureDistribution copies values into a new pool. The pool
// owns rng; a nil rng gets a randomly seeded stream.
func NewGenericFeatureDistribution(feature Feature, values []Value, rng *rand.Rand) *GenericFeatureDistribution {
	pool := make([]Value, len(values))
	copy(pool, values)
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &GenericFeatureDistribution{feature: feature, values: pool, rng: rng}
}

func (d *GenericFeatureDistribution) Feature() Feature {
	return d.feature
}

func (d *GenericFeatureDistribution) Sample() Value {
	if len(d.values) == 0 {
		return Null()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.SampleWith(d.rng)
}

func (d *GenericFeatureDistribution) SampleN(n int) []Value {
	if n <= 0 || len(d.values) == 0 {
		return []Value{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.SampleNWith(d.rng, n)
}

func (d *GenericFeatureDistribution) SampleWith(rng *rand.Rand) Value {
	if len(d.values) == 0 {
		return Null()
	}
	return d.values[rng.IntN(len(d.values))]
}

func (d *GenericFeatureDistribution) SampleNWith(rng *rand.Rand, n int) []Value {
	if n <= 0 || len(d.values) == 0 {
		return []Value{}
	}
	out := make([]Value, n)
	for i := range out {
		out[i] = d.values[rng.IntN(len(d.values))]
	}
	return out
}

func (d *GenericFeatureDistribution) AllSamples() []Value {
	out := make([]Value, len(d.values))
	copy(out, d.values)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (d *GenericFeatureDistribution) IsEmpty() bool {
	return len(d.values) == 0
}

func (d *GenericFeatureDistribution) Size() int {
	return len(d.values)
}

// NumericFeatureDistribution builds a pool from plain numbers.
func NumericFeatureDistribution(feature Feature, values []float64, rng *rand.Rand) *GenericFeatureDistribution {
	pool := make([]Value, len(values))
	for i, v := range values {
		pool[i] = NewValue(v)
	}
	return NewGenericFeatureDistribution(feature, pool, rng)
}

// CategoricalFeatureDistribution builds a pool from category labels.
func CategoricalFeatureDistribution(feature Feature, categories []string, rng *rand.Rand) *GenericFeatureDistribution {
	pool := make([]Value, len(categories))
	for i, c := range categories {
		pool[i] = NewValue(c)
	}
	return NewGenericFeatureDistribution(feature, pool, rng)
}
