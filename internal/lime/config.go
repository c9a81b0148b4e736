// Package lime explains single predictions of an opaque model by fitting a
// weighted linear surrogate on a synthetic neighborhood around the input.
//
// An explanation call samples perturbed copies of the input, asks the
// PredictionProvider for their outputs in one batch, encodes every copy as
// a vector of "unchanged" indicators, weights it by proximity to the
// original, and regresses each output on the encoded vectors. The
// coefficients become the signed feature scores of a model.Saliency.
package lime

import (
	"fmt"
	"math"
	"time"

	"lime-explainer/internal/model"
)

const (
	DefaultSamples                  = 300
	DefaultPerturbationSize         = 1
	DefaultTopKFeatures             = 6
	DefaultProximityThreshold       = 0.3
	DefaultProximityFilteredMinimum = 10
	DefaultPenalizationWeight       = 0.01
	DefaultProviderTimeout          = 5 * time.Second
	DefaultMaxRedraws               = 3

	// kernelWidthFactor scales sqrt(dims) when no explicit width is set.
	kernelWidthFactor = 0.75
	// minimumNeighborhood is the smallest dataset a regression accepts.
	minimumNeighborhood = 2
)

// Config holds the options of an explanation call.
type Config struct {
	Samples             int                       `yaml:"samples"`
	PerturbationContext model.PerturbationContext `yaml:"perturbation_context"`
	// KernelWidth of 0 derives the width from the encoded dimensionality.
	KernelWidth              float64 `yaml:"kernel_width"`
	FeatureSelection         bool    `yaml:"feature_selection"`
	TopKFeatures             int     `yaml:"top_k_features"`
	ProximityFilter          bool    `yaml:"proximity_filter"`
	ProximityThreshold       float64 `yaml:"proximity_threshold"`
	ProximityFilteredMinimum int     `yaml:"proximity_filtered_minimum"`
	PenalizationWeight       float64 `yaml:"penalization_weight"`
	EncodeNumericDeltas      bool    `yaml:"encode_numeric_deltas"`
	ScaleByRange             bool    `yaml:"scale_by_range"`
	// ProviderTimeout bounds the batch predict call; 0 leaves it to ctx.
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	MaxRedraws      int           `yaml:"max_redraws"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Samples:                  DefaultSamples,
		PerturbationContext:      model.NewPerturbationContext(0, DefaultPerturbationSize),
		TopKFeatures:             DefaultTopKFeatures,
		ProximityThreshold:       DefaultProximityThreshold,
		ProximityFilteredMinimum: DefaultProximityFilteredMinimum,
		PenalizationWeight:       DefaultPenalizationWeight,
		ProviderTimeout:          DefaultProviderTimeout,
		MaxRedraws:               DefaultMaxRedraws,
	}
}

func (c Config) WithSamples(n int) Config {
	c.Samples = n
	return c
}

func (c Config) WithPerturbationContext(pc model.PerturbationContext) Config {
	c.PerturbationContext = pc
	return c
}

func (c Config) WithKernelWidth(w float64) Config {
	c.KernelWidth = w
	return c
}

func (c Config) WithFeatureSelection(enabled bool, topK int) Config {
	c.FeatureSelection = enabled
	c.TopKFeatures = topK
	return c
}

func (c Config) WithProximityFilter(enabled bool, threshold float64, minimum int) Config {
	c.ProximityFilter = enabled
	c.ProximityThreshold = threshold
	c.ProximityFilteredMinimum = minimum
	return c
}

func (c Config) WithPenalizationWeight(w float64) Config {
	c.PenalizationWeight = w
	return c
}

func (c Config) WithProviderTimeout(d time.Duration) Config {
	c.ProviderTimeout = d
	return c
}

// Validate rejects option combinations an explanation cannot run with.
func (c Config) Validate() error {
	if c.Samples <= 0 {
		return fmt.Errorf("%w: samples must be positive, got %d", ErrConfiguration, c.Samples)
	}
	if c.PerturbationContext.Size < 0 {
		return fmt.Errorf("%w: perturbation size must not be negative, got %d", ErrConfiguration, c.PerturbationContext.Size)
	}
	if c.KernelWidth < 0 || math.IsNaN(c.KernelWidth) || math.IsInf(c.KernelWidth, 0) {
		return fmt.Errorf("%w: kernel width must be positive, got %f", ErrConfiguration, c.KernelWidth)
	}
	if c.TopKFeatures <= 0 {
		return fmt.Errorf("%w: top-k features must be positive, got %d", ErrConfiguration, c.TopKFeatures)
	}
	if c.PenalizationWeight < 0 || math.IsNaN(c.PenalizationWeight) {
		return fmt.Errorf("%w: penalization weight must not be negative, got %f", ErrConfiguration, c.PenalizationWeight)
	}
	if c.ProviderTimeout < 0 {
		return fmt.Errorf("%w: provider timeout must not be negative, got %v", ErrConfiguration, c.ProviderTimeout)
	}
	if c.MaxRedraws < 0 {
		return fmt.Errorf("%w: max redraws must not be negative, got %d", ErrConfiguration, c.MaxRedraws)
	}
	if c.ProximityFilter {
		if c.ProximityThreshold <= 0 || c.ProximityThreshold > 1 {
			return fmt.Errorf("%w: proximity threshold must be in (0, 1], got %f", ErrConfiguration, c.ProximityThreshold)
		}
		if c.ProximityFilteredMinimum < minimumNeighborhood {
			return fmt.Errorf("%w: proximity filtered minimum must be at least %d, got %d",
				ErrConfiguration, minimumNeighborhood, c.ProximityFilteredMinimum)
		}
		// the original input always survives the filter
		if c.ProximityFilteredMinimum > c.Samples+1 {
			return fmt.Errorf("%w: proximity filtered minimum %d exceeds neighborhood size %d",
				ErrConfiguration, c.ProximityFilteredMinimum, c.Samples+1)
		}
	}
	return nil
}

// kernelWidth returns the configured width or the default for dims.
func (c Config) kernelWidth(dims int) float64 {
	if c.KernelWidth > 0 {
		return c.KernelWidth
	}
	return kernelWidthFactor * math.Sqrt(float64(max(dims, 1)))
}
