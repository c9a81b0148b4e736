package lime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"lime-explainer/internal/model"
)

// Explainer produces local explanations. It holds no per-call state and is
// safe for concurrent use.
type Explainer struct {
	cfg           Config
	metrics       MetricsInterface
	distributions map[string]model.FeatureDistribution
}

type Option func(*Explainer)

func WithMetrics(m MetricsInterface) Option {
	return func(e *Explainer) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithDistributions supplies observed value pools keyed by feature name.
// Features without a pool fall back to type-based perturbation.
func WithDistributions(distributions map[string]model.FeatureDistribution) Option {
	return func(e *Explainer) {
		e.distributions = make(map[string]model.FeatureDistribution, len(distributions))
		for name, d := range distributions {
			e.distributions[name] = d
		}
	}
}

// NewExplainer validates cfg and returns an explainer for it.
func NewExplainer(cfg Config, opts ...Option) (*Explainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Explainer{cfg: cfg, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Explainer) Config() Config {
	return e.cfg
}

// withPerturbationContext returns a copy of e drawing from pc.
func (e *Explainer) withPerturbationContext(pc model.PerturbationContext) *Explainer {
	c := *e
	c.cfg.PerturbationContext = pc
	return &c
}

// Explain returns one Saliency per output of prediction. The provider is
// called once with the whole neighborhood. Any failure aborts the call and
// no partial result is returned.
func (e *Explainer) Explain(ctx context.Context, prediction model.Prediction, provider model.PredictionProvider) (model.Saliencies, error) {
	start := time.Now()
	saliencies, err := e.explain(ctx, prediction, provider)
	e.metrics.ExplanationLatencyObserve(time.Since(start).Seconds())
	if err != nil {
		e.metrics.ExplanationFailuresInc(failureKind(err))
		log.Debug().Err(err).Str("kind", failureKind(err)).Msg("Explanation failed")
		return nil, err
	}
	e.metrics.ExplanationsInc()
	return saliencies, nil
}

func (e *Explainer) explain(ctx context.Context, prediction model.Prediction, provider model.PredictionProvider) (model.Saliencies, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: no prediction provider", ErrConfiguration)
	}
	in := prediction.Input
	if len(in.Features) == 0 {
		return nil, fmt.Errorf("%w: prediction has no features", ErrInsufficientData)
	}
	if len(prediction.Output.Outputs) == 0 {
		return nil, fmt.Errorf("%w: prediction has no outputs", ErrInsufficientData)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	enc, err := newEncoder(in, e.cfg.EncodeNumericDeltas)
	if err != nil {
		return nil, err
	}

	// sample + perturb
	gen := newNeighborhoodGenerator(e.cfg, e.distributions, e.cfg.PerturbationContext.Rand())
	samples, err := gen.generate(in)
	if err != nil {
		return nil, err
	}
	fullyPerturbed := e.cfg.PerturbationContext.Size >= enc.dims()
	if fullyPerturbed {
		enc.gradeNumbers(samples)
	}
	log.Debug().
		Int("samples", len(samples)).
		Bool("fully_perturbed", fullyPerturbed).
		Int("features", enc.dims()).
		Int("perturbation_size", e.cfg.PerturbationContext.Size).
		Msg("Neighborhood generated")

	// predict
	inputs := make([]model.PredictionInput, len(samples))
	for i, s := range samples {
		inputs[i] = s.input
	}
	outputs, err := e.predict(ctx, provider, inputs)
	if err != nil {
		return nil, err
	}

	// encode; row 0 is the explained input itself
	x := make([][]float64, 0, len(samples)+1)
	x = append(x, enc.encodeOriginal())
	for _, s := range samples {
		v, err := enc.encode(s)
		if err != nil {
			return nil, err
		}
		x = append(x, v)
	}
	rowInputs := append([]model.PredictionInput{in}, inputs...)
	rowOutputs := append([]model.PredictionOutput{prediction.Output}, outputs...)

	// weigh
	kernel := newProximityKernel(e.cfg.kernelWidth(enc.dims()))
	w := make([]float64, len(x))
	for i := range x {
		w[i] = kernel.weight(kernel.distance(x[0], x[i]))
	}

	// filter
	if e.cfg.ProximityFilter {
		keep := proximityFilter(w, e.cfg.ProximityThreshold)
		e.metrics.FilteredSamplesAdd(float64(len(w) - len(keep)))
		if len(keep) < e.cfg.ProximityFilteredMinimum {
			return nil, fmt.Errorf("%w: %d of %d samples within proximity threshold %.2f, need %d",
				ErrRegression, len(keep), len(w), e.cfg.ProximityThreshold, e.cfg.ProximityFilteredMinimum)
		}
		x, w = pick(x, keep), pick(w, keep)
		rowInputs, rowOutputs = pick(rowInputs, keep), pick(rowOutputs, keep)
		log.Debug().Int("kept", len(keep)).Float64("threshold", e.cfg.ProximityThreshold).Msg("Proximity filter applied")
	}

	var ranges []float64
	if e.cfg.ScaleByRange {
		ranges = numericRanges(in, rowInputs)
	}

	saliencies := make(model.Saliencies, len(prediction.Output.Outputs))
	for _, out := range prediction.Output.Outputs {
		y := make([]float64, len(rowOutputs))
		for i, row := range rowOutputs {
			if y[i], err = targetValue(out, row); err != nil {
				return nil, err
			}
		}

		// select + regress
		columns := varyingColumns(x, w)
		if e.cfg.FeatureSelection && len(columns) > e.cfg.TopKFeatures {
			columns = selectFeatures(x, y, w, columns, e.cfg.TopKFeatures)
		}
		fit, err := fitSurrogate(x, y, w, columns, e.cfg.PenalizationWeight)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", out.Name, err)
		}
		if fit.ridge {
			e.metrics.RidgeFallbacksInc()
			log.Warn().
				Str("output", out.Name).
				Int("rows", len(y)).
				Int("columns", len(columns)).
				Msg("Surrogate system singular, fitted with ridge penalty")
		}
		log.Debug().Str("output", out.Name).Float64("r2", fit.r2).Int("fitted", len(columns)).Msg("Surrogate fitted")

		// assemble
		importances := make([]model.FeatureImportance, len(in.Features))
		for j, f := range in.Features {
			score := fit.coefficients[j]
			if ranges != nil && f.Type == model.Number {
				score *= ranges[j]
			}
			importances[j] = model.FeatureImportance{Feature: f, Score: score, Index: j}
		}
		saliencies[out.Name] = model.NewSaliency(out, importances)
	}
	return saliencies, nil
}

func (e *Explainer) predict(ctx context.Context, provider model.PredictionProvider, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
	start := time.Now()
	outputs, err := callProvider(ctx, provider, inputs, e.cfg.ProviderTimeout)
	e.metrics.ProviderLatencyObserve(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.metrics.ProviderTimeoutsInc()
		}
		log.Warn().Err(err).Int("batch", len(inputs)).Msg("Prediction provider failed")
		return nil, err
	}
	return outputs, nil
}

// callProvider runs one batch on its own goroutine and waits for the result
// or for ctx, bounded by timeout when it is positive. The provider sees the
// bounded context and must return once it is done.
func callProvider(ctx context.Context, provider model.PredictionProvider, inputs []model.PredictionInput, timeout time.Duration) ([]model.PredictionOutput, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		outputs []model.PredictionOutput
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		outputs, err := provider.Predict(ctx, inputs)
		done <- result{outputs: outputs, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProvider, r.err)
		}
		if len(r.outputs) != len(inputs) {
			return nil, fmt.Errorf("%w: got %d outputs for %d inputs", ErrProvider, len(r.outputs), len(inputs))
		}
		return r.outputs, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrProvider, ctx.Err())
	}
}

// targetValue is the regression target of one neighborhood row for the
// explained output: the value itself for numbers, otherwise 1 when the row
// agrees with the explained output and 0 when it does not.
func targetValue(explained model.Output, row model.PredictionOutput) (float64, error) {
	o, ok := row.ByName(explained.Name)
	if !ok {
		return 0, fmt.Errorf("%w: output %s missing from provider result", ErrProvider, explained.Name)
	}
	if explained.Type == model.Number {
		v := o.Value.AsNumber()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: output %s has non-numeric value %s", ErrRegression, explained.Name, o.Value)
		}
		return v, nil
	}
	if o.Value.Equal(explained.Value) {
		return 1, nil
	}
	return 0, nil
}

// numericRanges is the observed spread of every NUMBER feature across the
// rows; other features get 1.
func numericRanges(original model.PredictionInput, rows []model.PredictionInput) []float64 {
	ranges := make([]float64, len(original.Features))
	for j, f := range original.Features {
		ranges[j] = 1
		if f.Type != model.Number {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range rows {
			v := row.Features[j].Value.AsNumber()
			if math.IsNaN(v) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		if hi >= lo {
			ranges[j] = hi - lo
		}
	}
	return ranges
}

func pick[T any](rows []T, keep []int) []T {
	out := make([]T, len(keep))
	for i, k := range keep {
		out[i] = rows[k]
	}
	return out
}
