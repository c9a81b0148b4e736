package lime

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"lime-explainer/internal/model"
)

const (
	DefaultStabilityRuns = 10
	DefaultStabilityTopK = 1
	DefaultStabilityRate = 0.9
)

// StabilityValidator repeats an explanation with independently derived
// perturbation contexts and measures how often the runs agree on the
// top-ranked features.
type StabilityValidator struct {
	Runs int `yaml:"runs"`
	// TopK is the largest ranking prefix compared across runs.
	TopK int `yaml:"top_k"`
	// Minimum agreement ratios in [0, 1]. Zero disables a check.
	MinTopRate      float64 `yaml:"min_top_rate"`
	MinPositiveRate float64 `yaml:"min_positive_rate"`
	MinNegativeRate float64 `yaml:"min_negative_rate"`
	// Parallelism bounds concurrent runs; 0 means unbounded.
	Parallelism int `yaml:"parallelism"`
}

func DefaultStabilityValidator() StabilityValidator {
	return StabilityValidator{
		Runs:       DefaultStabilityRuns,
		TopK:       DefaultStabilityTopK,
		MinTopRate: DefaultStabilityRate,
	}
}

// RankAgreement is the most common top-k feature list across runs and the
// fraction of runs that produced it.
type RankAgreement struct {
	K        int      `json:"k"`
	Features []string `json:"features"`
	Rate     float64  `json:"rate"`
}

// OutputStability holds the agreement of one output for k = 1..TopK.
type OutputStability struct {
	Top      []RankAgreement `json:"top"`
	Positive []RankAgreement `json:"positive"`
	Negative []RankAgreement `json:"negative"`
}

type StabilityReport struct {
	Runs    int                        `json:"runs"`
	Outputs map[string]OutputStability `json:"outputs"`
}

func (v StabilityValidator) validate() error {
	if v.Runs <= 0 {
		return fmt.Errorf("%w: stability runs must be positive, got %d", ErrConfiguration, v.Runs)
	}
	if v.TopK <= 0 {
		return fmt.Errorf("%w: stability top-k must be positive, got %d", ErrConfiguration, v.TopK)
	}
	if v.Parallelism < 0 {
		return fmt.Errorf("%w: stability parallelism must not be negative, got %d", ErrConfiguration, v.Parallelism)
	}
	for name, r := range map[string]float64{"top": v.MinTopRate, "positive": v.MinPositiveRate, "negative": v.MinNegativeRate} {
		if r < 0 || r > 1 {
			return fmt.Errorf("%w: minimum %s rate must be in [0, 1], got %f", ErrConfiguration, name, r)
		}
	}
	return nil
}

// Evaluate runs the explanation Runs times, run i drawing from
// PerturbationContext.Derive(i), and tabulates agreement. A failed run
// fails the whole evaluation.
func (v StabilityValidator) Evaluate(ctx context.Context, explainer *Explainer, prediction model.Prediction, provider model.PredictionProvider) (StabilityReport, error) {
	if err := v.validate(); err != nil {
		return StabilityReport{}, err
	}

	runs := make([]model.Saliencies, v.Runs)
	base := explainer.cfg.PerturbationContext
	g, gctx := errgroup.WithContext(ctx)
	if v.Parallelism > 0 {
		g.SetLimit(v.Parallelism)
	}
	for i := 0; i < v.Runs; i++ {
		run := explainer.withPerturbationContext(base.Derive(i))
		g.Go(func() error {
			s, err := run.Explain(gctx, prediction, provider)
			if err != nil {
				return fmt.Errorf("stability run %d: %w", i, err)
			}
			runs[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return StabilityReport{}, err
	}

	report := StabilityReport{Runs: v.Runs, Outputs: make(map[string]OutputStability, len(prediction.Output.Outputs))}
	for _, out := range prediction.Output.Outputs {
		var st OutputStability
		for k := 1; k <= v.TopK; k++ {
			st.Top = append(st.Top, agreement(runs, out.Name, k, model.Saliency.TopFeatures))
			st.Positive = append(st.Positive, agreement(runs, out.Name, k, model.Saliency.PositiveFeatures))
			st.Negative = append(st.Negative, agreement(runs, out.Name, k, model.Saliency.NegativeFeatures))
		}
		explainer.metrics.StabilityRatioObserve(st.Top[0].Rate)
		report.Outputs[out.Name] = st
	}
	return report, nil
}

// Validate evaluates stability and returns ErrUnstable when any agreement
// ratio falls below its minimum.
func (v StabilityValidator) Validate(ctx context.Context, explainer *Explainer, prediction model.Prediction, provider model.PredictionProvider) (StabilityReport, error) {
	report, err := v.Evaluate(ctx, explainer, prediction, provider)
	if err != nil {
		return report, err
	}

	outputs := make([]string, 0, len(report.Outputs))
	for name := range report.Outputs {
		outputs = append(outputs, name)
	}
	sort.Strings(outputs)
	for _, name := range outputs {
		st := report.Outputs[name]
		checks := []struct {
			ranking string
			min     float64
			got     []RankAgreement
		}{
			{"top", v.MinTopRate, st.Top},
			{"positive", v.MinPositiveRate, st.Positive},
			{"negative", v.MinNegativeRate, st.Negative},
		}
		for _, c := range checks {
			for _, a := range c.got {
				if a.Rate < c.min {
					log.Warn().
						Str("output", name).
						Str("ranking", c.ranking).
						Int("k", a.K).
						Float64("rate", a.Rate).
						Float64("min_rate", c.min).
						Msg("Explanation unstable")
					return report, fmt.Errorf("%w: output %s %s top-%d agreement %.2f below %.2f",
						ErrUnstable, name, c.ranking, a.K, a.Rate, c.min)
				}
			}
		}
	}
	return report, nil
}

// agreement finds the most frequent top-k name list for one output. An
// empty list is a valid outcome. Equal counts resolve to the first list in
// lexical order.
func agreement(runs []model.Saliencies, output string, k int, rank func(model.Saliency, int) []model.FeatureImportance) RankAgreement {
	counts := make(map[string]int)
	lists := make(map[string][]string)
	for _, s := range runs {
		names := []string{}
		if sal, ok := s[output]; ok {
			for _, fi := range rank(sal, k) {
				names = append(names, fi.Feature.Name)
			}
		}
		key := strings.Join(names, "\x00")
		counts[key]++
		lists[key] = names
	}

	best, bestCount := "", -1
	for key, c := range counts {
		if c > bestCount || (c == bestCount && key < best) {
			best, bestCount = key, c
		}
	}
	return RankAgreement{K: k, Features: lists[best], Rate: float64(bestCount) / float64(len(runs))}
}
