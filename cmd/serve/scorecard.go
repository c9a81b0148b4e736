package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lime-explainer/internal/model"
)

// scorecard is an additive model: intercept plus a weight per numeric or
// boolean feature plus a contribution per categorical value. With Label set
// the score is mapped to a categorical decision.
type scorecard struct {
	Output     string                        `yaml:"output"`
	Intercept  float64                       `yaml:"intercept"`
	Weights    map[string]float64            `yaml:"weights"`
	Categories map[string]map[string]float64 `yaml:"categories"`
	Label      *struct {
		Threshold float64 `yaml:"threshold"`
		Above     string  `yaml:"above"`
		Below     string  `yaml:"below"`
	} `yaml:"label"`
}

func loadScorecard(path string) (*scorecard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scorecard %s: %w", path, err)
	}
	var sc scorecard
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scorecard: %w", err)
	}
	if sc.Output == "" {
		return nil, fmt.Errorf("scorecard output name is required")
	}
	if sc.Label != nil && (sc.Label.Above == "" || sc.Label.Below == "") {
		return nil, fmt.Errorf("scorecard label needs both above and below values")
	}
	return &sc, nil
}

func (sc *scorecard) score(in model.PredictionInput) float64 {
	s := sc.Intercept
	for _, f := range in.Features {
		if f.Value.IsNull() {
			continue
		}
		switch f.Type {
		case model.Number:
			s += sc.Weights[f.Name] * f.Value.AsNumber()
		case model.Boolean:
			if f.Value.AsBool() {
				s += sc.Weights[f.Name]
			}
		case model.Categorical:
			s += sc.Categories[f.Name][f.Value.AsString()]
		}
	}
	return s
}

// Predict implements provider.PredictFunc.
func (sc *scorecard) Predict(in model.PredictionInput) (model.PredictionOutput, error) {
	s := sc.score(in)
	if sc.Label == nil {
		return model.NewPredictionOutput(model.NewOutput(sc.Output, model.Number, model.NewValue(s), 1)), nil
	}
	label := sc.Label.Below
	if s >= sc.Label.Threshold {
		label = sc.Label.Above
	}
	return model.NewPredictionOutput(model.NewOutput(sc.Output, model.Categorical, model.NewValue(label), 1)), nil
}
