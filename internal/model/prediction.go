package model

import (
	"encoding/json"
	"fmt"
)

// PredictionInput is the ordered feature vector given to a model.
type PredictionInput struct {
	Features []Feature `json:"features"`
}

func NewPredictionInput(features ...Feature) PredictionInput {
	return PredictionInput{Features: cloneFeatures(features)}
}

// Validate checks that feature names are non-empty and unique.
func (in PredictionInput) Validate() error {
	seen := make(map[string]struct{}, len(in.Features))
	for i, f := range in.Features {
		if f.Name == "" {
			return fmt.Errorf("feature %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate feature name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// FeatureByName returns the named feature and its position.
func (in PredictionInput) FeatureByName(name string) (Feature, int, bool) {
	for i, f := range in.Features {
		if f.Name == name {
			return f, i, true
		}
	}
	return Feature{}, -1, false
}

// Output is one named result of a model.
type Output struct {
	Name  string  `json:"name"`
	Type  Type    `json:"type"`
	Value Value   `json:"value"`
	Score float64 `json:"score"`
}

func NewOutput(name string, t Type, v Value, score float64) Output {
	return Output{Name: name, Type: t, Value: v, Score: score}
}

// PredictionOutput is the ordered list of outputs for one input.
type PredictionOutput struct {
	Outputs []Output `json:"outputs"`
}

func NewPredictionOutput(outputs ...Output) PredictionOutput {
	out := make([]Output, len(outputs))
	copy(out, outputs)
	return PredictionOutput{Outputs: out}
}

// ByName returns the named output.
func (po PredictionOutput) ByName(name string) (Output, bool) {
	for _, o := range po.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Output{}, false
}

// Prediction pairs an input with the output the model produced for it.
type Prediction struct {
	Input  PredictionInput  `json:"input"`
	Output PredictionOutput `json:"output"`
}

func NewPrediction(in PredictionInput, out PredictionOutput) Prediction {
	return Prediction{
		Input:  NewPredictionInput(in.Features...),
		Output: NewPredictionOutput(out.Outputs...),
	}
}

type featureJSON struct {
	Name  string          `json:"name"`
	Type  Type            `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (f Feature) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(f.Value)
	if err != nil {
		return nil, fmt.Errorf("marshal feature %s: %w", f.Name, err)
	}
	return json.Marshal(featureJSON{Name: f.Name, Type: f.Type, Value: raw})
}

func (f *Feature) UnmarshalJSON(b []byte) error {
	var fj featureJSON
	if err := json.Unmarshal(b, &fj); err != nil {
		return err
	}
	v, err := DecodeValue(fj.Type, fj.Value)
	if err != nil {
		return fmt.Errorf("feature %s: %w", fj.Name, err)
	}
	*f = Feature{Name: fj.Name, Type: fj.Type, Value: v}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

func (o *Output) UnmarshalJSON(b []byte) error {
	var oj struct {
		Name  string          `json:"name"`
		Type  Type            `json:"type"`
		Value json.RawMessage `json:"value"`
		Score float64         `json:"score"`
	}
	if err := json.Unmarshal(b, &oj); err != nil {
		return err
	}
	v, err := DecodeValue(oj.Type, oj.Value)
	if err != nil {
		return fmt.Errorf("output %s: %w", oj.Name, err)
	}
	*o = Output{Name: oj.Name, Type: oj.Type, Value: v, Score: oj.Score}
	return nil
}

// DecodeValue decodes a JSON value according to the declared type.
func DecodeValue(t Type, raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Null(), nil
	}
	switch t {
	case Number:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			// numbers sometimes arrive quoted
			var s string
			if err2 := json.Unmarshal(raw, &s); err2 != nil {
				return Value{}, fmt.Errorf("decode number: %w", err)
			}
			return NewValue(s), nil
		}
		return NewValue(n), nil
	case Categorical, Text:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("decode %s: %w", t, err)
		}
		return NewValue(s), nil
	case Boolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("decode boolean: %w", err)
		}
		return NewValue(b), nil
	case Composite:
		var fs []Feature
		if err := json.Unmarshal(raw, &fs); err != nil {
			return Value{}, fmt.Errorf("decode composite: %w", err)
		}
		return NewValue(fs), nil
	default:
		var x any
		if err := json.Unmarshal(raw, &x); err != nil {
			return Value{}, fmt.Errorf("decode %s: %w", t, err)
		}
		return NewValue(x), nil
	}
}
