package model

import (
	"fmt"
	"strings"
)

// Type is the kind of datum a feature or output carries.
type Type int

const (
	Undefined Type = iota
	Number
	Categorical
	Text
	Boolean
	Composite
	Object
)

var typeNames = map[Type]string{
	Undefined:   "undefined",
	Number:      "number",
	Categorical: "categorical",
	Text:        "text",
	Boolean:     "boolean",
	Composite:   "composite",
	Object:      "object",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType maps a type name back to its Type.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return Undefined, fmt.Errorf("unknown feature type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Drop returns the value a feature of this type takes when it is removed
// from an input.
func (t Type) Drop(v Value) Value {
	switch t {
	case Number:
		if v.AsNumber() == 0 {
			return NewValue(1.0)
		}
		return NewValue(0.0)
	case Categorical, Text:
		return NewValue("")
	case Boolean:
		return NewValue(!v.AsBool())
	case Composite:
		subs := v.AsFeatures()
		for i := range subs {
			subs[i] = subs[i].WithValue(subs[i].Type.Drop(subs[i].Value))
		}
		return NewValue(subs)
	default:
		return Null()
	}
}

// Feature is a named, typed slot of a prediction input.
type Feature struct {
	Name  string
	Type  Type
	Value Value
}

func NewNumericalFeature(name string, v float64) Feature {
	return Feature{Name: name, Type: Number, Value: NewValue(v)}
}

func NewCategoricalFeature(name, category string) Feature {
	return Feature{Name: name, Type: Categorical, Value: NewValue(category)}
}

func NewTextFeature(name, text string) Feature {
	return Feature{Name: name, Type: Text, Value: NewValue(text)}
}

func NewBooleanFeature(name string, b bool) Feature {
	return Feature{Name: name, Type: Boolean, Value: NewValue(b)}
}

// NewCompositeFeature groups sub-features under one name.
func NewCompositeFeature(name string, subs []Feature) Feature {
	return Feature{Name: name, Type: Composite, Value: NewValue(subs)}
}

func NewObjectFeature(name string, v any) Feature {
	return Feature{Name: name, Type: Object, Value: NewValue(v)}
}

// WithValue returns a copy of the feature holding v.
func (f Feature) WithValue(v Value) Feature {
	return Feature{Name: f.Name, Type: f.Type, Value: v}
}

// Dropped returns a copy of the feature with its type's drop value.
func (f Feature) Dropped() Feature {
	return f.WithValue(f.Type.Drop(f.Value))
}

func (f Feature) String() string {
	return fmt.Sprintf("%s(%s)=%s", f.Name, f.Type, f.Value)
}

func cloneFeatures(fs []Feature) []Feature {
	if fs == nil {
		return nil
	}
	out := make([]Feature, len(fs))
	copy(out, fs)
	return out
}
