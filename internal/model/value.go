// Package model defines the data exchanged with the explanation engine:
// typed values and features, predictions, observed-value distributions,
// perturbation contexts, the prediction provider contract and saliencies.
//
// Every type in this package is a plain value container. Slices handed to
// constructors are copied so that callers cannot mutate an input, a pool of
// observed values or a saliency after it has been built.
package model

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Value wraps a single observed datum.
type Value struct {
	v any
}

// NewValue wraps v. Composite values are given as []Feature.
func NewValue(v any) Value {
	if fs, ok := v.([]Feature); ok {
		return Value{v: cloneFeatures(fs)}
	}
	return Value{v: v}
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// IsNull reports whether the value holds nothing.
func (v Value) IsNull() bool {
	return v.v == nil
}

// Underlying returns the wrapped object.
func (v Value) Underlying() any {
	return v.v
}

// AsString returns the canonical string form. Null is the empty string.
func (v Value) AsString() string {
	switch x := v.v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case []Feature:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = f.Value.AsString()
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(x)
	}
}

// AsNumber returns the numeric form, or NaN when the value has none.
func (v Value) AsNumber() float64 {
	switch x := v.v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// AsBool returns the boolean form; numbers are true when non-zero.
func (v Value) AsBool() bool {
	switch x := v.v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	default:
		n := v.AsNumber()
		return !math.IsNaN(n) && n != 0
	}
}

// AsFeatures returns the sub-features of a composite value.
func (v Value) AsFeatures() []Feature {
	if fs, ok := v.v.([]Feature); ok {
		return cloneFeatures(fs)
	}
	return nil
}

// Equal compares two values. Numbers compare numerically, so 1 and 1.0
// are equal; composites compare feature by feature.
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}
	af, aok := v.v.([]Feature)
	bf, bok := o.v.([]Feature)
	if aok || bok {
		if !aok || !bok || len(af) != len(bf) {
			return false
		}
		for i := range af {
			if af[i].Name != bf[i].Name || !af[i].Value.Equal(bf[i].Value) {
				return false
			}
		}
		return true
	}
	if isNumeric(v.v) && isNumeric(o.v) {
		return v.AsNumber() == o.AsNumber()
	}
	if reflect.TypeOf(v.v).Comparable() && reflect.TypeOf(o.v).Comparable() && v.v == o.v {
		return true
	}
	return v.AsString() == o.AsString()
}

func (v Value) String() string {
	if v.IsNull() {
		return "null"
	}
	return v.AsString()
}

func isNumeric(x any) bool {
	switch x.(type) {
	case float64, float32, int, int64, int32, uint64:
		return true
	}
	return false
}
