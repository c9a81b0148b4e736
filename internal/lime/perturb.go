package lime

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"lime-explainer/internal/model"
)

// perturbValue draws a replacement for f without an observed distribution.
// Types with no sensible fallback return ErrInsufficientData.
func perturbValue(f model.Feature, rng *rand.Rand) (model.Value, error) {
	switch f.Type {
	case model.Number:
		x := f.Value.AsNumber()
		if math.IsNaN(x) {
			return model.Value{}, fmt.Errorf("%w: %s has no numeric value", ErrInsufficientData, f.Name)
		}
		// Gaussian centred on the value, spread proportional to its magnitude
		noise := rng.NormFloat64()
		if x != 0 {
			return model.NewValue(x + noise*math.Abs(x)), nil
		}
		return model.NewValue(noise), nil

	case model.Boolean:
		return model.NewValue(!f.Value.AsBool()), nil

	case model.Categorical:
		dropped := f.Type.Drop(f.Value)
		if dropped.Equal(f.Value) {
			return model.Value{}, fmt.Errorf("%w: %s has no distribution and is already empty", ErrInsufficientData, f.Name)
		}
		return dropped, nil

	case model.Text:
		tokens := strings.Fields(f.Value.AsString())
		if len(tokens) == 0 {
			return model.Value{}, fmt.Errorf("%w: %s has no tokens", ErrInsufficientData, f.Name)
		}
		if len(tokens) > 1 && rng.IntN(2) == 0 {
			i, j := twoIndices(rng, len(tokens))
			tokens[i], tokens[j] = tokens[j], tokens[i]
			return model.NewValue(strings.Join(tokens, " ")), nil
		}
		drop := dropSet(rng, len(tokens))
		kept := make([]string, 0, len(tokens))
		for i, tok := range tokens {
			if !drop[i] {
				kept = append(kept, tok)
			}
		}
		return model.NewValue(strings.Join(kept, " ")), nil

	case model.Composite:
		subs := f.Value.AsFeatures()
		if len(subs) == 0 {
			return model.Value{}, fmt.Errorf("%w: %s has no sub-features", ErrInsufficientData, f.Name)
		}
		if len(subs) > 1 && rng.IntN(2) == 0 {
			i, j := twoIndices(rng, len(subs))
			if subs[i].Type == subs[j].Type {
				subs[i], subs[j] = subs[i].WithValue(subs[j].Value), subs[j].WithValue(subs[i].Value)
				return model.NewValue(subs), nil
			}
		}
		for i := range dropSet(rng, len(subs)) {
			subs[i] = subs[i].Dropped()
		}
		return model.NewValue(subs), nil

	default:
		return model.Value{}, fmt.Errorf("%w: %s of type %s needs an observed distribution", ErrInsufficientData, f.Name, f.Type)
	}
}

// dropSet picks a random non-empty subset of n positions.
func dropSet(rng *rand.Rand, n int) map[int]bool {
	k := 1 + rng.IntN(n)
	set := make(map[int]bool, k)
	for _, i := range rng.Perm(n)[:k] {
		set[i] = true
	}
	return set
}

// twoIndices picks two distinct positions out of n >= 2.
func twoIndices(rng *rand.Rand, n int) (int, int) {
	i := rng.IntN(n)
	j := rng.IntN(n - 1)
	if j >= i {
		j++
	}
	return i, j
}
