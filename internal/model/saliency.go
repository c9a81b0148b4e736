package model

import (
	"encoding/json"
	"math"
	"sort"
)

// FeatureImportance is the signed influence of one feature on one output.
type FeatureImportance struct {
	Feature Feature
	Score   float64
	// Index is the feature's position in the explained input.
	Index int
}

// Saliency is the ranked feature importance for one output.
type Saliency struct {
	Output               Output
	PerFeatureImportance []FeatureImportance
}

// NewSaliency copies the importances and sorts them.
func NewSaliency(output Output, importances []FeatureImportance) Saliency {
	fis := make([]FeatureImportance, len(importances))
	copy(fis, importances)
	s := Saliency{Output: output, PerFeatureImportance: fis}
	s.Sort()
	return s
}

// Sort orders by descending absolute score; ties keep input order.
func (s Saliency) Sort() {
	sort.SliceStable(s.PerFeatureImportance, func(i, j int) bool {
		a, b := s.PerFeatureImportance[i], s.PerFeatureImportance[j]
		aa, ab := math.Abs(a.Score), math.Abs(b.Score)
		if aa != ab {
			return aa > ab
		}
		return a.Index < b.Index
	})
}

// TopFeatures returns the k entries with the largest absolute score.
func (s Saliency) TopFeatures(k int) []FeatureImportance {
	return head(s.PerFeatureImportance, k, func(FeatureImportance) bool { return true })
}

// PositiveFeatures returns up to k entries with a positive score, highest
// first.
func (s Saliency) PositiveFeatures(k int) []FeatureImportance {
	return head(s.PerFeatureImportance, k, func(fi FeatureImportance) bool { return fi.Score > 0 })
}

// NegativeFeatures returns up to k entries with a negative score, most
// negative first.
func (s Saliency) NegativeFeatures(k int) []FeatureImportance {
	return head(s.PerFeatureImportance, k, func(fi FeatureImportance) bool { return fi.Score < 0 })
}

// ScoreOf returns the score assigned to the named feature.
func (s Saliency) ScoreOf(name string) (float64, bool) {
	for _, fi := range s.PerFeatureImportance {
		if fi.Feature.Name == name {
			return fi.Score, true
		}
	}
	return 0, false
}

func head(fis []FeatureImportance, k int, keep func(FeatureImportance) bool) []FeatureImportance {
	out := make([]FeatureImportance, 0, max(0, min(k, len(fis))))
	for _, fi := range fis {
		if len(out) >= k {
			break
		}
		if keep(fi) {
			out = append(out, fi)
		}
	}
	return out
}

// Saliencies maps output names to their saliency.
type Saliencies map[string]Saliency

type saliencyJSON struct {
	Output   string             `json:"output"`
	Features []featureScoreJSON `json:"features"`
}

type featureScoreJSON struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func (s Saliency) MarshalJSON() ([]byte, error) {
	sj := saliencyJSON{Output: s.Output.Name, Features: make([]featureScoreJSON, len(s.PerFeatureImportance))}
	for i, fi := range s.PerFeatureImportance {
		sj.Features[i] = featureScoreJSON{Name: fi.Feature.Name, Score: fi.Score}
	}
	return json.Marshal(sj)
}

// UnmarshalJSON restores names and scores; feature types and values are
// not part of the serialized form.
func (s *Saliency) UnmarshalJSON(b []byte) error {
	var sj saliencyJSON
	if err := json.Unmarshal(b, &sj); err != nil {
		return err
	}
	fis := make([]FeatureImportance, len(sj.Features))
	for i, f := range sj.Features {
		fis[i] = FeatureImportance{Feature: Feature{Name: f.Name}, Score: f.Score, Index: i}
	}
	*s = Saliency{Output: Output{Name: sj.Output}, PerFeatureImportance: fis}
	return nil
}
