package storage

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"lime-explainer/internal/model"
)

// RecordInput stores every feature value of in as an observation for
// modelName. Values are appended in arrival order.
func (s *Store) RecordInput(modelName string, in model.PredictionInput) error {
	if modelName == "" {
		return fmt.Errorf("record input: model name is empty")
	}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("record input: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		mb, err := tx.Bucket([]byte(observationsBucket)).CreateBucketIfNotExists([]byte(modelName))
		if err != nil {
			return fmt.Errorf("create model bucket: %w", err)
		}
		for _, f := range in.Features {
			fb, err := mb.CreateBucketIfNotExists([]byte(f.Name))
			if err != nil {
				return fmt.Errorf("create feature bucket %s: %w", f.Name, err)
			}
			data, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("marshal feature %s: %w", f.Name, err)
			}
			seq, err := fb.NextSequence()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			if err := fb.Put([]byte(fmt.Sprintf("%020d", seq)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Values returns the observed values of one feature of modelName in
// arrival order, or nil when nothing was recorded.
func (s *Store) Values(modelName, feature string) ([]model.Value, error) {
	var values []model.Value
	err := s.db.View(func(tx *bbolt.Tx) error {
		fb := featureBucket(tx, modelName, feature)
		if fb == nil {
			return nil
		}
		return fb.ForEach(func(k, v []byte) error {
			var f model.Feature
			if err := json.Unmarshal(v, &f); err != nil {
				log.Debug().Err(err).Str("model", modelName).Str("feature", feature).Bytes("key", k).Msg("Skipping malformed observation")
				return nil
			}
			values = append(values, f.Value)
			return nil
		})
	})
	return values, err
}

// Distributions builds a feature distribution for every feature of in that
// has observations of the same type. The distribution of the feature at
// index i draws its own samples from pc.Derive(i).
func (s *Store) Distributions(modelName string, in model.PredictionInput, pc model.PerturbationContext) (map[string]model.FeatureDistribution, error) {
	out := make(map[string]model.FeatureDistribution)
	err := s.db.View(func(tx *bbolt.Tx) error {
		for i, f := range in.Features {
			fb := featureBucket(tx, modelName, f.Name)
			if fb == nil {
				continue
			}
			var values []model.Value
			err := fb.ForEach(func(_, v []byte) error {
				var obs model.Feature
				if err := json.Unmarshal(v, &obs); err != nil || obs.Type != f.Type {
					return nil
				}
				values = append(values, obs.Value)
				return nil
			})
			if err != nil {
				return err
			}
			if len(values) == 0 {
				continue
			}
			out[f.Name] = model.NewGenericFeatureDistribution(f, values, pc.Derive(i).Rand())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("model", modelName).Int("features", len(in.Features)).Int("distributions", len(out)).Msg("Loaded feature distributions")
	return out, nil
}

func featureBucket(tx *bbolt.Tx, modelName, feature string) *bbolt.Bucket {
	mb := tx.Bucket([]byte(observationsBucket)).Bucket([]byte(modelName))
	if mb == nil {
		return nil
	}
	return mb.Bucket([]byte(feature))
}
