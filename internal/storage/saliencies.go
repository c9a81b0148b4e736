package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"lime-explainer/internal/model"
)

// ErrNotFound is returned when an archived explanation does not exist.
var ErrNotFound = errors.New("not found")

// SaliencyRecord is an archived explanation.
type SaliencyRecord struct {
	ID         string           `json:"id"`
	Model      string           `json:"model"`
	CreatedAt  time.Time        `json:"created_at"`
	Saliencies model.Saliencies `json:"saliencies"`
}

// SaveSaliencies archives s under modelName. An empty id gets a fresh
// UUID. The id used is returned.
func (s *Store) SaveSaliencies(modelName, id string, saliencies model.Saliencies) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	record := SaliencyRecord{ID: id, Model: modelName, CreatedAt: time.Now().UTC(), Saliencies: saliencies}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal saliencies: %w", err)
		}
		return tx.Bucket([]byte(saliencyBucket)).Put(saliencyKey(modelName, id), data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// LoadSaliencies returns an archived explanation. Feature types and values
// are not archived; names and scores are.
func (s *Store) LoadSaliencies(modelName, id string) (SaliencyRecord, error) {
	var record SaliencyRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(saliencyBucket)).Get(saliencyKey(modelName, id))
		if data == nil {
			return fmt.Errorf("saliencies %s for model %s: %w", id, modelName, ErrNotFound)
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("unmarshal saliencies: %w", err)
		}
		return nil
	})
	return record, err
}

// SaliencyIDs lists the archived explanation ids of modelName in key order.
func (s *Store) SaliencyIDs(modelName string) ([]string, error) {
	var ids []string
	prefix := []byte(modelName + "_")
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(saliencyBucket)).Cursor()
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			ids = append(ids, string(k[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

func saliencyKey(modelName, id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", modelName, id))
}
