// Package predict turns feature vectors into labeled class probabilities.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"

	"diagserve/metadata"
	"diagserve/ml"
)

// Health is the body of GET /health.
type Health struct {
	Status       string   `json:"status"`
	ModelLoaded  bool     `json:"model_loaded"`
	FeatureCount int      `json:"n_features"`
	Classes      []string `json:"classes"`
}

// Service is safe for concurrent use: everything it holds is read-only after
// NewService returns.
type Service struct {
	schema metadata.Schema
	names  []string
	labels metadata.ClassLabels
	model  ml.Classifier
}

func NewService(store *metadata.Store, model ml.Classifier) (*Service, error) {
	if store == nil {
		return nil, errors.New("metadata store is required")
	}
	if model == nil {
		return nil, ml.ErrNotLoaded
	}
	schema, labels := store.Schema(), store.Labels()
	if model.NumFeatures() != schema.Len() {
		return nil, fmt.Errorf("model expects %d features, metadata lists %d", model.NumFeatures(), schema.Len())
	}
	if model.NumClasses() != len(labels) {
		return nil, fmt.Errorf("model outputs %d classes, metadata lists %d", model.NumClasses(), len(labels))
	}
	return &Service{
		schema: schema,
		names:  schema.Names(),
		labels: labels,
		model:  model,
	}, nil
}

func (s *Service) Health() Health {
	return Health{
		Status:       "ok",
		ModelLoaded:  s.model != nil,
		FeatureCount: len(s.names),
		Classes:      append([]string(nil), s.labels...),
	}
}

func (s *Service) Features() metadata.Schema {
	return append(metadata.Schema(nil), s.schema...)
}

// Predict validates in, scores it and labels the outcome. Validation problems
// come back as *ValidationError.
func (s *Service) Predict(ctx context.Context, in Input) (*Result, error) {
	if in == nil {
		return nil, &ValidationError{Kind: KindMalformed, Reason: `field "features" is required`}
	}
	row, err := in.dense(s.names)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proba, err := s.model.PredictProba([][]float64{row})
	if err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}
	if len(proba) != 1 || len(proba[0]) != len(s.labels) {
		return nil, errors.New("model inference: output shape does not match class labels")
	}

	scores := proba[0]
	rounded := make([]float64, len(scores))
	for i, p := range scores {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, errors.New("model inference: non-finite probability")
		}
		rounded[i] = Round2(p)
	}
	return &Result{
		Label: s.labels[Argmax(scores)],
		Probabilities: Probabilities{
			Labels: append([]string(nil), s.labels...),
			Values: rounded,
		},
		FeatureOrder: append([]string(nil), s.names...),
	}, nil
}
