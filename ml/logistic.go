package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// LogisticRegression is an exported linear classifier with an optional
// standard scaler in front of it. A single coefficient row means a binary
// model whose row scores the second class.
type LogisticRegression struct {
	Scaler    *StandardScaler `json:"scaler,omitempty"`
	Coef      [][]float64     `json:"coef"`
	Intercept []float64       `json:"intercept"`
}

// StandardScaler applies (x - mean) / scale per feature.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (lr *LogisticRegression) NumFeatures() int {
	if len(lr.Coef) == 0 {
		return 0
	}
	return len(lr.Coef[0])
}

func (lr *LogisticRegression) NumClasses() int {
	switch len(lr.Coef) {
	case 0:
		return 0
	case 1:
		return 2
	default:
		return len(lr.Coef)
	}
}

func (lr *LogisticRegression) PredictProba(X [][]float64) ([][]float64, error) {
	if len(lr.Coef) == 0 {
		return nil, ErrNotLoaded
	}
	if err := checkInput(X, lr.NumFeatures()); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		scores := lr.decision(lr.Scaler.transform(row))
		if len(scores) == 1 {
			p := sigmoid(scores[0])
			out[i] = []float64{1 - p, p}
			continue
		}
		out[i] = softmax(scores)
	}
	return out, nil
}

func (lr *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var model LogisticRegression
	if err := json.Unmarshal(payload, &model); err != nil {
		return err
	}
	if err := model.validate(); err != nil {
		return err
	}
	*lr = model
	return nil
}

func (lr *LogisticRegression) decision(row []float64) []float64 {
	scores := make([]float64, len(lr.Coef))
	for k, weights := range lr.Coef {
		z := lr.Intercept[k]
		for j, w := range weights {
			z += w * row[j]
		}
		scores[k] = z
	}
	return scores
}

func (lr *LogisticRegression) validate() error {
	if len(lr.Coef) == 0 || len(lr.Coef[0]) == 0 {
		return errors.New("logistic regression has no coefficients")
	}
	if len(lr.Coef) == 2 {
		return errors.New("logistic regression needs 1 coefficient row (binary) or at least 3 (multinomial)")
	}
	n := len(lr.Coef[0])
	for k, weights := range lr.Coef {
		if len(weights) != n {
			return fmt.Errorf("coefficient row %d has %d weights, want %d", k, len(weights), n)
		}
	}
	if len(lr.Intercept) != len(lr.Coef) {
		return fmt.Errorf("got %d intercepts for %d coefficient rows", len(lr.Intercept), len(lr.Coef))
	}
	if s := lr.Scaler; s != nil {
		if len(s.Mean) != n || len(s.Scale) != n {
			return fmt.Errorf("scaler must have %d mean and scale entries", n)
		}
	}
	return nil
}

func (s *StandardScaler) transform(row []float64) []float64 {
	if s == nil {
		return row
	}
	out := make([]float64, len(row))
	for j, x := range row {
		scale := s.Scale[j]
		if scale == 0 {
			scale = 1
		}
		out[j] = (x - s.Mean[j]) / scale
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = math.Max(maxScore, s)
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
