package ml

import "errors"

// Classifier is a fitted estimator exposing class probabilities. Rows of the
// returned matrix are index-aligned with the class labels it was fitted on.
type Classifier interface {
	PredictProba(X [][]float64) ([][]float64, error)
	NumFeatures() int
	NumClasses() int
}

// Model is a Classifier that can be restored from a JSON artifact.
type Model interface {
	Classifier
	Load(path string) error
}

var (
	ErrNotLoaded       = errors.New("model not loaded")
	ErrFeatureMismatch = errors.New("feature count mismatch")
)

func checkInput(X [][]float64, features int) error {
	for _, row := range X {
		if len(row) != features {
			return ErrFeatureMismatch
		}
	}
	return nil
}
