package predict

import (
	"diagserve/metadata"
	"diagserve/ml"
)

// Options names the static artifacts loaded at start.
type Options struct {
	ModelType    string
	ModelPath    string
	FeaturesPath string
	ClassesPath  string
	CacheSize    int
}

// Bootstrap loads metadata and model and wires the Service. Every failure is a
// *StartupError.
func Bootstrap(opts Options) (*Service, error) {
	store, err := metadata.Load(opts.FeaturesPath, opts.ClassesPath)
	if err != nil {
		return nil, &StartupError{Component: "metadata", Err: err}
	}

	model, err := ml.LoadModel(opts.ModelType, opts.ModelPath)
	if err != nil {
		return nil, &StartupError{Component: "model", Path: opts.ModelPath, Err: err}
	}
	classifier, err := ml.NewCachedClassifier(model, opts.CacheSize)
	if err != nil {
		return nil, &StartupError{Component: "model", Err: err}
	}

	svc, err := NewService(store, classifier)
	if err != nil {
		return nil, &StartupError{Component: "model", Path: opts.ModelPath, Err: err}
	}
	return svc, nil
}
