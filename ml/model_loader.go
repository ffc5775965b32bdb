package ml

import (
	"fmt"
)

const (
	TypeLogisticRegression = "logistic_regression"
	TypeDecisionTree       = "decision_tree"
	TypeRandomForest       = "random_forest"
)

func LoadModel(modelType, path string) (Model, error) {
	var model Model
	switch modelType {
	case TypeLogisticRegression:
		model = &LogisticRegression{}
	case TypeDecisionTree:
		model = &DecisionTree{}
	case TypeRandomForest:
		model = &RandomForest{}
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
	if err := model.Load(path); err != nil {
		return nil, fmt.Errorf("load %s from %s: %w", modelType, path, err)
	}
	return model, nil
}
