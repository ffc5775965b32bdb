package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// RandomForest averages the leaf distributions of its trees.
type RandomForest struct {
	Trees []DecisionTree `json:"trees"`
}

func (rf *RandomForest) NumFeatures() int {
	if len(rf.Trees) == 0 {
		return 0
	}
	return rf.Trees[0].Features
}

func (rf *RandomForest) NumClasses() int {
	if len(rf.Trees) == 0 {
		return 0
	}
	return rf.Trees[0].Classes
}

func (rf *RandomForest) PredictProba(X [][]float64) ([][]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotLoaded
	}
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, rf.NumClasses())
	}
	for t := range rf.Trees {
		proba, err := rf.Trees[t].PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", t, err)
		}
		for i, row := range proba {
			for k, p := range row {
				out[i][k] += p
			}
		}
	}
	n := float64(len(rf.Trees))
	for _, row := range out {
		for k := range row {
			row[k] /= n
		}
	}
	return out, nil
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var forest RandomForest
	if err := json.Unmarshal(payload, &forest); err != nil {
		return err
	}
	if len(forest.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for t := range forest.Trees {
		tree := &forest.Trees[t]
		if err := tree.validate(); err != nil {
			return fmt.Errorf("tree %d: %w", t, err)
		}
		if tree.Features != forest.Trees[0].Features || tree.Classes != forest.Trees[0].Classes {
			return fmt.Errorf("tree %d shape differs from tree 0", t)
		}
	}
	*rf = forest
	return nil
}
