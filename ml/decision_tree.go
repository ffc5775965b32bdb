package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DecisionTree is a fitted tree flattened into a node array, root at index 0.
// Internal nodes send a row left when row[FeatureIdx] <= Threshold.
type DecisionTree struct {
	Features int        `json:"n_features"`
	Classes  int        `json:"n_classes"`
	Nodes    []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	IsLeaf     bool    `json:"is_leaf"`
	// Value holds per-class sample counts (or fractions) reaching a leaf.
	Value []float64 `json:"value,omitempty"`
}

func (dt *DecisionTree) NumFeatures() int { return dt.Features }

func (dt *DecisionTree) NumClasses() int { return dt.Classes }

func (dt *DecisionTree) PredictProba(X [][]float64) ([][]float64, error) {
	if len(dt.Nodes) == 0 {
		return nil, ErrNotLoaded
	}
	if err := checkInput(X, dt.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		leaf, err := dt.leaf(row)
		if err != nil {
			return nil, err
		}
		out[i] = normalize(leaf.Value)
	}
	return out, nil
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var tree DecisionTree
	if err := json.Unmarshal(payload, &tree); err != nil {
		return err
	}
	if err := tree.validate(); err != nil {
		return err
	}
	*dt = tree
	return nil
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	idx := 0
	// a well formed tree reaches a leaf in fewer steps than it has nodes
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
	return TreeNode{}, errors.New("invalid tree state")
}

func (dt *DecisionTree) validate() error {
	if dt.Features <= 0 || dt.Classes < 2 {
		return fmt.Errorf("tree needs n_features > 0 and n_classes >= 2, got %d and %d", dt.Features, dt.Classes)
	}
	if len(dt.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if len(node.Value) != dt.Classes {
				return fmt.Errorf("leaf %d has %d class values, want %d", i, len(node.Value), dt.Classes)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= dt.Features {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if !inRange(node.LeftChild, len(dt.Nodes)) || !inRange(node.RightChild, len(dt.Nodes)) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

func inRange(idx, n int) bool { return idx >= 0 && idx < n }

// normalize turns leaf counts into a distribution. An all-zero leaf yields a
// uniform distribution.
func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i, v := range values {
		out[i] = v / total
	}
	return out
}
