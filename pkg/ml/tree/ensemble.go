// Package tree evaluates gradient-boosted regression tree ensembles exported
// from a binary classifier.
package tree

import (
	"errors"
	"fmt"
)

// LeafIndex marks a node without children.
const LeafIndex = -1

// Node of a regression tree. Samples whose Feature value is <= Threshold go
// Left, the rest go Right. Leaves carry Value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (n Node) IsLeaf() bool {
	return n.Left == LeafIndex && n.Right == LeafIndex
}

// Tree nodes are stored flat; index 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Ensemble sums InitScore and LearningRate-scaled tree outputs into the
// log-odds of the positive class.
type Ensemble struct {
	InitScore    float64 `json:"init_score"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
}

var ErrEmptyEnsemble = errors.New("ensemble has no trees")

// Validate checks indices so Decision cannot loop or index out of range:
// children must point strictly forward.
func (e Ensemble) Validate(featureCount int) error {
	if len(e.Trees) == 0 {
		return ErrEmptyEnsemble
	}
	if e.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", e.LearningRate)
	}
	for ti, t := range e.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.IsLeaf() {
				continue
			}
			if n.Feature < 0 || n.Feature >= featureCount {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(t.Nodes) {
					return fmt.Errorf("tree %d node %d: child index %d invalid", ti, ni, child)
				}
			}
		}
	}
	return nil
}

// Decision returns the log-odds of the positive class for sample.
func (e Ensemble) Decision(sample []float64) float64 {
	sum := e.InitScore
	for _, t := range e.Trees {
		sum += e.LearningRate * t.leafValue(sample)
	}
	return sum
}

func (t Tree) leafValue(sample []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if sample[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
