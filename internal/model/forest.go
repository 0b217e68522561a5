package model

import "fmt"

// Tree is one decision tree in flattened array form: node i branches left
// when x[Feature[i]] <= Threshold[i]. A node with Left[i] == -1 is a leaf
// whose Value[i] holds per-class sample counts from training.
type Tree struct {
	Feature   []int       `json:"feature"`
	Threshold []float64   `json:"threshold"`
	Left      []int       `json:"left"`
	Right     []int       `json:"right"`
	Value     [][]float64 `json:"value"`
}

// validate checks the node arrays are consistent with each other and with
// the expected feature and class counts.
func (t *Tree) validate(numFeatures int) error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("tree arrays have inconsistent lengths (%d/%d/%d/%d/%d)",
			n, len(t.Threshold), len(t.Left), len(t.Right), len(t.Value))
	}
	for i := 0; i < n; i++ {
		if t.Left[i] == -1 {
			if len(t.Value[i]) != NumClasses {
				return fmt.Errorf("leaf %d has %d class counts, want %d", i, len(t.Value[i]), NumClasses)
			}
			continue
		}
		if t.Feature[i] < 0 || t.Feature[i] >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d, want 0..%d", i, t.Feature[i], numFeatures-1)
		}
		if t.Left[i] < 0 || t.Left[i] >= n || t.Right[i] < 0 || t.Right[i] >= n {
			return fmt.Errorf("node %d has child out of range", i)
		}
		if t.Left[i] <= i || t.Right[i] <= i {
			return fmt.Errorf("node %d has non-forward child link", i)
		}
	}
	return nil
}

// classProbs walks the tree for one feature vector and returns the leaf's
// class distribution normalised to sum to 1.
func (t *Tree) classProbs(x []float64) []float64 {
	i := 0
	for t.Left[i] != -1 {
		if x[t.Feature[i]] <= t.Threshold[i] {
			i = t.Left[i]
		} else {
			i = t.Right[i]
		}
	}

	counts := t.Value[i]
	var total float64
	for _, c := range counts {
		total += c
	}
	probs := make([]float64, NumClasses)
	if total == 0 {
		return probs
	}
	for j, c := range counts {
		probs[j] = c / total
	}
	return probs
}

// Forest is a random-forest ensemble. Class probabilities are the mean of
// the member trees' leaf distributions, matching the training library's
// soft-voting behaviour.
type Forest struct {
	Trees []Tree `json:"trees"`
}

func (f *Forest) validate(numFeatures int) error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(numFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// classProbs averages the per-tree class distributions for one vector.
func (f *Forest) classProbs(x []float64) []float64 {
	probs := make([]float64, NumClasses)
	for i := range f.Trees {
		for j, p := range f.Trees[i].classProbs(x) {
			probs[j] += p
		}
	}
	n := float64(len(f.Trees))
	for j := range probs {
		probs[j] /= n
	}
	return probs
}
