package model

import (
	"math"
	"testing"
)

// twoLeafTree splits on feature f at threshold th; left leaf votes class a,
// right leaf votes class b.
func twoLeafTree(f int, th float64, a, b int) Tree {
	left := make([]float64, NumClasses)
	right := make([]float64, NumClasses)
	left[a] = 5
	right[b] = 5
	return Tree{
		Feature:   []int{f, -2, -2},
		Threshold: []float64{th, 0, 0},
		Left:      []int{1, -1, -1},
		Right:     []int{2, -1, -1},
		Value:     [][]float64{nil, left, right},
	}
}

func TestTreeClassProbs(t *testing.T) {
	tree := twoLeafTree(0, 0.5, 0, 3)

	probs := tree.classProbs([]float64{0.2})
	if probs[0] != 1 {
		t.Errorf("left leaf probs = %v, want class 0 at 1", probs)
	}

	probs = tree.classProbs([]float64{0.9})
	if probs[3] != 1 {
		t.Errorf("right leaf probs = %v, want class 3 at 1", probs)
	}

	// Boundary goes left (<=).
	probs = tree.classProbs([]float64{0.5})
	if probs[0] != 1 {
		t.Errorf("boundary probs = %v, want class 0 at 1", probs)
	}
}

func TestForestAveragesTrees(t *testing.T) {
	forest := Forest{Trees: []Tree{
		twoLeafTree(0, 0.5, 0, 3),
		twoLeafTree(0, 2.0, 1, 3), // disagrees for x in (0.5, 2]
	}}

	probs := forest.classProbs([]float64{1.0})
	if probs[3] != 0.5 || probs[1] != 0.5 {
		t.Errorf("probs = %v, want 0.5 for classes 1 and 3", probs)
	}

	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("probabilities sum to %v, want 1", sum)
	}
}

func TestTreeValidate(t *testing.T) {
	good := twoLeafTree(0, 0.5, 0, 3)
	if err := good.validate(1); err != nil {
		t.Errorf("valid tree rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Tree)
	}{
		{"empty", func(tr *Tree) { *tr = Tree{} }},
		{"feature out of range", func(tr *Tree) { tr.Feature[0] = 5 }},
		{"child out of range", func(tr *Tree) { tr.Left[0] = 9 }},
		{"backward child link", func(tr *Tree) { tr.Right[0] = 0 }},
		{"short leaf value", func(tr *Tree) { tr.Value[1] = []float64{1} }},
		{"ragged arrays", func(tr *Tree) { tr.Threshold = tr.Threshold[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := twoLeafTree(0, 0.5, 0, 3)
			tt.mutate(&tr)
			if err := tr.validate(1); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestForestValidateRejectsEmpty(t *testing.T) {
	f := Forest{}
	if err := f.validate(1); err == nil {
		t.Error("expected error for empty forest")
	}
}
