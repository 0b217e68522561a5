package model

import (
	"fmt"
	"math"
)

// Prediction is the outcome of classifying one feature vector. Probabilities
// always contain all seven classes and sum to 1 within floating-point
// tolerance; Confidence equals the predicted class's probability.
type Prediction struct {
	Class         FaultClass             `json:"predicted_class"`
	Probabilities map[FaultClass]float64 `json:"probabilities"`
	Confidence    float64                `json:"confidence"`
}

// Classifier applies the full trained inference chain to a feature vector:
// mean imputation of missing values, standard scaling with training-time
// statistics, then the random-forest ensemble. A Classifier is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	key          Key
	featureNames []string
	imputerMeans []float64
	scalerMean   []float64
	scalerScale  []float64
	forest       Forest
}

// NewClassifier builds a Classifier from a validated artifact.
func NewClassifier(a *Artifact) *Classifier {
	return &Classifier{
		key:          a.Key(),
		featureNames: a.FeatureNames,
		imputerMeans: a.ImputerMeans,
		scalerMean:   a.ScalerMean,
		scalerScale:  a.ScalerScale,
		forest:       a.Forest,
	}
}

// Key returns the (sensor config, sample rate) pair the classifier serves.
func (c *Classifier) Key() Key { return c.key }

// FeatureNames returns the frozen input feature order.
func (c *Classifier) FeatureNames() []string { return c.featureNames }

// Classify runs the inference chain on one feature vector. The vector must
// have exactly the classifier's feature count; non-finite entries are
// imputed with the training-time feature means before scaling.
func (c *Classifier) Classify(features []float64) (*Prediction, error) {
	if len(features) != len(c.featureNames) {
		return nil, fmt.Errorf("feature vector has %d values, model expects %d",
			len(features), len(c.featureNames))
	}

	scaled := make([]float64, len(features))
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = c.imputerMeans[i]
		}
		scaled[i] = (v - c.scalerMean[i]) / c.scalerScale[i]
	}

	probs := c.forest.classProbs(scaled)

	// Renormalise to absorb accumulated floating-point drift.
	var total float64
	for _, p := range probs {
		total += p
	}
	if total == 0 {
		return nil, fmt.Errorf("forest produced an all-zero distribution")
	}

	// Ties resolve to the lowest class index, deterministically.
	best := 0
	probMap := make(map[FaultClass]float64, NumClasses)
	for i := range probs {
		probs[i] /= total
		probMap[Classes[i]] = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}

	return &Prediction{
		Class:         Classes[best],
		Probabilities: probMap,
		Confidence:    probMap[Classes[best]],
	}, nil
}
