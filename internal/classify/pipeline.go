// Package classify ties feature extraction and model inference into a
// single pipeline, and fans batches of recordings out over a bounded
// worker pool.
package classify

import (
	"fmt"

	"github.com/rotor-data/vibration.report/internal/model"
	"github.com/rotor-data/vibration.report/internal/vibration"
)

// Pipeline classifies recordings end to end: decimate, extract features,
// assemble the vector, look up the matching model and run it. A Pipeline
// only reads from its registry, so it is safe for concurrent use.
type Pipeline struct {
	registry  *model.Registry
	minWindow int
}

// NewPipeline wires a pipeline to a loaded registry. minWindow is the
// shortest per-direction window (after decimation) the feature extractors
// will accept.
func NewPipeline(registry *model.Registry, minWindow int) *Pipeline {
	return &Pipeline{registry: registry, minWindow: minWindow}
}

// Registry exposes the underlying model registry for key enumeration.
func (p *Pipeline) Registry() *model.Registry { return p.registry }

// ExtractFeatures runs the feature chain without classifying, returning
// the assembled vector and its names. Callers displaying signal statistics
// get exactly the numbers a classifier would see.
func (p *Pipeline) ExtractFeatures(rec *vibration.Recording, cfg vibration.SensorConfig, factor int) ([]float64, []string, error) {
	if !vibration.ValidFactor(factor) {
		return nil, nil, fmt.Errorf("invalid decimation factor %d", factor)
	}
	features, err := vibration.AssembleVector(rec, cfg, factor, p.minWindow)
	if err != nil {
		return nil, nil, err
	}
	return features, vibration.FeatureNames(cfg), nil
}

// ClassifyRecording runs one recording through the full chain. The model
// key is derived from the sensor configuration and the effective sampling
// rate of the decimation factor; a missing model fails the call with
// model.ErrUnknownModelKey before any feature work happens.
func (p *Pipeline) ClassifyRecording(rec *vibration.Recording, cfg vibration.SensorConfig, factor int) (*model.Prediction, model.Key, error) {
	if !vibration.ValidFactor(factor) {
		return nil, model.Key{}, fmt.Errorf("invalid decimation factor %d", factor)
	}
	key := model.Key{Config: cfg, SampleRate: vibration.EffectiveRate(factor)}

	clf, err := p.registry.Lookup(key)
	if err != nil {
		return nil, key, err
	}

	features, err := vibration.AssembleVector(rec, cfg, factor, p.minWindow)
	if err != nil {
		return nil, key, err
	}

	pred, err := clf.Classify(features)
	if err != nil {
		return nil, key, err
	}
	return pred, key, nil
}
