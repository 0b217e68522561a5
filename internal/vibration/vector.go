package vibration

import "fmt"

// channelPair returns the underhang and overhang channel indices for a
// direction.
func channelPair(d Direction) (underhang, overhang int) {
	switch d {
	case Axial:
		return ChannelUnderhangAxial, ChannelOverhangAxial
	case Radial:
		return ChannelUnderhangRadial, ChannelOverhangRadial
	default:
		return ChannelUnderhangTangential, ChannelOverhangTangential
	}
}

// DirectionSignal selects the sample sequence for one direction.
//
// ThreeAxis models were trained on the sample-wise mean of the underhang and
// overhang bearing sensors per direction; single-direction models were
// trained on the underhang sensor alone. Both rules are frozen alongside the
// model artifacts.
func DirectionSignal(r *Recording, d Direction, cfg SensorConfig) []float64 {
	under, over := channelPair(d)
	if cfg != ThreeAxis {
		return r.Channels[under]
	}
	u, o := r.Channels[under], r.Channels[over]
	combined := make([]float64, len(u))
	for i := range u {
		combined[i] = (u[i] + o[i]) / 2
	}
	return combined
}

// ExtractDirection computes the 28 per-direction descriptors of an already
// decimated window: the 14 time-domain values followed by the 14
// frequency-domain values.
func ExtractDirection(window []float64, sampleRate float64) ([]float64, error) {
	tf, err := ComputeTimeFeatures(window)
	if err != nil {
		return nil, err
	}
	ff, err := ComputeFrequencyFeatures(window, sampleRate)
	if err != nil {
		return nil, err
	}
	return append(tf.Slice(), ff.Slice()...), nil
}

// AssembleVector produces the full feature vector for a recording: decimate
// each direction's signal by factor, extract the 28 per-direction
// descriptors, and concatenate them in the configuration's direction order.
// The result has cfg.VectorLength() elements (28 or 84).
func AssembleVector(r *Recording, cfg SensorConfig, factor, minSamples int) ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeatureComputation, err)
	}

	// The frequency axis uses the rounded effective rate (1563, not
	// 1562.5), the same integer the model key and artifacts carry, so the
	// bin grid matches the one the classifiers were trained on.
	rate := float64(EffectiveRate(factor))
	vector := make([]float64, 0, cfg.VectorLength())
	for _, dir := range cfg.Directions() {
		window, err := Decimate(DirectionSignal(r, dir, cfg), factor, minSamples)
		if err != nil {
			return nil, err
		}
		features, err := ExtractDirection(window, rate)
		if err != nil {
			return nil, fmt.Errorf("direction %s: %w", dir, err)
		}
		vector = append(vector, features...)
	}
	return vector, nil
}

// FeatureNames returns the canonical names of the vector positions for a
// configuration, in the exact assembly order. Single-direction vectors use
// bare "time_*" and "freq_*" names; ThreeAxis vectors suffix each name with
// its direction. These names label both the classifier inputs and the values
// the API exposes, so displayed statistics and model inputs are provably the
// same numbers.
func FeatureNames(cfg SensorConfig) []string {
	names := make([]string, 0, cfg.VectorLength())
	multi := cfg == ThreeAxis
	for _, dir := range cfg.Directions() {
		suffix := ""
		if multi {
			suffix = "_" + string(dir)
		}
		for _, n := range TimeFeatureNames {
			names = append(names, "time_"+n+suffix)
		}
		for _, n := range FrequencyFeatureNames {
			names = append(names, "freq_"+n+suffix)
		}
	}
	return names
}
