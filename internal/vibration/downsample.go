package vibration

import "fmt"

// DecimationFactors is the closed set of supported decimation factors.
// Together with the 50 kHz base rate they yield the effective sampling
// rates the classifiers were trained for.
var DecimationFactors = []int{1, 2, 4, 8, 16, 32, 64}

// ValidFactor reports whether n is a supported decimation factor.
func ValidFactor(n int) bool {
	for _, f := range DecimationFactors {
		if n == f {
			return true
		}
	}
	return false
}

// EffectiveRate returns the sampling rate in Hz after decimating the base
// rate by factor, truncated to an integer the same way the training
// pipeline labelled its models (50000/32 -> 1563 by rounding).
func EffectiveRate(factor int) int {
	return int(float64(BaseSampleRate)/float64(factor) + 0.5)
}

// Decimate reduces samples to a lower effective rate by keeping every
// factor-th sample: out[i] = samples[i*factor]. This is pure selection
// decimation with no anti-alias filtering; energy above the new Nyquist
// frequency aliases into the pass band, matching how the training data was
// prepared. The result always has ceil(len(samples)/factor) elements.
//
// minSamples guards feature extraction: if the decimated window would be
// shorter, Decimate fails with ErrInsufficientSamples.
func Decimate(samples []float64, factor, minSamples int) ([]float64, error) {
	if !ValidFactor(factor) {
		return nil, fmt.Errorf("decimation factor %d not in %v", factor, DecimationFactors)
	}

	n := (len(samples) + factor - 1) / factor
	if n < minSamples {
		return nil, fmt.Errorf("%w: %d samples at factor %d, need %d",
			ErrInsufficientSamples, n, factor, minSamples)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = samples[i*factor]
	}
	return out, nil
}
