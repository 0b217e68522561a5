package vibration

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// NumFrequencyFeatures is the number of frequency-domain descriptors per window.
const NumFrequencyFeatures = 14

// FrequencyFeatureNames lists the frequency-domain descriptors in their
// frozen order.
var FrequencyFeatureNames = []string{
	"dominant_freq",
	"dominant_amp",
	"spectral_energy",
	"spectral_centroid",
	"spectral_bandwidth",
	"spectral_flatness",
	"spectral_mean",
	"spectral_max",
	"spectral_rms",
	"spectral_variance",
	"spectral_std",
	"spectral_skewness",
	"spectral_kurtosis",
	"spectral_max_mean_ratio",
}

// FrequencyFeatures holds the 14 frequency-domain descriptors of one window.
type FrequencyFeatures struct {
	DominantFreq      float64
	DominantAmp       float64
	SpectralEnergy    float64
	SpectralCentroid  float64
	SpectralBandwidth float64
	SpectralFlatness  float64
	SpectralMean      float64
	SpectralMax       float64
	SpectralRMS       float64
	SpectralVariance  float64
	SpectralStd       float64
	SpectralSkewness  float64
	SpectralKurtosis  float64
	SpectralMaxMean   float64
}

// Slice returns the descriptors in the FrequencyFeatureNames order.
func (f FrequencyFeatures) Slice() []float64 {
	return []float64{
		f.DominantFreq,
		f.DominantAmp,
		f.SpectralEnergy,
		f.SpectralCentroid,
		f.SpectralBandwidth,
		f.SpectralFlatness,
		f.SpectralMean,
		f.SpectralMax,
		f.SpectralRMS,
		f.SpectralVariance,
		f.SpectralStd,
		f.SpectralSkewness,
		f.SpectralKurtosis,
		f.SpectralMaxMean,
	}
}

// Spectrum computes the single-sided magnitude spectrum of a window using a
// rectangular window (no taper). No windowing is deliberate: the training
// data was transformed the same way, and applying a taper here would shift
// every spectral descriptor relative to what the classifiers expect.
// Amplitudes are scaled by 2/N; bin i corresponds to frequency
// i*sampleRate/N. The Nyquist bin is dropped so the spectrum has N/2 bins.
func Spectrum(samples []float64, sampleRate float64) (amps, freqs []float64) {
	n := len(samples)
	if n == 0 {
		return nil, nil
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, samples)

	half := n / 2
	if half < 1 {
		half = 1
	}
	amps = make([]float64, half)
	freqs = make([]float64, half)
	scale := 2 / float64(n)
	for i := 0; i < half; i++ {
		amps[i] = cmplx.Abs(coeffs[i]) * scale
		freqs[i] = float64(i) * sampleRate / float64(n)
	}
	return amps, freqs
}

// ComputeFrequencyFeatures computes the 14 spectral descriptors of a window
// sampled at sampleRate Hz.
//
// The dominant-frequency search excludes the DC bin: otherwise any window
// with a non-zero mean would trivially report 0 Hz as dominant. All other
// descriptors are computed over the full single-sided spectrum. An all-zero
// spectrum yields zeros for every ratio descriptor rather than NaN.
func ComputeFrequencyFeatures(samples []float64, sampleRate float64) (FrequencyFeatures, error) {
	if len(samples) < 2 {
		return FrequencyFeatures{}, fmt.Errorf("%w: window of %d samples has no spectrum", ErrFeatureComputation, len(samples))
	}
	if sampleRate <= 0 {
		return FrequencyFeatures{}, fmt.Errorf("%w: invalid sample rate %v", ErrFeatureComputation, sampleRate)
	}
	if err := checkFinite(samples); err != nil {
		return FrequencyFeatures{}, err
	}

	amps, freqs := Spectrum(samples, sampleRate)

	var f FrequencyFeatures

	// Dominant bin, skipping DC.
	domIdx := 1
	if domIdx < len(amps) {
		for i := domIdx + 1; i < len(amps); i++ {
			if amps[i] > amps[domIdx] {
				domIdx = i
			}
		}
		f.DominantFreq = freqs[domIdx]
		f.DominantAmp = amps[domIdx]
	}

	var total, energy, weighted float64
	max := amps[0]
	for i, a := range amps {
		total += a
		energy += a * a
		weighted += a * freqs[i]
		if a > max {
			max = a
		}
	}
	f.SpectralEnergy = energy
	f.SpectralMax = max

	if total > 0 {
		f.SpectralCentroid = weighted / total
		var spread float64
		for i, a := range amps {
			d := freqs[i] - f.SpectralCentroid
			spread += a * d * d
		}
		f.SpectralBandwidth = math.Sqrt(spread / total)
		f.SpectralFlatness = flatness(amps)
	}

	// Magnitude distribution statistics, treating the spectrum itself as a
	// sample. Population moments, same as the time-domain extractor.
	n := float64(len(amps))
	mean := total / n
	var m2, m3, m4 float64
	for _, a := range amps {
		d := a - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2 /= n
	m3 /= n
	m4 /= n

	f.SpectralMean = mean
	f.SpectralRMS = math.Sqrt(energy / n)
	f.SpectralVariance = m2
	f.SpectralStd = math.Sqrt(m2)
	if m2 > 0 {
		f.SpectralSkewness = m3 / math.Pow(m2, 1.5)
		f.SpectralKurtosis = m4/(m2*m2) - 3
	}
	if mean > 0 {
		f.SpectralMaxMean = max / mean
	}

	return f, nil
}

// flatness is the geometric mean of the non-zero magnitudes divided by
// their arithmetic mean. Zero bins are excluded so one silent bin does not
// collapse the geometric mean to zero.
func flatness(amps []float64) float64 {
	var logSum, sum float64
	var count int
	for _, a := range amps {
		if a > 0 {
			logSum += math.Log(a)
			sum += a
			count++
		}
	}
	if count == 0 || sum == 0 {
		return 0
	}
	geo := math.Exp(logSum / float64(count))
	arith := sum / float64(count)
	return geo / arith
}
