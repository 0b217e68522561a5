package vibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// FeaturesPerDirection is the per-direction feature vector length:
// 14 time-domain plus 14 frequency-domain descriptors.
const FeaturesPerDirection = NumTimeFeatures + NumFrequencyFeatures

// NumTimeFeatures is the number of time-domain descriptors per window.
const NumTimeFeatures = 14

// TimeFeatureNames lists the time-domain descriptors in their frozen order.
var TimeFeatureNames = []string{
	"mean",
	"std",
	"rms",
	"max",
	"min",
	"peak_to_peak",
	"mean_abs",
	"crest_factor",
	"shape_factor",
	"impulse_factor",
	"skewness",
	"kurtosis",
	"energy",
	"zero_crossing_rate",
}

// TimeFeatures holds the 14 time-domain descriptors of one sample window.
type TimeFeatures struct {
	Mean             float64
	Std              float64
	RMS              float64
	Max              float64
	Min              float64
	PeakToPeak       float64
	MeanAbs          float64
	CrestFactor      float64
	ShapeFactor      float64
	ImpulseFactor    float64
	Skewness         float64
	Kurtosis         float64
	Energy           float64
	ZeroCrossingRate float64
}

// Slice returns the descriptors in the TimeFeatureNames order.
func (f TimeFeatures) Slice() []float64 {
	return []float64{
		f.Mean,
		f.Std,
		f.RMS,
		f.Max,
		f.Min,
		f.PeakToPeak,
		f.MeanAbs,
		f.CrestFactor,
		f.ShapeFactor,
		f.ImpulseFactor,
		f.Skewness,
		f.Kurtosis,
		f.Energy,
		f.ZeroCrossingRate,
	}
}

// checkFinite rejects windows containing NaN or Inf samples. Letting them
// through would corrupt classifier probabilities without any error surfacing
// downstream, so they fail loudly here instead.
func checkFinite(samples []float64) error {
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite sample at index %d", ErrFeatureComputation, i)
		}
	}
	return nil
}

// ComputeTimeFeatures computes the 14 time-domain descriptors of a window.
//
// Moment-based statistics (std, skewness, excess kurtosis) use population
// estimators (divide by N, no bias correction) because that is what the
// training pipeline computed; swapping in sample estimators would shift
// every classifier's inputs.
//
// Ratio descriptors with a zero denominator (crest, shape and impulse factor
// of an all-zero window) are emitted as 0 rather than NaN.
func ComputeTimeFeatures(samples []float64) (TimeFeatures, error) {
	if len(samples) == 0 {
		return TimeFeatures{}, fmt.Errorf("%w: empty window", ErrFeatureComputation)
	}
	if err := checkFinite(samples); err != nil {
		return TimeFeatures{}, err
	}

	n := float64(len(samples))
	mean := stat.Mean(samples, nil)

	var m2, m3, m4, sumSq, sumAbs float64
	max, min := samples[0], samples[0]
	for _, v := range samples {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
		sumSq += v * v
		sumAbs += math.Abs(v)
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	m2 /= n
	m3 /= n
	m4 /= n

	f := TimeFeatures{
		Mean:       mean,
		Std:        math.Sqrt(m2),
		RMS:        math.Sqrt(sumSq / n),
		Max:        max,
		Min:        min,
		PeakToPeak: max - min,
		MeanAbs:    sumAbs / n,
		Energy:     sumSq,
	}

	if f.RMS > 0 {
		f.CrestFactor = max / f.RMS
	}
	if f.MeanAbs > 0 {
		f.ShapeFactor = f.RMS / f.MeanAbs
		f.ImpulseFactor = max / f.MeanAbs
	}
	if m2 > 0 {
		f.Skewness = m3 / math.Pow(m2, 1.5)
		f.Kurtosis = m4/(m2*m2) - 3
	}
	f.ZeroCrossingRate = zeroCrossingRate(samples)

	return f, nil
}

// zeroCrossingRate counts sign changes between consecutive samples and
// normalises by the number of sample pairs, so an alternating-sign sequence
// scores exactly 1 and a constant window scores 0.
func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if sign(samples[i]) != sign(samples[i-1]) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
