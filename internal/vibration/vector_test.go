package vibration

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testRecording builds a 7-channel recording of n samples where channel c
// holds the value base*c plus a small tone so spectra are non-trivial.
func testRecording(n int) *Recording {
	channels := make([][]float64, NumChannels)
	for c := range channels {
		channels[c] = make([]float64, n)
		for i := range channels[c] {
			channels[c][i] = float64(c) + math.Sin(2*math.Pi*1000*float64(i)/BaseSampleRate)
		}
	}
	return &Recording{Channels: channels}
}

func TestAssembleVectorLengths(t *testing.T) {
	rec := testRecording(2048)
	tests := []struct {
		cfg  SensorConfig
		want int
	}{
		{ThreeAxis, 84},
		{SingleAxial, 28},
		{SingleRadial, 28},
		{SingleTangential, 28},
	}
	for _, tt := range tests {
		t.Run(string(tt.cfg), func(t *testing.T) {
			v, err := AssembleVector(rec, tt.cfg, 1, 64)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(v) != tt.want {
				t.Errorf("vector length = %d, want %d", len(v), tt.want)
			}
			if len(v) != tt.cfg.VectorLength() {
				t.Errorf("VectorLength() = %d, actual %d", tt.cfg.VectorLength(), len(v))
			}
			for i, val := range v {
				if math.IsNaN(val) || math.IsInf(val, 0) {
					t.Errorf("v[%d] is non-finite: %v", i, val)
				}
			}
		})
	}
}

func TestFeatureNamesMatchVector(t *testing.T) {
	for _, cfg := range SensorConfigs {
		names := FeatureNames(cfg)
		if len(names) != cfg.VectorLength() {
			t.Errorf("%s: %d names for %d-element vector", cfg, len(names), cfg.VectorLength())
		}
	}

	// Single-direction order: 14 time names then 14 frequency names.
	names := FeatureNames(SingleAxial)
	if names[0] != "time_mean" || names[13] != "time_zero_crossing_rate" {
		t.Errorf("time block order wrong: %q ... %q", names[0], names[13])
	}
	if names[14] != "freq_dominant_freq" || names[27] != "freq_spectral_max_mean_ratio" {
		t.Errorf("frequency block order wrong: %q ... %q", names[14], names[27])
	}

	// ThreeAxis direction order: axial, radial, tangential.
	names = FeatureNames(ThreeAxis)
	if !strings.HasSuffix(names[0], "_axial") ||
		!strings.HasSuffix(names[28], "_radial") ||
		!strings.HasSuffix(names[56], "_tangential") {
		t.Errorf("direction order wrong: %q, %q, %q", names[0], names[28], names[56])
	}
}

func TestThreeAxisCombinesBearingSensors(t *testing.T) {
	n := 256
	channels := make([][]float64, NumChannels)
	for c := range channels {
		channels[c] = make([]float64, n)
	}
	// Underhang axial all 2s, overhang axial all 4s: combined mean is 3.
	for i := 0; i < n; i++ {
		channels[ChannelUnderhangAxial][i] = 2
		channels[ChannelOverhangAxial][i] = 4
	}
	rec := &Recording{Channels: channels}

	combined := DirectionSignal(rec, Axial, ThreeAxis)
	for i, v := range combined {
		if v != 3 {
			t.Fatalf("combined[%d] = %v, want 3", i, v)
		}
	}

	// Single-direction config reads the underhang channel untouched.
	single := DirectionSignal(rec, Axial, SingleAxial)
	if diff := cmp.Diff(channels[ChannelUnderhangAxial], single); diff != "" {
		t.Errorf("single-direction signal mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleVectorDeterministic(t *testing.T) {
	rec := testRecording(2048)
	a, err := AssembleVector(rec, ThreeAxis, 2, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := AssembleVector(rec, ThreeAxis, 2, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("vectors differ between runs (-first +second):\n%s", diff)
	}
}

func TestAssembleVectorErrors(t *testing.T) {
	// Too few samples after decimation.
	_, err := AssembleVector(testRecording(100), SingleAxial, 64, 64)
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("expected ErrInsufficientSamples, got %v", err)
	}

	// Wrong channel count.
	_, err = AssembleVector(&Recording{Channels: [][]float64{{1, 2}}}, ThreeAxis, 1, 1)
	if !errors.Is(err, ErrFeatureComputation) {
		t.Errorf("expected ErrFeatureComputation, got %v", err)
	}

	// Non-finite samples in one channel.
	rec := testRecording(256)
	rec.Channels[ChannelUnderhangRadial][10] = math.NaN()
	_, err = AssembleVector(rec, SingleRadial, 1, 64)
	if !errors.Is(err, ErrFeatureComputation) {
		t.Errorf("expected ErrFeatureComputation, got %v", err)
	}
}

// TestAssembleVectorUsesEffectiveRate pins the frequency grid to the
// rounded effective rate the model key advertises. At factors 32 and 64
// the exact decimated rates are 1562.5 and 781.25 Hz; computing spectra
// on that axis would put every frequency feature on a slightly different
// grid than the one the classifiers were trained on.
func TestAssembleVectorUsesEffectiveRate(t *testing.T) {
	rec := testRecording(8192)
	dominantIndex := NumTimeFeatures // freq block starts after the time block

	for _, factor := range []int{32, 64} {
		vector, err := AssembleVector(rec, SingleAxial, factor, 64)
		if err != nil {
			t.Fatalf("factor %d: unexpected error: %v", factor, err)
		}

		windowLen := (8192 + factor - 1) / factor
		binWidth := float64(EffectiveRate(factor)) / float64(windowLen)

		dominant := vector[dominantIndex]
		remainder := math.Mod(dominant, binWidth)
		if remainder > 1e-9 && binWidth-remainder > 1e-9 {
			t.Errorf("factor %d: dominant_freq %v is not on the %d Hz bin grid (bin width %v, remainder %v)",
				factor, dominant, EffectiveRate(factor), binWidth, remainder)
		}

		exactWidth := (float64(BaseSampleRate) / float64(factor)) / float64(windowLen)
		if binWidth == exactWidth {
			t.Fatalf("factor %d: rounded and exact bin widths coincide; test cannot discriminate", factor)
		}
	}
}

func TestParseSensorConfig(t *testing.T) {
	for _, c := range SensorConfigs {
		got, err := ParseSensorConfig(string(c))
		if err != nil || got != c {
			t.Errorf("ParseSensorConfig(%q) = %v, %v", c, got, err)
		}
	}
	if _, err := ParseSensorConfig("sideways"); err == nil {
		t.Error("expected error for unknown config")
	}
}
