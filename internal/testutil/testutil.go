// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotor-data/vibration.report/internal/model"
	"github.com/rotor-data/vibration.report/internal/vibration"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// TestArtifact builds a small but fully valid classifier artifact for the
// given key. The forest has two single-split trees on the first feature
// with a threshold of zero (post-scaling), so predictions are easy to
// reason about: a first feature at or below zero votes class 0 (normal), a
// positive one votes class 3 (imbalance).
func TestArtifact(cfg vibration.SensorConfig, rate int) *model.Artifact {
	names := vibration.FeatureNames(cfg)
	n := len(names)

	zeros := make([]float64, n)
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}

	classes := make([]string, len(model.Classes))
	for i, c := range model.Classes {
		classes[i] = string(c)
	}

	tree := model.Tree{
		Feature:   []int{0, -2, -2},
		Threshold: []float64{0, 0, 0},
		Left:      []int{1, -1, -1},
		Right:     []int{2, -1, -1},
		Value: [][]float64{
			nil,
			{10, 0, 0, 0, 0, 0, 0}, // left leaf: class 0
			{0, 0, 0, 10, 0, 0, 0}, // right leaf: class 3
		},
	}

	return &model.Artifact{
		SchemaVersion: 1,
		SensorConfig:  string(cfg),
		SampleRate:    rate,
		FeatureNames:  names,
		ImputerMeans:  zeros,
		ScalerMean:    make([]float64, n),
		ScalerScale:   ones,
		Classes:       classes,
		Forest:        model.Forest{Trees: []model.Tree{tree, tree}},
	}
}

// WriteArtifact serialises an artifact into dir under name and returns the
// full path.
func WriteArtifact(t *testing.T, dir, name string, a *model.Artifact) string {
	t.Helper()
	data, err := json.Marshal(a)
	AssertNoError(t, err)
	path := filepath.Join(dir, name)
	AssertNoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// TestRecording builds a 7-channel recording of n samples with a 1 kHz tone
// plus a per-channel offset so every channel is distinct and finite.
func TestRecording(n int) *vibration.Recording {
	channels := make([][]float64, vibration.NumChannels)
	for c := range channels {
		channels[c] = make([]float64, n)
		for i := range channels[c] {
			channels[c][i] = 0.1*float64(c) +
				math.Sin(2*math.Pi*1000*float64(i)/vibration.BaseSampleRate)
		}
	}
	return &vibration.Recording{Channels: channels}
}
