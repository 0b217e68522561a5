package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotor-data/vibration.report/internal/vibration"
)

// artifactSchemaVersion is the artifact format this binary understands.
// Bump it together with any change to the feature ordering or the forest
// encoding; old artifacts then fail loudly at load instead of silently
// producing garbage probabilities.
const artifactSchemaVersion = 1

// maxArtifactSize bounds artifact reads (forests are tens of kilobytes to a
// few megabytes).
const maxArtifactSize = 64 * 1024 * 1024

// Artifact is the persisted form of one trained classifier. It is opaque to
// every component except the loader: the registry validates it once at
// startup and the rest of the system only sees the resulting Classifier.
type Artifact struct {
	SchemaVersion int       `json:"schema_version"`
	SensorConfig  string    `json:"sensor_config"`
	SampleRate    int       `json:"sample_rate"`
	FeatureNames  []string  `json:"feature_names"`
	ImputerMeans  []float64 `json:"imputer_means"`
	ScalerMean    []float64 `json:"scaler_mean"`
	ScalerScale   []float64 `json:"scaler_scale"`
	Classes       []string  `json:"classes"`
	Forest        Forest    `json:"forest"`
}

// LoadArtifact reads and fully validates one classifier artifact. Any
// inconsistency (wrong schema, unknown sensor config, feature order drift,
// malformed forest) is a load error; a partially valid artifact is never
// served.
func LoadArtifact(path string) (*Artifact, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("artifact must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if info.Size() > maxArtifactSize {
		return nil, fmt.Errorf("artifact too large: %d bytes (max %d)", info.Size(), maxArtifactSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact JSON: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	if a.SchemaVersion != artifactSchemaVersion {
		return fmt.Errorf("artifact schema version %d, want %d", a.SchemaVersion, artifactSchemaVersion)
	}

	cfg, err := vibration.ParseSensorConfig(a.SensorConfig)
	if err != nil {
		return err
	}

	validRate := false
	for _, factor := range vibration.DecimationFactors {
		if a.SampleRate == vibration.EffectiveRate(factor) {
			validRate = true
			break
		}
	}
	if !validRate {
		return fmt.Errorf("artifact sample rate %d does not match any decimation of %d Hz",
			a.SampleRate, vibration.BaseSampleRate)
	}

	// The feature order baked into the artifact must be byte-identical to
	// the order this binary assembles. This is the contract that keeps
	// training-time and inference-time vectors aligned.
	want := vibration.FeatureNames(cfg)
	if len(a.FeatureNames) != len(want) {
		return fmt.Errorf("artifact has %d feature names, want %d for %s", len(a.FeatureNames), len(want), cfg)
	}
	for i, n := range want {
		if a.FeatureNames[i] != n {
			return fmt.Errorf("artifact feature[%d] = %q, want %q", i, a.FeatureNames[i], n)
		}
	}

	n := len(want)
	if len(a.ImputerMeans) != n || len(a.ScalerMean) != n || len(a.ScalerScale) != n {
		return fmt.Errorf("preprocessing arrays have lengths %d/%d/%d, want %d",
			len(a.ImputerMeans), len(a.ScalerMean), len(a.ScalerScale), n)
	}
	for i, s := range a.ScalerScale {
		if s == 0 {
			return fmt.Errorf("scaler scale[%d] is zero", i)
		}
	}

	if err := validateClasses(a.Classes); err != nil {
		return err
	}
	return a.Forest.validate(n)
}

// Key returns the registry key the artifact serves.
func (a *Artifact) Key() Key {
	cfg, _ := vibration.ParseSensorConfig(a.SensorConfig)
	return Key{Config: cfg, SampleRate: a.SampleRate}
}
