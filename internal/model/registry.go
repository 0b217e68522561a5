package model

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/rotor-data/vibration.report/internal/vibration"
)

// Error kinds for model lookup and loading.
var (
	// ErrUnknownModelKey indicates no classifier is loaded for the
	// requested (sensor config, sample rate) pair. Lookups never fall back
	// to a different sampling rate: a classifier trained at one rate is
	// meaningless at another.
	ErrUnknownModelKey = errors.New("no model loaded for key")

	// ErrModelLoad indicates a classifier artifact was missing or corrupt
	// at startup. The key stays absent from the registry; other keys are
	// unaffected.
	ErrModelLoad = errors.New("model artifact failed to load")
)

// Key uniquely identifies one loaded classifier.
type Key struct {
	Config     vibration.SensorConfig `json:"sensor_config"`
	SampleRate int                    `json:"sample_rate"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%dHz", k.Config, k.SampleRate)
}

// Registry holds every classifier loaded at startup. It is populated once
// and read-only afterwards, so any number of goroutines may look up and
// classify concurrently without locking.
type Registry struct {
	classifiers map[Key]*Classifier
}

// LoadRegistry scans dir for *.json classifier artifacts and loads each
// one. A corrupt artifact is logged and skipped — its key simply stays
// absent and later lookups fail with ErrUnknownModelKey — so one bad file
// cannot take down the remaining models. An empty directory yields an
// empty but usable registry.
func LoadRegistry(dir string) (*Registry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan models directory: %w", err)
	}
	sort.Strings(paths)

	r := &Registry{classifiers: make(map[Key]*Classifier)}
	for _, path := range paths {
		artifact, err := LoadArtifact(path)
		if err != nil {
			log.Printf("skipping model %s: %v: %v", filepath.Base(path), ErrModelLoad, err)
			continue
		}
		key := artifact.Key()
		if _, dup := r.classifiers[key]; dup {
			log.Printf("skipping model %s: duplicate key %s", filepath.Base(path), key)
			continue
		}
		r.classifiers[key] = NewClassifier(artifact)
		log.Printf("loaded model %s from %s", key, filepath.Base(path))
	}
	return r, nil
}

// Lookup returns the classifier for a key, or ErrUnknownModelKey when no
// artifact for that exact pair was loaded.
func (r *Registry) Lookup(key Key) (*Classifier, error) {
	c, ok := r.classifiers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModelKey, key)
	}
	return c, nil
}

// Keys returns the loaded model keys sorted by config then rate.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.classifiers))
	for k := range r.classifiers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Config != keys[j].Config {
			return keys[i].Config < keys[j].Config
		}
		return keys[i].SampleRate < keys[j].SampleRate
	})
	return keys
}

// Len returns the number of loaded classifiers.
func (r *Registry) Len() int { return len(r.classifiers) }
