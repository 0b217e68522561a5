package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// TuningConfig holds the numeric knobs of the inference core. Fields are
// pointers so a JSON file may override a subset and leave the rest at their
// defaults; the Get* accessors supply the fallback values.
type TuningConfig struct {
	// MinWindowSamples is the shortest per-direction window (after
	// decimation) the feature extractors accept. Shorter windows fail the
	// item with an insufficient-samples error.
	MinWindowSamples *int `json:"min_window_samples,omitempty"`

	// BatchWorkers bounds the number of recordings classified in
	// parallel within one batch. Zero or absent means one worker per CPU.
	BatchWorkers *int `json:"batch_workers,omitempty"`

	// HistoryLimit caps how many stored predictions the recent-history
	// queries return by default.
	HistoryLimit *int `json:"history_limit,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinWindowSamples != nil && *c.MinWindowSamples < 2 {
		return fmt.Errorf("min_window_samples must be at least 2, got %d", *c.MinWindowSamples)
	}
	if c.BatchWorkers != nil && *c.BatchWorkers < 0 {
		return fmt.Errorf("batch_workers must be non-negative, got %d", *c.BatchWorkers)
	}
	if c.HistoryLimit != nil && *c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", *c.HistoryLimit)
	}
	return nil
}

// GetMinWindowSamples returns the min_window_samples value or the default.
func (c *TuningConfig) GetMinWindowSamples() int {
	if c.MinWindowSamples == nil {
		return 64
	}
	return *c.MinWindowSamples
}

// GetBatchWorkers returns the batch_workers value or the default.
func (c *TuningConfig) GetBatchWorkers() int {
	if c.BatchWorkers == nil || *c.BatchWorkers == 0 {
		return runtime.NumCPU()
	}
	return *c.BatchWorkers
}

// GetHistoryLimit returns the history_limit value or the default.
func (c *TuningConfig) GetHistoryLimit() int {
	if c.HistoryLimit == nil {
		return 50
	}
	return *c.HistoryLimit
}
