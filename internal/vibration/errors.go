package vibration

import "errors"

// Error kinds surfaced by the signal core. All are recoverable per item:
// batch processing records them against the offending item and continues.
var (
	// ErrInsufficientSamples indicates a window too short after decimation
	// to compute meaningful statistics and spectra.
	ErrInsufficientSamples = errors.New("insufficient samples after decimation")

	// ErrFeatureComputation indicates degenerate input (non-finite raw
	// samples) that the extractors refuse to process.
	ErrFeatureComputation = errors.New("feature computation failed")
)
