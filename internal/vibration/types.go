// Package vibration implements the signal-processing core for rotating
// machinery fault classification: decimation of raw multi-channel vibration
// recordings, time- and frequency-domain feature extraction, and assembly of
// the fixed-order feature vectors consumed by the trained classifiers.
//
// The feature ordering defined here is frozen. It must match, element for
// element, the column order the classifiers were trained against; changing
// it invalidates every persisted model artifact.
package vibration

import "fmt"

// BaseSampleRate is the acquisition rate of all raw recordings in Hz.
const BaseSampleRate = 50000

// Channel indices within a raw recording. The acquisition hardware writes
// channels in this fixed order.
const (
	ChannelTachometer = iota
	ChannelUnderhangAxial
	ChannelUnderhangRadial
	ChannelUnderhangTangential
	ChannelOverhangAxial
	ChannelOverhangRadial
	ChannelOverhangTangential

	NumChannels = 7
)

// Direction identifies one vibration measurement axis.
type Direction string

const (
	Axial      Direction = "axial"
	Radial     Direction = "radial"
	Tangential Direction = "tangential"
)

// SensorConfig selects which channels feed the feature vector and therefore
// which family of classifiers applies.
type SensorConfig string

const (
	// ThreeAxis combines all three directions into one 84-element vector.
	ThreeAxis SensorConfig = "3axis"
	// SingleAxial, SingleRadial and SingleTangential each produce a
	// 28-element vector from one direction.
	SingleAxial      SensorConfig = "axial"
	SingleRadial     SensorConfig = "radial"
	SingleTangential SensorConfig = "tangential"
)

// SensorConfigs lists all valid configurations.
var SensorConfigs = []SensorConfig{ThreeAxis, SingleAxial, SingleRadial, SingleTangential}

// ParseSensorConfig converts a request string into a SensorConfig.
func ParseSensorConfig(s string) (SensorConfig, error) {
	for _, c := range SensorConfigs {
		if s == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown sensor config %q (valid: 3axis, axial, radial, tangential)", s)
}

// Directions returns the measurement directions the configuration covers,
// in the frozen assembly order.
func (c SensorConfig) Directions() []Direction {
	switch c {
	case ThreeAxis:
		return []Direction{Axial, Radial, Tangential}
	case SingleAxial:
		return []Direction{Axial}
	case SingleRadial:
		return []Direction{Radial}
	case SingleTangential:
		return []Direction{Tangential}
	default:
		return nil
	}
}

// VectorLength returns the feature vector length for the configuration:
// 28 per direction, so 84 for ThreeAxis.
func (c SensorConfig) VectorLength() int {
	return len(c.Directions()) * FeaturesPerDirection
}

// Recording holds one captured multi-channel vibration sample sequence at
// the base acquisition rate. Channels follow the fixed channel index order.
// A Recording is never mutated after capture.
type Recording struct {
	// Channels holds one amplitude sequence per physical channel. All
	// channels have equal length.
	Channels [][]float64
}

// Length returns the per-channel sample count, or 0 for an empty recording.
func (r *Recording) Length() int {
	if len(r.Channels) == 0 {
		return 0
	}
	return len(r.Channels[0])
}

// Validate checks the recording has the expected channel count and that all
// channels are the same length.
func (r *Recording) Validate() error {
	if len(r.Channels) != NumChannels {
		return fmt.Errorf("recording has %d channels, want %d", len(r.Channels), NumChannels)
	}
	n := len(r.Channels[0])
	for i, ch := range r.Channels {
		if len(ch) != n {
			return fmt.Errorf("channel %d has %d samples, channel 0 has %d", i, len(ch), n)
		}
	}
	return nil
}
