// SPDX-License-Identifier: EPL-2.0

package levels

import (
	"time"
)

const (
	// NoiseFloor is the lowest level in dB.
	NoiseFloor = -80.0
	// FullScale is the highest level in dB.
	FullScale = 0.0
	// NormalizationRange is the fixed divisor of the percentage scale. It is
	// not the observed max-min span, so bars keep their height while a
	// recording grows.
	NormalizationRange = 85.0
	// Reference is the amplitude of a full scale 16-bit sample.
	Reference = 32768.0
)

// LevelData is a waveform ready for rendering.
//
// RawLevels holds clipped dB values; PercentageLevels[i] is
// (RawLevels[i]-min(RawLevels))/NormalizationRange and may leave [0,1].
type LevelData struct {
	RawLevels        []float32     `json:"raw_levels"`
	PercentageLevels []float32     `json:"percentage_levels"`
	Duration         time.Duration `json:"duration"`
}

// Len is the number of bins.
func (d LevelData) Len() int { return len(d.RawLevels) }

// IsEmpty reports whether d has no bins.
func (d LevelData) IsEmpty() bool { return len(d.RawLevels) == 0 }

// New builds LevelData from raw dB values, which it takes ownership of.
func New(raw []float32, duration time.Duration) LevelData {
	return LevelData{
		RawLevels:        raw,
		PercentageLevels: Normalize(raw),
		Duration:         duration,
	}
}

// Normalize maps dB values to percentage space.
func Normalize(raw []float32) []float32 {
	if len(raw) == 0 {
		return []float32{}
	}

	lowest := raw[0]
	for _, v := range raw[1:] {
		lowest = min(lowest, v)
	}

	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = (v - lowest) / NormalizationRange
	}
	return out
}

// Append returns a copy of data extended by one bin of db lasting
// binDuration. The percentage scale is recomputed over every bin since the
// minimum may move.
func Append(data LevelData, db float32, binDuration time.Duration) LevelData {
	raw := make([]float32, len(data.RawLevels), len(data.RawLevels)+1)
	copy(raw, data.RawLevels)
	raw = append(raw, clip(db))

	return New(raw, data.Duration+binDuration)
}

func clip(db float32) float32 {
	if db != db || db < NoiseFloor {
		return NoiseFloor
	}
	return min(db, FullScale)
}
