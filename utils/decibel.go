// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// AmplitudeToDecibels converts a linear amplitude to dB relative to reference.
// Zero amplitude yields -Inf; callers clip.
func AmplitudeToDecibels(amplitude, reference float64) float64 {
	return 20 * math.Log10(amplitude/reference)
}

// Clip limits v to [lo, hi]. NaN maps to lo.
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
