// SPDX-License-Identifier: EPL-2.0

package utils

// PCM16Scale converts between int16 PCM and float samples in [-1,1].
const PCM16Scale = 32768.0

// Float32ToInt16 converts a float sample to 16-bit PCM. Samples produced by
// Int16ToFloat32 convert back exactly; anything outside the int16 range clamps.
func Float32ToInt16(x float32) int16 {
	v := x * PCM16Scale
	if v >= 32767 {
		return 32767
	}
	if v <= -32768 {
		return -32768
	}
	if v < 0 {
		return int16(v - 0.5)
	}
	return int16(v + 0.5)
}

// Int16ToFloat32 converts 16-bit PCM to a float sample in [-1,1).
func Int16ToFloat32(s int16) float32 {
	return float32(s) / PCM16Scale
}
