// SPDX-License-Identifier: EPL-2.0

// Package levels turns audio into waveform levels.
//
// A stream is cut into bins of SamplesPerBin interleaved samples, each bin is
// rectified and box-filter averaged, converted to dB against full scale
// 16-bit and clipped to [-80, 0]. Samples left over after the last full bin
// form one shorter bin. The dB values are then mapped to a percentage scale
// with the fixed NormalizationRange of 85 dB.
//
// The bin count comes from a Policy: FitToWidth for a fixed number of bars
// on screen, FitToDuration for one bin per 100 ms.
//
// Append grows LevelData one bin at a time while recording.
package levels
