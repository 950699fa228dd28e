// SPDX-License-Identifier: EPL-2.0

package levels

import (
	"fmt"
	"math"
)

// DefaultBins is used by FitToDuration when the length is unknown or too short.
const DefaultBins = 100

// Policy decides how many bins a waveform gets.
type Policy interface {
	// Bins returns the target bin count for a stream of frames at sampleRate.
	// It is always at least 1.
	Bins(frames int64, sampleRate int) int
	// String identifies the policy in cache keys.
	String() string
}

// FitToWidth gives one bin per bar of Spacing pixels across Width pixels.
// The count is exact: leftover samples fold into the last bar.
type FitToWidth struct {
	Width   float64
	Spacing float64
}

func (p FitToWidth) Bins(int64, int) int {
	if p.Spacing <= 0 || p.Width <= 0 {
		return 1
	}
	return max(1, int(math.Floor(p.Width/p.Spacing)))
}

func (FitToWidth) exact() bool { return true }

func (p FitToWidth) String() string {
	return fmt.Sprintf("width:%g/%g", p.Width, p.Spacing)
}

// exactPolicy marks policies whose bin count is an upper limit rather than a
// target, so a remainder never adds a bin.
type exactPolicy interface {
	exact() bool
}

// FitToDuration gives one bin per 100 ms of audio. Leftover samples form one
// more, undersized bin.
type FitToDuration struct{}

func (FitToDuration) Bins(frames int64, sampleRate int) int {
	perBin := int64(sampleRate / 10)
	if perBin <= 0 || frames <= 0 {
		return DefaultBins
	}
	bins := frames / perBin
	if bins == 0 {
		return DefaultBins
	}
	return int(bins)
}

func (FitToDuration) String() string { return "duration" }
