// SPDX-License-Identifier: EPL-2.0

package levels

import (
	"io"
	"math"
	"time"

	"github.com/ik5/audclip/utils"
)

// BlockReader is a stream of interleaved 16-bit blocks, such as *pcm.Reader.
type BlockReader interface {
	SampleRate() int
	Channels() int
	Frames() int64
	NextBlock() ([]int16, error)
}

// SamplesPerBin is max(1, channels*frames/bins).
func SamplesPerBin(channels int, frames int64, bins int) int {
	if bins <= 0 {
		return 1
	}
	return int(max(1, int64(channels)*frames/int64(bins)))
}

// Decibels converts a linear amplitude to dB against Reference, clipped to
// [NoiseFloor, FullScale].
func Decibels(amplitude float64) float32 {
	return float32(utils.Clip(utils.AmplitudeToDecibels(amplitude, Reference), NoiseFloor, FullScale))
}

// BlockLevel is the clipped dB level of samples averaged as one bin. The
// recorder uses it for live bins.
func BlockLevel(samples []int16) float32 {
	if len(samples) == 0 {
		return NoiseFloor
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return Decibels(sum / float64(len(samples)))
}

// binner box-filters rectified samples into fixed-size bins. With a limit,
// the last bin absorbs every sample past limit-1 full bins.
type binner struct {
	size   int
	limit  int
	weight float64
	sum    float64
	filled int
	out    []float32
}

func newBinner(size, capHint, limit int) *binner {
	return &binner{
		size:   size,
		limit:  limit,
		weight: 1 / float64(size),
		out:    make([]float32, 0, capHint+1),
	}
}

func (b *binner) add(block []int16) {
	for _, s := range block {
		b.sum += math.Abs(float64(s))
		b.filled++
		if b.filled >= b.size && (b.limit <= 0 || len(b.out) < b.limit-1) {
			b.out = append(b.out, Decibels(b.sum*b.weight))
			b.sum = 0
			b.filled = 0
		}
	}
}

// flush emits the last bin, averaged over exactly its samples.
func (b *binner) flush() []float32 {
	if b.filled > 0 {
		b.out = append(b.out, Decibels(b.sum/float64(b.filled)))
		b.sum = 0
		b.filled = 0
	}
	return b.out
}

// Extract reads r to the end and downsamples it to the bin count chosen by
// policy. On a read error it returns the bins computed so far together with
// the error.
func Extract(r BlockReader, policy Policy) (LevelData, error) {
	frames := r.Frames()
	rate := r.SampleRate()
	bins := policy.Bins(frames, rate)

	var limit int
	if p, ok := policy.(exactPolicy); ok && p.exact() {
		limit = bins
	}
	b := newBinner(SamplesPerBin(r.Channels(), frames, bins), bins, limit)

	var duration time.Duration
	if rate > 0 {
		duration = time.Duration(float64(frames) / float64(rate) * float64(time.Second))
	}

	for {
		block, err := r.NextBlock()
		b.add(block)
		if err == io.EOF {
			break
		}
		if err != nil {
			return New(b.flush(), duration), err
		}
	}

	return New(b.flush(), duration), nil
}
