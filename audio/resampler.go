// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"math"
)

// Resampler streams from src to a target sample rate using Catmull-Rom
// interpolation. It works on interleaved samples and preserves the channel count.
// A one-pole low-pass runs ahead of the interpolation when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// window around the current input frame i: i-1, i, i+1, i+2
	win   [4][]float32
	valid [4]bool

	// fractional position between win[1] and win[2]
	pos float64

	srcBuf []float32
	eof    bool
	primed bool

	filterState  []float32
	filterPrimed bool
	useFilter    bool
	filterAlpha  float32
}

// NewResampler converts src to dstRate.
func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       float64(src.SampleRate()) / float64(dstRate),
		channels:    channels,
		srcBuf:      make([]float32, channels),
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}
	r.useFilter = r.ratio > 1.0

	for i := range r.win {
		r.win[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

// Frames estimates the output length from the source length.
func (r *Resampler) Frames() int64 {
	l, ok := r.src.(Lengther)
	if !ok || l.Frames() <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(l.Frames()) / r.ratio))
}

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("closing resampler source: %w", err)
	}
	return nil
}

// pull reads one frame from the source into dst.
func (r *Resampler) pull(dst []float32) (bool, error) {
	if r.eof {
		return false, nil
	}

	n, err := r.src.ReadSamples(r.srcBuf)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading resampler source: %w", err)
	}
	if err == io.EOF || n == 0 {
		r.eof = true
	}
	if n < r.channels {
		return false, nil
	}

	copy(dst, r.srcBuf)
	if r.useFilter {
		if !r.filterPrimed {
			copy(r.filterState, dst)
			r.filterPrimed = true
		}
		for c := range r.channels {
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}
	return true, nil
}

func (r *Resampler) prime() error {
	r.primed = true

	ok, err := r.pull(r.win[1])
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	// no frame before the first one; repeat it
	copy(r.win[0], r.win[1])
	r.valid[1] = true

	for k := 2; k < len(r.win); k++ {
		if r.valid[k], err = r.pull(r.win[k]); err != nil {
			return err
		}
		if !r.valid[k] {
			copy(r.win[k], r.win[k-1])
		}
	}
	return nil
}

func (r *Resampler) advance() error {
	copy(r.win[0], r.win[1])
	copy(r.win[1], r.win[2])
	copy(r.win[2], r.win[3])
	r.valid[0], r.valid[1], r.valid[2] = r.valid[1], r.valid[2], r.valid[3]

	var err error
	if r.valid[3], err = r.pull(r.win[3]); err != nil {
		return err
	}
	if !r.valid[3] {
		copy(r.win[3], r.win[2])
	}
	if !r.valid[1] {
		return io.EOF
	}
	return nil
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}

		if !r.valid[1] {
			return written * r.channels, io.EOF
		}

		alpha := float32(r.pos)
		for c := range r.channels {
			dst[written*r.channels+c] = cubic(r.win[0][c], r.win[1][c], r.win[2][c], r.win[3][c], alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}

// cubic is a Catmull-Rom spline between y1 and y2; x is in [0,1].
func cubic(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}
