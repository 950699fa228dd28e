// SPDX-License-Identifier: EPL-2.0

package compose

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// TimeRange is a span of a timeline, end exclusive.
type TimeRange struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// FrameRange is a span of a timeline in frames, end exclusive.
type FrameRange struct {
	Start, End int64
}

// FramesAt converts d to the nearest frame count at sampleRate.
func FramesAt(d time.Duration, sampleRate int) int64 {
	return int64(math.Round(d.Seconds() * float64(sampleRate)))
}

// DurationOf is the playing time of frames at sampleRate.
func DurationOf(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(frames) * float64(time.Second) / float64(sampleRate)))
}

// Frames converts r to frames at sampleRate.
func (r TimeRange) Frames(sampleRate int) FrameRange {
	return FrameRange{Start: FramesAt(r.Start, sampleRate), End: FramesAt(r.End, sampleRate)}
}

// Track describes a decodable source file.
type Track struct {
	Path       string
	SampleRate int
	Channels   int
	Frames     int64
}

// Segment is a slice [Start, End) of a track, in the track's own frames.
type Segment struct {
	Track      Track
	Start, End int64
}

// Len is the segment length in its track's frames.
func (s Segment) Len() int64 { return s.End - s.Start }

// Composition is an editable timeline of segments. The first inserted track
// fixes the output sample rate and channel count; later tracks are converted
// on render. Positions are frames at the output sample rate.
type Composition struct {
	segments   []Segment
	sampleRate int
	channels   int
}

// NewComposition returns an empty timeline.
func NewComposition() *Composition {
	return &Composition{}
}

// SampleRate of the rendered output.
func (c *Composition) SampleRate() int { return c.sampleRate }

// Channels of the rendered output.
func (c *Composition) Channels() int { return c.channels }

// Segments returns a copy of the timeline.
func (c *Composition) Segments() []Segment { return slices.Clone(c.segments) }

// Insert appends the whole of t.
func (c *Composition) Insert(t Track) error {
	if t.SampleRate <= 0 || t.Channels <= 0 {
		return fmt.Errorf("%w: %s has no audio format", ErrIncompatibleSources, t.Path)
	}
	if len(c.segments) == 0 && c.sampleRate == 0 {
		c.sampleRate = t.SampleRate
		c.channels = t.Channels
	}
	if t.Channels != c.channels && c.channels != 1 && t.Channels != 1 {
		return fmt.Errorf("%w: %s has %d channels, timeline has %d",
			ErrIncompatibleSources, t.Path, t.Channels, c.channels)
	}
	if t.Frames > 0 {
		c.segments = append(c.segments, Segment{Track: t, End: t.Frames})
	}
	return nil
}

// toOutput converts a length in the track's frames to output frames.
func (c *Composition) toOutput(t Track, n int64) int64 {
	if t.SampleRate == c.sampleRate {
		return n
	}
	return n * int64(c.sampleRate) / int64(t.SampleRate)
}

// toTrack converts a length in output frames to the track's frames.
func (c *Composition) toTrack(t Track, n int64) int64 {
	if t.SampleRate == c.sampleRate {
		return n
	}
	return n * int64(t.SampleRate) / int64(c.sampleRate)
}

// Len is the timeline length in output frames.
func (c *Composition) Len() int64 {
	var n int64
	for _, s := range c.segments {
		n += c.toOutput(s.Track, s.Len())
	}
	return n
}

// Duration is the playing time of the timeline.
func (c *Composition) Duration() time.Duration {
	return DurationOf(c.Len(), c.sampleRate)
}

func (c *Composition) check(r FrameRange) error {
	if r.End <= r.Start {
		return fmt.Errorf("%w: %d..%d", ErrEmptyRange, r.Start, r.End)
	}
	if r.Start < 0 || r.End > c.Len() {
		return fmt.Errorf("%w: %d..%d of %d frames", ErrRangeOutOfBounds, r.Start, r.End, c.Len())
	}
	return nil
}

// RemoveRange deletes r from the timeline. Everything after r moves back by
// its length.
func (c *Composition) RemoveRange(r FrameRange) error {
	if err := c.check(r); err != nil {
		return err
	}

	out := make([]Segment, 0, len(c.segments)+1)
	var pos int64
	for _, s := range c.segments {
		segStart := pos
		segEnd := pos + c.toOutput(s.Track, s.Len())
		pos = segEnd

		if segEnd <= r.Start || segStart >= r.End {
			out = append(out, s)
			continue
		}
		if segStart < r.Start {
			head := s
			head.End = s.Start + c.toTrack(s.Track, r.Start-segStart)
			if head.Len() > 0 {
				out = append(out, head)
			}
		}
		if segEnd > r.End {
			tail := s
			tail.Start = s.Start + c.toTrack(s.Track, r.End-segStart)
			if tail.Len() > 0 {
				out = append(out, tail)
			}
		}
	}
	c.segments = out
	return nil
}

// ExciseOrder validates ranges against a timeline of length frames and
// returns them in the order they must be removed: latest start first, so
// earlier removals never shift a range still waiting to be removed.
func ExciseOrder(ranges []FrameRange, length int64) ([]FrameRange, error) {
	ordered := slices.Clone(ranges)
	for _, r := range ordered {
		if r.End <= r.Start {
			return nil, fmt.Errorf("%w: %d..%d", ErrEmptyRange, r.Start, r.End)
		}
		if r.Start < 0 || r.End > length {
			return nil, fmt.Errorf("%w: %d..%d of %d frames", ErrRangeOutOfBounds, r.Start, r.End, length)
		}
	}

	slices.SortFunc(ordered, func(a, b FrameRange) int {
		switch {
		case a.Start > b.Start:
			return -1
		case a.Start < b.Start:
			return 1
		}
		return 0
	})
	for i := 1; i < len(ordered); i++ {
		if ordered[i].End > ordered[i-1].Start {
			return nil, fmt.Errorf("%w: %d..%d and %d..%d", ErrOverlappingRanges,
				ordered[i].Start, ordered[i].End, ordered[i-1].Start, ordered[i-1].End)
		}
	}
	return ordered, nil
}

// Excise removes every range, given in timeline coordinates before any
// removal, in any order. Nothing changes when a range is invalid.
func (c *Composition) Excise(ranges []FrameRange) error {
	ordered, err := ExciseOrder(ranges, c.Len())
	if err != nil {
		return err
	}
	for _, r := range ordered {
		if err := c.RemoveRange(r); err != nil {
			return err
		}
	}
	return nil
}
