// SPDX-License-Identifier: EPL-2.0

package compose

import (
	"context"
	"errors"
	"io"

	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/pcm"
	"github.com/ik5/audclip/utils"
)

// segmentSource plays frames of an open reader, limited to a segment.
type segmentSource struct {
	r    *pcm.Reader
	left int64 // samples
	buf  []int16
	eof  bool
}

func (s *segmentSource) SampleRate() int { return s.r.SampleRate() }
func (s *segmentSource) Channels() int   { return s.r.Channels() }
func (s *segmentSource) BufSize() int    { return pcm.DefaultBlockFrames * s.r.Channels() }
func (s *segmentSource) Close() error    { return s.r.Close() }

func (s *segmentSource) ReadSamples(dst []float32) (int, error) {
	if len(s.buf) == 0 {
		if s.left <= 0 || s.eof {
			return 0, io.EOF
		}
		block, err := s.r.NextBlock()
		if err != nil && err != io.EOF {
			return 0, err
		}
		s.eof = err == io.EOF
		if int64(len(block)) > s.left {
			block = block[:s.left]
		}
		s.buf = block
		if len(s.buf) == 0 {
			return 0, io.EOF
		}
	}

	ch := s.r.Channels()
	n := min(len(dst)-len(dst)%ch, len(s.buf))
	for i := range n {
		dst[i] = utils.Int16ToFloat32(s.buf[i])
	}
	s.buf = s.buf[n:]
	s.left -= int64(n)
	return n, nil
}

type openFunc func(ctx context.Context, path string) (*pcm.Reader, error)

// timelineSource streams a composition as one source at its output format,
// opening each segment's file only while it plays.
type timelineSource struct {
	ctx      context.Context
	open     openFunc
	segments []Segment
	rate     int
	channels int
	frames   int64

	next      int
	cur       audio.Source
	delivered int64 // samples
}

func newTimelineSource(ctx context.Context, c *Composition, open openFunc) *timelineSource {
	s := &timelineSource{
		ctx:      ctx,
		open:     open,
		segments: c.Segments(),
		rate:     c.SampleRate(),
		channels: c.Channels(),
	}
	exact := true
	for _, seg := range s.segments {
		if seg.Track.SampleRate != s.rate {
			exact = false
		}
	}
	if exact {
		s.frames = c.Len()
	}
	return s
}

func (s *timelineSource) SampleRate() int { return s.rate }
func (s *timelineSource) Channels() int   { return s.channels }
func (s *timelineSource) BufSize() int    { return pcm.DefaultBlockFrames * s.channels }

// Frames is exact when no segment needs resampling and 0 otherwise.
func (s *timelineSource) Frames() int64 { return s.frames }

// Delivered is the number of frames read so far.
func (s *timelineSource) Delivered() int64 { return s.delivered / int64(s.channels) }

func (s *timelineSource) openSegment(seg Segment) (audio.Source, error) {
	r, err := s.open(s.ctx, seg.Track.Path)
	if err != nil {
		return nil, err
	}
	if err := r.Skip(seg.Start); err != nil && err != io.EOF {
		r.Close()
		return nil, err
	}

	var src audio.Source = &segmentSource{r: r, left: seg.Len() * int64(r.Channels())}
	conformed, err := audio.Conform(src, s.rate, s.channels)
	if err != nil {
		r.Close()
		return nil, errors.Join(ErrIncompatibleSources, err)
	}
	return conformed, nil
}

func (s *timelineSource) ReadSamples(dst []float32) (int, error) {
	dst = dst[:len(dst)-len(dst)%s.channels]

	n := 0
	for n < len(dst) {
		if s.cur == nil {
			if s.next >= len(s.segments) {
				break
			}
			src, err := s.openSegment(s.segments[s.next])
			if err != nil {
				return n, err
			}
			s.next++
			s.cur = src
		}

		m, err := s.cur.ReadSamples(dst[n:])
		n += m
		if err == io.EOF {
			_ = s.cur.Close()
			s.cur = nil
			continue
		}
		if err != nil {
			s.delivered += int64(n)
			return n, err
		}
		if m == 0 {
			break
		}
	}

	s.delivered += int64(n)
	if n == 0 && s.cur == nil && s.next >= len(s.segments) {
		return 0, io.EOF
	}
	return n, nil
}

func (s *timelineSource) Close() error {
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close()
	s.cur = nil
	return err
}
