// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/utils"
)

// bytesPerFrame of go-mp3 output: always stereo 16-bit.
const bytesPerFrame = 4

// mp3Reader is the subset of gomp3.Decoder the source needs.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	closer     io.Closer
	sampleRate int
	channels   int
	frames     int64
	buf        []byte
	// odd trailing byte carried to the next read
	carry []byte
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Frames() int64   { return s.frames }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("closing mp3 source: %w", err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	off := copy(s.buf, s.carry)
	s.carry = s.carry[:0]

	n, err := s.dec.Read(s.buf[off:])
	n += off
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading mp3 frames: %w", err)
	}

	samples := n / 2
	if n%2 == 1 {
		s.carry = append(s.carry, s.buf[n-1])
	}
	if samples == 0 {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, nil
	}

	for i := range samples {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = utils.Int16ToFloat32(v)
	}

	return samples, err
}

// Decoder reads MPEG-1/2 Layer III streams.
type Decoder struct{}

// Decode always yields stereo output. The length is known only when r can
// seek; otherwise Frames reports 0.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMp3File, err)
	}

	src := &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   2,
		buf:        make([]byte, 8192),
	}
	if l := dec.Length(); l > 0 {
		src.frames = l / bytesPerFrame
	}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src, nil
}
