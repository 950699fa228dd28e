// SPDX-License-Identifier: EPL-2.0

package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audclip/utils"
)

// ErrInvalidFormat indicates a capture format without a rate or channels.
var ErrInvalidFormat = errors.New("invalid capture format")

// RawSource reads interleaved signed 16-bit little-endian PCM, the format
// capture tools such as arecord and ffmpeg -f s16le write to a pipe.
type RawSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	buf        []byte
	carry      []byte
}

// NewRawSource wraps r. Closing the source closes r when it is an io.Closer.
func NewRawSource(r io.Reader, sampleRate, channels int) (*RawSource, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz x %d", ErrInvalidFormat, sampleRate, channels)
	}
	return &RawSource{
		r:          r,
		sampleRate: sampleRate,
		channels:   channels,
		buf:        make([]byte, 8192),
	}, nil
}

func (s *RawSource) SampleRate() int { return s.sampleRate }
func (s *RawSource) Channels() int   { return s.channels }
func (s *RawSource) BufSize() int    { return len(s.buf) / 2 }

func (s *RawSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *RawSource) ReadSamples(dst []float32) (int, error) {
	want := len(dst) * 2
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	buf := s.buf[:want]

	n := copy(buf, s.carry)
	s.carry = s.carry[:0]

	m, err := s.r.Read(buf[n:])
	n += m

	// keep a trailing odd byte for the next read
	if n%2 == 1 {
		s.carry = append(s.carry, buf[n-1])
		n--
	}

	samples := n / 2
	for i := range samples {
		dst[i] = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	if err == io.EOF {
		return samples, io.EOF
	}
	if err != nil {
		return samples, fmt.Errorf("reading capture: %w", err)
	}
	return samples, nil
}
