// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// mockOggVorbisReader simulates the oggvorbis.Reader for testing. Like the
// real reader, Read reports values, not frames.
type mockOggVorbisReader struct {
	sampleRate int
	channels   int
	samples    []float32
	offset     int
	err        error
}

func (m *mockOggVorbisReader) SampleRate() int { return m.sampleRate }
func (m *mockOggVorbisReader) Channels() int   { return m.channels }

func (m *mockOggVorbisReader) Read(buf []float32) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

func newSource(m *mockOggVorbisReader) *source {
	return &source{dec: m, sampleRate: m.sampleRate, channels: m.channels, frames: int64(len(m.samples) / m.channels)}
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i) / float32(n)
	}
	return out
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("This is not Ogg Vorbis data")},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrNotVorbisFile) {
				t.Errorf("Decode() error = %v, want ErrNotVorbisFile", err)
			}
		})
	}
}

func TestSource_Metadata(t *testing.T) {
	t.Parallel()

	src := newSource(&mockOggVorbisReader{sampleRate: 48000, channels: 2, samples: ramp(200)})

	if src.SampleRate() != 48000 {
		t.Errorf("SampleRate() = %d, want 48000", src.SampleRate())
	}
	if src.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", src.Channels())
	}
	if src.Frames() != 100 {
		t.Errorf("Frames() = %d, want 100", src.Frames())
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		total    int
		step     int
	}{
		{"mono", 1, 100, 7},
		{"stereo aligned", 2, 100, 10},
		{"stereo odd buffer", 2, 100, 7},
		{"six channels", 6, 60, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := ramp(tt.total)
			src := newSource(&mockOggVorbisReader{sampleRate: 8000, channels: tt.channels, samples: want})

			var got []float32
			dst := make([]float32, tt.step)
			for {
				n, err := src.ReadSamples(dst)
				if n%tt.channels != 0 {
					t.Fatalf("ReadSamples() n = %d, not a whole number of frames", n)
				}
				got = append(got, dst[:n]...)
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("ReadSamples() error = %v", err)
				}
			}

			if len(got) != len(want) {
				t.Fatalf("read %d samples, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestSource_ReadSamples_ShortBuffer(t *testing.T) {
	t.Parallel()

	src := newSource(&mockOggVorbisReader{sampleRate: 8000, channels: 2, samples: ramp(10)})
	n, err := src.ReadSamples(make([]float32, 1))
	if n != 0 || err != nil {
		t.Errorf("ReadSamples(1) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	src := newSource(&mockOggVorbisReader{sampleRate: 8000, channels: 1, err: io.ErrUnexpectedEOF})
	if _, err := src.ReadSamples(make([]float32, 8)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	samples := ramp(44100 * 2)
	dst := make([]float32, 4096)

	b.ReportAllocs()
	for range b.N {
		src := newSource(&mockOggVorbisReader{sampleRate: 44100, channels: 2, samples: samples})
		for {
			if _, err := src.ReadSamples(dst); err != nil {
				break
			}
		}
	}
}
