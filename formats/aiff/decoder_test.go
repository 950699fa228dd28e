// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audclip/audio"
)

// mockAiffReader simulates the aiff.Decoder for testing
type mockAiffReader struct {
	sampleRate int
	channels   int
	samples    []int
	offset     int
	err        error
}

func (m *mockAiffReader) Format() *goaudio.Format {
	return &goaudio.Format{SampleRate: m.sampleRate, NumChannels: m.channels}
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

func newSource(m *mockAiffReader) *source {
	return &source{dec: m, sampleRate: m.sampleRate, channels: m.channels}
}

func writeAIFF(t *testing.T, rate, channels int, samples []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.aiff")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := aiff.NewEncoder(f, rate, 16, channels)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: rate, NumChannels: channels},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("aiff Write() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("aiff Close() error = %v", err)
	}
	return path
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("This is not AIFF data")},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrNotAiffFile) {
				t.Errorf("Decode() error = %v, want ErrNotAiffFile", err)
			}
		})
	}
}

func TestDecoder_RoundTrip(t *testing.T) {
	t.Parallel()

	samples := []int{0, 16384, -16384, 32767, -32768, 100}
	path := writeAIFF(t, 22050, 2, samples)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	src, err := Decoder{}.Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 22050 || src.Channels() != 2 {
		t.Errorf("decoded %d Hz x %d, want 22050 Hz x 2", src.SampleRate(), src.Channels())
	}
	if got := src.(audio.Lengther).Frames(); got != 3 {
		t.Errorf("Frames() = %d, want 3", got)
	}

	dst := make([]float32, 16)
	n, err := src.ReadSamples(dst)
	if err != nil && err != io.EOF {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if n != len(samples) {
		t.Fatalf("ReadSamples() n = %d, want %d", n, len(samples))
	}
	for i, s := range samples {
		if want := float32(s) / 32768; dst[i] != want {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestSource_Metadata(t *testing.T) {
	t.Parallel()

	src := newSource(&mockAiffReader{sampleRate: 44100, channels: 2, samples: make([]int, 100)})
	src.frames = 50

	if src.SampleRate() != 44100 {
		t.Errorf("SampleRate() = %d, want 44100", src.SampleRate())
	}
	if src.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", src.Channels())
	}
	if src.Frames() != 50 {
		t.Errorf("Frames() = %d, want 50", src.Frames())
	}
	if src.BufSize() != 4096 {
		t.Errorf("BufSize() = %d, want 4096 before the first read", src.BufSize())
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
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
		{"mono", 1, 50, 8},
		{"stereo", 2, 50, 10},
		{"stereo odd buffer", 2, 50, 9},
		{"exact fit", 1, 16, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			samples := make([]int, tt.total)
			for i := range samples {
				samples[i] = i*600 - 15000
			}
			src := newSource(&mockAiffReader{sampleRate: 8000, channels: tt.channels, samples: samples})

			var got []float32
			dst := make([]float32, tt.step)
			for range 1000 {
				n, err := src.ReadSamples(dst)
				got = append(got, dst[:n]...)
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("ReadSamples() error = %v", err)
				}
			}

			if len(got) != len(samples) {
				t.Fatalf("read %d samples, want %d", len(got), len(samples))
			}
			for i, s := range samples {
				if got[i] != float32(s)/32768 {
					t.Fatalf("sample %d = %v, want %v", i, got[i], float32(s)/32768)
				}
			}
		})
	}
}

func TestSource_ReadSamples_EmptyBuffer(t *testing.T) {
	t.Parallel()

	src := newSource(&mockAiffReader{sampleRate: 8000, channels: 2, samples: make([]int, 10)})
	n, err := src.ReadSamples(nil)
	if n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	src := newSource(&mockAiffReader{sampleRate: 8000, channels: 1, err: io.ErrUnexpectedEOF})
	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want io.ErrUnexpectedEOF", err)
	}
}
