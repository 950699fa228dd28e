// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/internal/audiotest"
)

func readAll(t *testing.T, r *Reader) []int16 {
	t.Helper()

	var out []int16
	for {
		block, err := r.NextBlock()
		out = append(out, block...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("NextBlock() error = %v", err)
		}
	}
}

// unsizedSource hides the length of the wrapped source.
type unsizedSource struct{ audio.Source }

type unsizedDecoder struct {
	frames, channels int
}

func (d unsizedDecoder) Decode(r io.Reader) (audio.Source, error) {
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
	src := audiotest.NewMockSource(8000, d.channels, d.frames, func(i, c int) float32 {
		return float32(i%100+c) / 32768
	})
	return unsizedSource{src}, nil
}

// choppySource returns at most three samples per read, splitting frames.
type choppySource struct {
	data []float32
	pos  int
}

func (s *choppySource) SampleRate() int { return 8000 }
func (s *choppySource) Channels() int   { return 2 }
func (s *choppySource) BufSize() int    { return 3 }
func (s *choppySource) Close() error    { return nil }

func (s *choppySource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(dst[:min(3, len(dst))], s.data[s.pos:])
	s.pos += n
	return n, nil
}

type choppyDecoder struct{ samples []int16 }

func (d choppyDecoder) Decode(r io.Reader) (audio.Source, error) {
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
	data := make([]float32, len(d.samples))
	for i, v := range d.samples {
		data[i] = float32(v) / 32768
	}
	return &choppySource{data: data}, nil
}

func touch(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpen_WAV(t *testing.T) {
	t.Parallel()

	samples := audiotest.Ramp(10000, 2)
	path := audiotest.WriteWAV(t, t.TempDir(), "clip.wav", 44100, 2, samples)

	r, err := Open(context.Background(), path, WithBlockFrames(1000))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.SampleRate() != 44100 || r.Channels() != 2 || r.Frames() != 10000 {
		t.Errorf("Open() = %d Hz, %d ch, %d frames; want 44100 Hz, 2 ch, 10000 frames",
			r.SampleRate(), r.Channels(), r.Frames())
	}

	if diff := cmp.Diff(samples, readAll(t, r)); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_DoesNotModifySource(t *testing.T) {
	t.Parallel()

	path := audiotest.WriteWAV(t, t.TempDir(), "clip.wav", 8000, 1, audiotest.Ramp(500, 1))
	before, _ := os.ReadFile(path)

	r, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	readAll(t, r)
	r.Close()

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("source file changed after reading")
	}
}

func TestReader_Reset(t *testing.T) {
	t.Parallel()

	samples := audiotest.Ramp(3000, 1)
	path := audiotest.WriteWAV(t, t.TempDir(), "clip.wav", 8000, 1, samples)

	r, err := Open(context.Background(), path, WithBlockFrames(256))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	first := readAll(t, r)
	if err := r.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	second := readAll(t, r)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second pass differs (-first +second):\n%s", diff)
	}
}

func TestReader_Skip(t *testing.T) {
	t.Parallel()

	samples := audiotest.Ramp(1000, 2)
	path := audiotest.WriteWAV(t, t.TempDir(), "clip.wav", 8000, 2, samples)

	tests := []struct {
		name  string
		skip  int64
		block int
	}{
		{"inside first block", 10, 64},
		{"block boundary", 128, 64},
		{"across blocks", 333, 64},
		{"nothing", 0, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := Open(context.Background(), path, WithBlockFrames(tt.block))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer r.Close()

			if err := r.Skip(tt.skip); err != nil {
				t.Fatalf("Skip() error = %v", err)
			}
			got := readAll(t, r)
			if diff := cmp.Diff(samples[tt.skip*2:], got); diff != "" {
				t.Errorf("after Skip(%d) (-want +got):\n%s", tt.skip, diff)
			}
		})
	}
}

func TestReader_SkipPastEnd(t *testing.T) {
	t.Parallel()

	path := audiotest.WriteWAV(t, t.TempDir(), "clip.wav", 8000, 1, audiotest.Ramp(100, 1))
	r, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if err := r.Skip(500); err != io.EOF {
		t.Errorf("Skip() error = %v, want io.EOF", err)
	}
}

func TestOpen_CountsUnsizedStreams(t *testing.T) {
	t.Parallel()

	reg := audio.NewRegistry()
	reg.Register("raw", unsizedDecoder{frames: 2500, channels: 2})
	path := touch(t, "clip.raw")

	r, err := Open(context.Background(), path, WithRegistry(reg), WithBlockFrames(300))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.Frames() != 2500 {
		t.Errorf("Frames() = %d, want 2500", r.Frames())
	}
	if got := len(readAll(t, r)); got != 5000 {
		t.Errorf("read %d samples after counting, want 5000", got)
	}
}

func TestReader_SplitFrames(t *testing.T) {
	t.Parallel()

	samples := audiotest.Ramp(101, 2)
	reg := audio.NewRegistry()
	reg.Register("raw", choppyDecoder{samples: samples})
	path := touch(t, "clip.raw")

	r, err := Open(context.Background(), path, WithRegistry(reg), WithBlockFrames(8))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.Frames() != 101 {
		t.Errorf("Frames() = %d, want 101", r.Frames())
	}

	var got []int16
	for {
		block, err := r.NextBlock()
		if len(block)%2 != 0 {
			t.Fatalf("NextBlock() returned %d samples, not whole stereo frames", len(block))
		}
		got = append(got, block...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextBlock() error = %v", err)
		}
	}
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "broken.wav")
	if err := os.WriteFile(garbage, []byte("definitely not a riff file"), 0o644); err != nil {
		t.Fatal(err)
	}
	unknown := filepath.Join(dir, "notes.xyz")
	if err := os.WriteFile(unknown, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"unknown extension", unknown, ErrUnsupportedFormat},
		{"missing file", filepath.Join(dir, "missing.wav"), os.ErrNotExist},
		{"corrupt file", garbage, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Open(context.Background(), tt.path)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Open() error = %v, want *DecodeError", err)
			}
			if de.Path != tt.path {
				t.Errorf("DecodeError.Path = %q, want %q", de.Path, tt.path)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpen_Aborted(t *testing.T) {
	t.Parallel()

	path := audiotest.WriteWAV(t, t.TempDir(), "clip.wav", 8000, 1, audiotest.Ramp(100, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Open(ctx, path); !errors.Is(err, ErrAborted) {
		t.Errorf("Open() error = %v, want ErrAborted", err)
	}
}

func TestReader_AbortedMidStream(t *testing.T) {
	t.Parallel()

	path := audiotest.WriteWAV(t, t.TempDir(), "clip.wav", 8000, 1, audiotest.Ramp(1000, 1))
	ctx, cancel := context.WithCancel(context.Background())
	r, err := Open(ctx, path, WithBlockFrames(100))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if _, err := r.NextBlock(); err != nil {
		t.Fatalf("NextBlock() error = %v", err)
	}
	cancel()
	if _, err := r.NextBlock(); !errors.Is(err, ErrAborted) {
		t.Errorf("NextBlock() after cancel error = %v, want ErrAborted", err)
	}
}

func TestReader_Closed(t *testing.T) {
	t.Parallel()

	path := audiotest.WriteWAV(t, t.TempDir(), "clip.wav", 8000, 1, audiotest.Ramp(10, 1))
	r, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := r.NextBlock(); !errors.Is(err, ErrClosed) {
		t.Errorf("NextBlock() error = %v, want ErrClosed", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry(nil)
	for _, ext := range []string{"wav", ".MP3", "ogg", "aiff"} {
		if _, ok := reg.Get(ext); !ok {
			t.Errorf("Get(%q) not registered", ext)
		}
	}
	if _, ok := reg.GetFile("m4a"); ok {
		t.Error("m4a registered without a codec")
	}
}

func BenchmarkReader_NextBlock(b *testing.B) {
	path := audiotest.WriteWAV(b, b.TempDir(), "clip.wav", 44100, 2, audiotest.Ramp(44100, 2))

	b.ReportAllocs()
	for range b.N {
		r, err := Open(context.Background(), path)
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := r.NextBlock(); err != nil {
				break
			}
		}
		r.Close()
	}
}
