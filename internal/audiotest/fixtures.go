// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Ramp returns frames*channels interleaved samples whose value encodes the
// frame index, so that edits can be checked sample by sample.
func Ramp(frames, channels int) []int16 {
	out := make([]int16, frames*channels)
	for f := range frames {
		for c := range channels {
			out[f*channels+c] = int16(f%30000 + c)
		}
	}
	return out
}

// Constant returns frames*channels samples of value.
func Constant(frames, channels int, value int16) []int16 {
	out := make([]int16, frames*channels)
	for i := range out {
		out[i] = value
	}
	return out
}

// Tone returns a mono sine at frequency and amplitude (0..1).
func Tone(sampleRate, frames int, frequency, amplitude float64) []int16 {
	out := make([]int16, frames)
	for i := range out {
		v := amplitude * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate))
		out[i] = int16(v * 32767)
	}
	return out
}

// WriteWAV writes a 16-bit PCM WAV file named name in dir and returns its path.
func WriteWAV(t testing.TB, dir, name string, sampleRate, channels int, samples []int16) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing %s: %v", path, err)
	}
	return path
}

// ReadWAV reads a 16-bit PCM WAV file back into interleaved samples.
func ReadWAV(t testing.TB, path string) (samples []int16, sampleRate, channels int) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("%s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}

	samples = make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return samples, int(dec.SampleRate), int(dec.NumChans)
}

// TempFiles lists the files in dir whose names match one of the temp suffixes.
func TempFiles(t testing.TB, dir string, suffixes ...string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var out []string
	for _, e := range entries {
		for _, s := range suffixes {
			if strings.Contains(e.Name(), s) {
				out = append(out, e.Name())
				break
			}
		}
	}
	return out
}
