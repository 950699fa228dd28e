// SPDX-License-Identifier: EPL-2.0

package levels

import (
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// sliceReader serves samples in blocks of blockSize, failing with failErr
// once failAt samples were delivered.
type sliceReader struct {
	rate      int
	channels  int
	frames    int64
	samples   []int16
	blockSize int
	pos       int
	failAt    int
	failErr   error
	closed    bool
}

func newSliceReader(rate, channels int, samples []int16) *sliceReader {
	return &sliceReader{
		rate:      rate,
		channels:  channels,
		frames:    int64(len(samples) / channels),
		samples:   samples,
		blockSize: 1000,
		failAt:    -1,
	}
}

func (r *sliceReader) SampleRate() int { return r.rate }
func (r *sliceReader) Channels() int   { return r.channels }
func (r *sliceReader) Frames() int64   { return r.frames }
func (r *sliceReader) Close() error    { r.closed = true; return nil }

func (r *sliceReader) NextBlock() ([]int16, error) {
	if r.failAt >= 0 && r.pos >= r.failAt {
		return nil, r.failErr
	}
	end := min(r.pos+r.blockSize, len(r.samples))
	block := r.samples[r.pos:end]
	r.pos = end
	if r.pos == len(r.samples) {
		return block, io.EOF
	}
	return block, nil
}

func constant(n int, v int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func checkInvariants(t *testing.T, d LevelData) {
	t.Helper()

	if len(d.RawLevels) != len(d.PercentageLevels) {
		t.Fatalf("len(raw) = %d, len(percentage) = %d", len(d.RawLevels), len(d.PercentageLevels))
	}
	if len(d.RawLevels) == 0 {
		return
	}

	lowest := d.RawLevels[0]
	for _, v := range d.RawLevels {
		lowest = min(lowest, v)
	}
	for i, v := range d.RawLevels {
		if v < NoiseFloor || v > FullScale {
			t.Errorf("raw[%d] = %v outside [%v, %v]", i, v, NoiseFloor, FullScale)
		}
		if want := (v - lowest) / NormalizationRange; d.PercentageLevels[i] != want {
			t.Errorf("percentage[%d] = %v, want %v", i, d.PercentageLevels[i], want)
		}
	}
}

func TestFitToWidth_Bins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		policy FitToWidth
		want   int
	}{
		{FitToWidth{Width: 300, Spacing: 6}, 50},
		{FitToWidth{Width: 301, Spacing: 6}, 50},
		{FitToWidth{Width: 375, Spacing: 4.5}, 83},
		{FitToWidth{Width: 3, Spacing: 6}, 1},
		{FitToWidth{Width: 300, Spacing: 0}, 1},
	}

	for _, tt := range tests {
		if got := tt.policy.Bins(1000, 44100); got != tt.want {
			t.Errorf("%v.Bins() = %d, want %d", tt.policy, got, tt.want)
		}
	}
}

func TestFitToDuration_Bins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		frames int64
		rate   int
		want   int
	}{
		{"30 s at 44.1 kHz", 44100 * 30, 44100, 300},
		{"10 s at 44.1 kHz", 441000, 44100, 100},
		{"partial bin dropped", 4410*7 + 4000, 44100, 7},
		{"shorter than one bin", 100, 44100, DefaultBins},
		{"empty", 0, 44100, DefaultBins},
		{"unreadable rate", 1000, 0, DefaultBins},
		{"rate below 10 Hz", 1000, 5, DefaultBins},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := (FitToDuration{}).Bins(tt.frames, tt.rate); got != tt.want {
				t.Errorf("Bins(%d, %d) = %d, want %d", tt.frames, tt.rate, got, tt.want)
			}
		})
	}
}

func TestSamplesPerBin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		channels int
		frames   int64
		bins     int
		want     int
	}{
		{1, 441000, 100, 4410},
		{2, 441000, 100, 8820},
		{1, 10, 100, 1},
		{1, 1000, 0, 1},
	}

	for _, tt := range tests {
		if got := SamplesPerBin(tt.channels, tt.frames, tt.bins); got != tt.want {
			t.Errorf("SamplesPerBin(%d, %d, %d) = %d, want %d", tt.channels, tt.frames, tt.bins, got, tt.want)
		}
	}
}

func TestDecibels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amp  float64
		want float64
	}{
		{32768, 0},
		{16384, 20 * math.Log10(0.5)},
		{3276.8, -20},
		{0, NoiseFloor},
		{1, NoiseFloor},
		{65536, FullScale},
	}

	for _, tt := range tests {
		got := Decibels(tt.amp)
		if math.Abs(float64(got)-tt.want) > 1e-4 {
			t.Errorf("Decibels(%v) = %v, want %v", tt.amp, got, tt.want)
		}
	}
}

func TestBlockLevel(t *testing.T) {
	t.Parallel()

	if got := BlockLevel(nil); got != NoiseFloor {
		t.Errorf("BlockLevel(nil) = %v, want %v", got, NoiseFloor)
	}
	// rectified: |-3276| and |3276| average to 3276
	got := BlockLevel([]int16{3276, -3276, 3276, -3276})
	want := float32(20 * math.Log10(3276.0/32768))
	if math.Abs(float64(got-want)) > 1e-4 {
		t.Errorf("BlockLevel() = %v, want %v", got, want)
	}
}

func TestExtract_ConstantSignal(t *testing.T) {
	t.Parallel()

	r := newSliceReader(8000, 1, constant(8000, 16384))
	d, err := Extract(r, FitToWidth{Width: 100, Spacing: 10})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	checkInvariants(t, d)
	if d.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", d.Len())
	}
	want := float32(20 * math.Log10(0.5))
	for i, v := range d.RawLevels {
		if math.Abs(float64(v-want)) > 1e-4 {
			t.Errorf("raw[%d] = %v, want %v", i, v, want)
		}
		if d.PercentageLevels[i] != 0 {
			t.Errorf("percentage[%d] = %v, want 0 for a flat signal", i, d.PercentageLevels[i])
		}
	}
	if d.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", d.Duration)
	}
}

func TestExtract_Silence(t *testing.T) {
	t.Parallel()

	d, err := Extract(newSliceReader(8000, 2, constant(1600, 0)), FitToDuration{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	checkInvariants(t, d)
	for i, v := range d.RawLevels {
		if v != NoiseFloor {
			t.Errorf("raw[%d] = %v, want noise floor", i, v)
		}
	}
}

// binCount asks for a fixed number of bins and lets a remainder add one.
type binCount int

func (n binCount) Bins(int64, int) int { return int(n) }
func (n binCount) String() string      { return "count" }

func TestExtract_RemainderBin(t *testing.T) {
	t.Parallel()

	// 10 samples, samplesPerBin = 3
	samples := []int16{3276, 3276, 3276, 0, 0, 0, 3276, 3276, 3276, 16384}

	tests := []struct {
		name   string
		policy Policy
		want   []float32
	}{
		{
			name:   "undersized last bin",
			policy: binCount(3),
			want:   []float32{Decibels(3276), NoiseFloor, Decibels(3276), Decibels(16384)},
		},
		{
			name:   "width folds remainder",
			policy: FitToWidth{Width: 3, Spacing: 1},
			want:   []float32{Decibels(3276), NoiseFloor, Decibels((3*3276 + 16384) / 4.0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newSliceReader(8000, 1, samples)
			r.blockSize = 4

			d, err := Extract(r, tt.policy)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			checkInvariants(t, d)

			if diff := cmp.Diff(tt.want, d.RawLevels, cmpopts.EquateApprox(0, 1e-5)); diff != "" {
				t.Errorf("raw levels (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_WidthBinCountExact(t *testing.T) {
	t.Parallel()

	for _, frames := range []int{44100, 12000, 12001, 12049, 49, 50, 51} {
		for _, block := range []int{1, 7, 1000} {
			r := newSliceReader(44100, 1, constant(frames, 1000))
			r.blockSize = block

			d, err := Extract(r, FitToWidth{Width: 300, Spacing: 6})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			want := min(50, frames)
			if d.Len() != want {
				t.Errorf("frames %d, block %d: Len() = %d, want %d", frames, block, d.Len(), want)
			}
		}
	}
}

func TestExtract_InterleavedBins(t *testing.T) {
	t.Parallel()

	// stereo, 4 frames, 2 bins: each bin spans 4 interleaved samples
	samples := []int16{32767, -32768, 32767, -32768, 0, 0, 0, 0}
	d, err := Extract(newSliceReader(8000, 2, samples), FitToWidth{Width: 2, Spacing: 1})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	if d.RawLevels[0] < -0.001 || d.RawLevels[1] != NoiseFloor {
		t.Errorf("raw = %v, want [~0, -80]", d.RawLevels)
	}
}

func TestExtract_BinCountIndependentOfBlockSize(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 44100)
	for i := range samples {
		samples[i] = int16(rand.IntN(65536) - 32768)
	}

	var first LevelData
	for i, block := range []int{1, 7, 1000, 44100} {
		r := newSliceReader(44100, 1, samples)
		r.blockSize = block
		d, err := Extract(r, FitToDuration{})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if d.Len() != 10 {
			t.Fatalf("block %d: Len() = %d, want 10", block, d.Len())
		}
		if i == 0 {
			first = d
			continue
		}
		if diff := cmp.Diff(first, d); diff != "" {
			t.Errorf("block %d differs (-first +got):\n%s", block, diff)
		}
	}
}

func TestExtract_ReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("truncated")
	r := newSliceReader(8000, 1, constant(8000, 1000))
	r.failAt = 4000
	r.failErr = boom

	d, err := Extract(r, FitToWidth{Width: 10, Spacing: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("Extract() error = %v, want %v", err, boom)
	}
	checkInvariants(t, d)
	if d.Len() != 5 {
		t.Errorf("partial Len() = %d, want 5", d.Len())
	}
}

func TestNormalize_Property(t *testing.T) {
	t.Parallel()

	for range 50 {
		raw := make([]float32, 1+rand.IntN(200))
		for i := range raw {
			raw[i] = float32(-80 * rand.Float64())
		}
		checkInvariants(t, New(raw, time.Second))
	}
}

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()

	d := New(nil, 0)
	if d.PercentageLevels == nil || len(d.PercentageLevels) != 0 {
		t.Errorf("Normalize(nil) = %#v, want empty slice", d.PercentageLevels)
	}
	if !d.IsEmpty() {
		t.Error("IsEmpty() = false")
	}
}

func TestAppend(t *testing.T) {
	t.Parallel()

	start := New([]float32{-20}, time.Second)
	got := Append(start, -10, 100*time.Millisecond)

	if got.Duration != 1100*time.Millisecond {
		t.Errorf("Duration = %v, want 1.1s", got.Duration)
	}
	if diff := cmp.Diff([]float32{-20, -10}, got.RawLevels); diff != "" {
		t.Errorf("raw (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{0, 10.0 / 85}, got.PercentageLevels, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("percentage (-want +got):\n%s", diff)
	}
	checkInvariants(t, got)

	if len(start.RawLevels) != 1 {
		t.Error("Append modified its input")
	}
}

func TestAppend_NewMinimum(t *testing.T) {
	t.Parallel()

	d := New([]float32{-20, -10}, 200*time.Millisecond)
	d = Append(d, -50, 100*time.Millisecond)

	want := []float32{30.0 / 85, 40.0 / 85, 0}
	if diff := cmp.Diff(want, d.PercentageLevels, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("percentage (-want +got):\n%s", diff)
	}
}

func TestAppend_Clips(t *testing.T) {
	t.Parallel()

	d := Append(LevelData{}, -120, 100*time.Millisecond)
	d = Append(d, 6, 100*time.Millisecond)
	d = Append(d, float32(math.NaN()), 100*time.Millisecond)

	if diff := cmp.Diff([]float32{NoiseFloor, FullScale, NoiseFloor}, d.RawLevels); diff != "" {
		t.Errorf("raw (-want +got):\n%s", diff)
	}
	checkInvariants(t, d)
}

func BenchmarkExtract(b *testing.B) {
	samples := make([]int16, 44100*30)
	for i := range samples {
		samples[i] = int16(i)
	}

	b.ReportAllocs()
	for range b.N {
		r := newSliceReader(44100, 1, samples)
		r.blockSize = 4096
		if _, err := Extract(r, FitToDuration{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAppend(b *testing.B) {
	d := LevelData{}
	for range 1200 {
		d = Append(d, -30, 100*time.Millisecond)
	}

	b.ReportAllocs()
	for range b.N {
		_ = Append(d, -10, 100*time.Millisecond)
	}
}
