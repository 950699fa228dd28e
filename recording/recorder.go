// SPDX-License-Identifier: EPL-2.0

// Package recording captures takes to disk with live waveform levels.
package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/compose"
	"github.com/ik5/audclip/formats/wav"
	"github.com/ik5/audclip/internal/metrics"
	"github.com/ik5/audclip/levels"
	"github.com/ik5/audclip/logger"
	"github.com/ik5/audclip/notify"
	"github.com/ik5/audclip/utils"
	"go.uber.org/zap"
)

const (
	// DefaultMaxDuration caps a single take.
	DefaultMaxDuration = 120 * time.Second
	// DefaultLevelInterval is the span of one live level bin.
	DefaultLevelInterval = 100 * time.Millisecond
)

// ErrEmptyTake indicates the source ended before any audio arrived.
var ErrEmptyTake = errors.New("recording has no audio")

// Finalizer turns a finished take into a stored clip.
type Finalizer interface {
	CanEncode(p compose.Preset) bool
	Normalize(ctx context.Context, src, dst string) (compose.Output, error)
	Combine(ctx context.Context, paths []string, dst string) (compose.Output, error)
}

// Recorder writes capture sources to clips.
type Recorder struct {
	fin      Finalizer
	maxDur   time.Duration
	interval time.Duration
	hub      *notify.Hub[Event]
	log      *zap.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMaxDuration sets the hard cap of a take. Zero or less keeps the default.
func WithMaxDuration(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.maxDur = d
		}
	}
}

// WithLevelInterval sets how much audio each live level bin covers.
func WithLevelInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// NewRecorder returns a Recorder finalizing takes through fin.
func NewRecorder(fin Finalizer, opts ...Option) *Recorder {
	r := &Recorder{
		fin:      fin,
		maxDur:   DefaultMaxDuration,
		interval: DefaultLevelInterval,
		hub:      notify.NewHub[Event](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.L()
	}
	return r
}

// Subscribe registers fn for recorder events.
func (r *Recorder) Subscribe(fn func(Event)) (unsubscribe func()) {
	return r.hub.Subscribe(fn)
}

// Close stops event delivery once queued events are out.
func (r *Recorder) Close() {
	r.hub.Close()
}

// Options describe one take.
type Options struct {
	// Dir receives the clip. Defaults to the directory of Continue.
	Dir   string
	Title string
	// Continue appends the take to an existing clip instead of creating one.
	Continue *asset.Asset
	// Levels of the clip being continued; live levels extend them.
	Levels levels.LevelData
}

// Take is a recorded clip.
type Take struct {
	Asset  asset.Asset
	Levels levels.LevelData
	// Capped is set when the take hit the maximum duration.
	Capped bool
	// SupersededPath is the continued clip's old file, already removed
	// unless CleanupErr says otherwise.
	SupersededPath string
	CleanupErr     error
}

// Record reads src until it ends or the maximum duration is reached and
// stores the take. Cancelling ctx discards the take. src is closed on return.
func (r *Recorder) Record(ctx context.Context, src audio.Source, opts Options) (Take, error) {
	defer src.Close()

	id := uuid.NewString()
	dir := opts.Dir
	if opts.Continue != nil {
		id = opts.Continue.ID
		if dir == "" {
			dir = opts.Continue.Dir()
		}
	}
	if dir == "" {
		dir = "."
	}
	staging := asset.StagingPath(dir, id, "wav")

	r.hub.Publish(Event{Kind: RecordingStarted, AssetID: id, Levels: opts.Levels})
	r.log.Info("recording started",
		zap.String("asset_id", id),
		zap.String("path", staging),
		zap.Int("sample_rate", src.SampleRate()),
		zap.Int("channels", src.Channels()),
	)

	capture, err := r.capture(ctx, id, src, staging, opts.Levels)
	if err != nil {
		_ = os.Remove(staging)
		outcome := "error"
		if ctx.Err() != nil {
			outcome = "discarded"
		}
		metrics.RecordingFinished(outcome)
		r.hub.Publish(Event{Kind: RecordingDiscarded, AssetID: id, Err: err})
		return Take{}, err
	}

	take, err := r.finalize(ctx, id, dir, staging, capture, opts)
	if err != nil {
		metrics.RecordingFinished("error")
		r.hub.Publish(Event{Kind: RecordingDiscarded, AssetID: id, Err: err})
		return Take{}, err
	}

	outcome := "finished"
	if take.Capped {
		outcome = "capped"
	}
	metrics.RecordingFinished(outcome)
	r.hub.Publish(Event{
		Kind:    RecordingFinished,
		AssetID: id,
		Elapsed: capture.duration,
		Levels:  take.Levels,
		Asset:   take.Asset,
	})
	return take, nil
}

type captured struct {
	levels   levels.LevelData
	duration time.Duration
	capped   bool
}

// capture writes src to staging as 16-bit WAV and bins levels as it goes.
func (r *Recorder) capture(ctx context.Context, id string, src audio.Source, staging string, start levels.LevelData) (captured, error) {
	rate, ch := src.SampleRate(), src.Channels()
	if rate <= 0 || ch <= 0 {
		return captured{}, fmt.Errorf("%w: %d Hz x %d", ErrInvalidFormat, rate, ch)
	}

	f, err := os.Create(staging)
	if err != nil {
		return captured{}, fmt.Errorf("creating %s: %w", staging, err)
	}
	defer f.Close()
	w := wav.NewWriter(f, rate, ch)

	binFrames := max(int64(1), compose.FramesAt(r.interval, rate))
	maxFrames := compose.FramesAt(r.maxDur, rate)

	var (
		out     = captured{levels: start}
		frames  int64
		bin     = make([]int16, 0, binFrames*int64(ch))
		fbuf    = make([]float32, max(src.BufSize()-src.BufSize()%ch, ch))
		ibuf    = make([]int16, 0, len(fbuf)+ch)
		partial []int16
	)

	flush := func(n int64) {
		out.levels = levels.Append(out.levels, levels.BlockLevel(bin), compose.DurationOf(n, rate))
		bin = bin[:0]
		r.hub.Publish(Event{
			Kind:    LevelsUpdated,
			AssetID: id,
			Elapsed: compose.DurationOf(frames, rate),
			Levels:  out.levels,
		})
	}

	for {
		if err := ctx.Err(); err != nil {
			return captured{}, err
		}

		n, readErr := src.ReadSamples(fbuf)

		ibuf = append(ibuf[:0], partial...)
		for i := range n {
			ibuf = append(ibuf, utils.Float32ToInt16(fbuf[i]))
		}
		whole := len(ibuf) - len(ibuf)%ch
		partial = append(partial[:0], ibuf[whole:]...)
		block := ibuf[:whole]

		if left := (maxFrames - frames) * int64(ch); int64(len(block)) >= left {
			block = block[:left]
			out.capped = true
		}

		if err := w.Write(block); err != nil {
			return captured{}, err
		}

		for len(block) > 0 {
			room := int(binFrames)*ch - len(bin)
			fill := min(room, len(block))
			bin = append(bin, block[:fill]...)
			block = block[fill:]
			frames += int64(fill / ch)
			if len(bin) == int(binFrames)*ch {
				flush(binFrames)
			}
		}

		if out.capped {
			r.hub.Publish(Event{Kind: RecordingCapped, AssetID: id, Elapsed: compose.DurationOf(frames, rate), Levels: out.levels})
			r.log.Info("recording reached its maximum duration",
				zap.String("asset_id", id),
				logger.Duration("max", r.maxDur),
			)
			break
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return captured{}, fmt.Errorf("reading capture: %w", readErr)
		}
	}

	if len(bin) > 0 {
		flush(int64(len(bin) / ch))
	}
	if err := w.Close(); err != nil {
		return captured{}, err
	}
	if err := f.Close(); err != nil {
		return captured{}, fmt.Errorf("closing %s: %w", staging, err)
	}
	if frames == 0 {
		return captured{}, ErrEmptyTake
	}

	out.duration = compose.DurationOf(frames, rate)
	return out, nil
}

// finalize stores a captured take: new clips go to M4A when an encoder is
// available and stay WAV otherwise, continuations keep the clip's container.
func (r *Recorder) finalize(ctx context.Context, id, dir, staging string, c captured, opts Options) (Take, error) {
	take := Take{Levels: c.levels, Capped: c.capped}

	if prev := opts.Continue; prev != nil {
		dst := asset.CommittedPath(dir, id, prev.Ext())
		out, err := r.fin.Combine(ctx, []string{prev.Path, staging}, dst)
		_ = os.Remove(staging)
		if err != nil {
			return Take{}, err
		}
		take.Asset = prev.WithPath(out.Path, out.Duration)
		take.SupersededPath = prev.Path
		if err := os.Remove(prev.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			take.CleanupErr = err
			r.log.Warn("removing superseded clip failed", zap.String("path", prev.Path), zap.Error(err))
		}
		return take, nil
	}

	a := asset.New("", opts.Title)
	a.ID = id

	if r.fin.CanEncode(compose.Preset{Container: compose.ContainerM4A}) {
		dst := asset.CommittedPath(dir, id, string(compose.ContainerM4A))
		out, err := r.fin.Normalize(ctx, staging, dst)
		if err == nil {
			_ = os.Remove(staging)
			take.Asset = a.WithPath(out.Path, out.Duration)
			return take, nil
		}
		if ctx.Err() != nil {
			_ = os.Remove(staging)
			return Take{}, err
		}
		r.log.Warn("normalizing recording failed, keeping wav",
			zap.String("asset_id", id),
			zap.Error(err),
		)
	}

	dst := asset.CommittedPath(dir, id, string(compose.ContainerWAV))
	if err := os.Rename(staging, dst); err != nil {
		_ = os.Remove(staging)
		return Take{}, fmt.Errorf("storing %s: %w", dst, err)
	}
	take.Asset = a.WithPath(dst, c.duration)
	return take, nil
}
