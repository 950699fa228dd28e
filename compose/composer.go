// SPDX-License-Identifier: EPL-2.0

package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/formats/ffmpeg"
	"github.com/ik5/audclip/formats/wav"
	"github.com/ik5/audclip/internal/metrics"
	"github.com/ik5/audclip/logger"
	"github.com/ik5/audclip/pcm"
	"github.com/ik5/audclip/utils"
	"go.uber.org/zap"
)

// Output is a rendered file.
type Output struct {
	Path     string
	Duration time.Duration
	Frames   int64
}

// Composer renders compositions to files. Sources are never modified; the
// output only appears at its destination once it is complete.
type Composer struct {
	codec   *ffmpeg.Codec
	pcmOpts []pcm.Option
	log     *zap.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithCodec sets the ffmpeg codec used for M4A output. Nil disables M4A.
func WithCodec(c *ffmpeg.Codec) Option {
	return func(cp *Composer) { cp.codec = c }
}

// WithPCMOptions passes opts to pcm.Open for every source.
func WithPCMOptions(opts ...pcm.Option) Option {
	return func(cp *Composer) { cp.pcmOpts = opts }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cp *Composer) { cp.log = l }
}

// New returns a Composer using ffmpeg from PATH for M4A output.
func New(opts ...Option) *Composer {
	c := &Composer{codec: ffmpeg.New("")}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.L()
	}
	return c
}

// CanEncode reports whether preset p can be written.
func (c *Composer) CanEncode(p Preset) bool {
	return p.Container == ContainerWAV || (c.codec != nil && c.codec.Available())
}

func (c *Composer) open(ctx context.Context, path string) (*pcm.Reader, error) {
	return pcm.Open(ctx, path, c.pcmOpts...)
}

// Load reads the stream parameters of path.
func (c *Composer) Load(ctx context.Context, path string) (Track, error) {
	r, err := c.open(ctx, path)
	if err != nil {
		return Track{}, err
	}
	defer r.Close()

	return Track{
		Path:       path,
		SampleRate: r.SampleRate(),
		Channels:   r.Channels(),
		Frames:     r.Frames(),
	}, nil
}

func (c *Composer) single(ctx context.Context, path string) (*Composition, error) {
	t, err := c.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	comp := NewComposition()
	if err := comp.Insert(t); err != nil {
		return nil, err
	}
	return comp, nil
}

// Trim writes the [start, end) part of a to dst as WAV and returns a with
// its new path and duration.
func (c *Composer) Trim(ctx context.Context, a asset.Asset, start, end time.Duration, dst string) (asset.Asset, error) {
	out, err := c.Apply(ctx, a.Path, TrimPlan{Start: start, End: end}, dst)
	if err != nil {
		return asset.Asset{}, err
	}
	return a.WithPath(out.Path, out.Duration), nil
}

// Excise writes a with every range removed to dst as WAV. Ranges are in a's
// original timeline and may come in any order.
func (c *Composer) Excise(ctx context.Context, a asset.Asset, ranges []TimeRange, dst string) (asset.Asset, error) {
	out, err := c.Apply(ctx, a.Path, ExcisePlan{Ranges: ranges}, dst)
	if err != nil {
		return asset.Asset{}, err
	}
	return a.WithPath(out.Path, out.Duration), nil
}

// Apply renders plan over the file at src into dst.
func (c *Composer) Apply(ctx context.Context, src string, plan Plan, dst string) (Output, error) {
	op := plan.Op()
	start := time.Now()

	out, err := func() (Output, error) {
		comp, err := c.single(ctx, src)
		if err != nil {
			return Output{}, err
		}
		if err := plan.apply(comp); err != nil {
			return Output{}, err
		}
		return c.render(ctx, op, comp, dst)
	}()
	metrics.Composed(op.String(), start, err)
	if err != nil {
		return Output{}, c.fail(op, dst, err)
	}
	return out, nil
}

// Combine joins the files at paths end to end into dst. The output takes the
// format of the first file; dst must use the first file's container.
func (c *Composer) Combine(ctx context.Context, paths []string, dst string) (Output, error) {
	start := time.Now()
	out, err := func() (Output, error) {
		if len(paths) == 0 {
			return Output{}, ErrEmptyComposition
		}
		comp := NewComposition()
		for _, p := range paths {
			t, err := c.Load(ctx, p)
			if err != nil {
				return Output{}, err
			}
			if err := comp.Insert(t); err != nil {
				return Output{}, err
			}
		}
		return c.renderAs(ctx, OpAppend, asset.Ext(paths[0]), comp, dst)
	}()
	metrics.Composed(OpAppend.String(), start, err)
	if err != nil {
		return Output{}, c.fail(OpAppend, dst, err)
	}
	return out, nil
}

// Normalize converts a fresh recording at src into the M4A storage format.
func (c *Composer) Normalize(ctx context.Context, src, dst string) (Output, error) {
	return c.convert(ctx, OpNormalize, src, dst)
}

// Export converts the clip at src into a shareable M4A file.
func (c *Composer) Export(ctx context.Context, src, dst string) (Output, error) {
	return c.convert(ctx, OpExport, src, dst)
}

func (c *Composer) convert(ctx context.Context, op Op, src, dst string) (Output, error) {
	start := time.Now()
	out, err := func() (Output, error) {
		comp, err := c.single(ctx, src)
		if err != nil {
			return Output{}, err
		}
		return c.render(ctx, op, comp, dst)
	}()
	metrics.Composed(op.String(), start, err)
	if err != nil {
		return Output{}, c.fail(op, dst, err)
	}
	return out, nil
}

func (c *Composer) fail(op Op, dst string, err error) error {
	c.log.Warn("composition failed",
		zap.Stringer("op", op),
		zap.String("path", dst),
		zap.Error(err),
	)
	return &CompositionError{Op: op, Path: dst, Err: err}
}

func (c *Composer) render(ctx context.Context, op Op, comp *Composition, dst string) (Output, error) {
	return c.renderAs(ctx, op, "", comp, dst)
}

func (c *Composer) renderAs(ctx context.Context, op Op, existingExt string, comp *Composition, dst string) (Output, error) {
	preset, err := PresetFor(op, existingExt)
	if err != nil {
		return Output{}, err
	}
	if !strings.EqualFold(filepath.Ext(dst), preset.Ext()) {
		return Output{}, fmt.Errorf("%w: %s output must be %s, got %q",
			ErrUnsupportedPreset, op, preset.Container, filepath.Ext(dst))
	}
	if comp.Len() == 0 {
		return Output{}, ErrEmptyComposition
	}
	if preset.Container == ContainerM4A {
		if c.codec == nil || !c.codec.Available() {
			return Output{}, fmt.Errorf("%w: %w", ErrUnsupportedPreset, ffmpeg.ErrBinaryNotFound)
		}
		if !ffmpeg.SupportedRate(comp.SampleRate()) {
			return Output{}, fmt.Errorf("%w: %w: %d Hz",
				ErrUnsupportedPreset, ffmpeg.ErrUnsupportedSampleRate, comp.SampleRate())
		}
	}

	src := newTimelineSource(ctx, comp, c.open)
	defer src.Close()

	err = writeAtomic(ctx, dst, func(tmp *os.File) error {
		if preset.Container == ContainerWAV {
			return writeWAV(tmp, src)
		}
		// ffmpeg opens the path itself
		if err := tmp.Close(); err != nil {
			return err
		}
		return c.codec.EncodeM4A(ctx, src, tmp.Name())
	})
	if err != nil {
		return Output{}, err
	}

	frames := src.Delivered()
	out := Output{Path: dst, Frames: frames, Duration: DurationOf(frames, comp.SampleRate())}
	c.log.Debug("composition written",
		zap.Stringer("op", op),
		zap.String("path", dst),
		logger.Duration("duration", out.Duration),
	)
	return out, nil
}

func writeWAV(f *os.File, src *timelineSource) error {
	w := wav.NewWriter(f, src.SampleRate(), src.Channels())
	fbuf := make([]float32, src.BufSize())
	ibuf := make([]int16, len(fbuf))
	for {
		n, err := src.ReadSamples(fbuf)
		for i := range n {
			ibuf[i] = utils.Float32ToInt16(fbuf[i])
		}
		if werr := w.Write(ibuf[:n]); werr != nil {
			return werr
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return w.Close()
}

// writeAtomic runs write against a hidden temporary file next to dst and
// renames it into place when write succeeds and ctx is still live. The
// temporary file is removed on every other path.
func writeAtomic(ctx context.Context, dst string, write func(*os.File) error) (err error) {
	dir, base := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(name, dst); err != nil {
		return fmt.Errorf("renaming into %s: %w", dst, err)
	}
	return nil
}
