// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/formats/ffmpeg"
	"github.com/ik5/audclip/utils"
)

// DefaultBlockFrames is the number of frames NextBlock returns at most.
const DefaultBlockFrames = 4096

type options struct {
	registry    *audio.Registry
	blockFrames int
}

// Option configures Open.
type Option func(*options)

// WithRegistry selects the decoders. The default is DefaultRegistry with an
// ffmpeg codec from PATH.
func WithRegistry(reg *audio.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithBlockFrames sets the block size in frames.
func WithBlockFrames(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.blockFrames = n
		}
	}
}

// Reader delivers a file as interleaved signed 16-bit blocks. The source file
// is only ever opened for reading.
type Reader struct {
	ctx      context.Context
	path     string
	registry *audio.Registry

	src        audio.Source
	sampleRate int
	channels   int
	frames     int64

	fbuf  []float32
	block []int16
	// pending holds a partial frame returned by the decoder
	pending []float32
	closed  bool
}

// Open resolves a decoder from the file extension and reads the stream
// parameters. When the container does not declare its length, Open counts the
// frames in a first pass and restarts the stream.
func Open(ctx context.Context, path string, opts ...Option) (*Reader, error) {
	o := options{blockFrames: DefaultBlockFrames}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry(ffmpeg.New(""))
	}

	r := &Reader{ctx: ctx, path: path, registry: o.registry}

	src, err := r.open()
	if err != nil {
		return nil, err
	}
	r.src = src
	r.sampleRate = src.SampleRate()
	r.channels = src.Channels()
	if r.sampleRate <= 0 || r.channels <= 0 {
		_ = src.Close()
		return nil, &DecodeError{Path: path, Err: ErrNoAudioTrack}
	}

	r.fbuf = make([]float32, o.blockFrames*r.channels)
	r.block = make([]int16, o.blockFrames*r.channels)

	if l, ok := src.(audio.Lengther); ok && l.Frames() > 0 {
		r.frames = l.Frames()
		return r, nil
	}

	if err := r.count(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) open() (audio.Source, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, &DecodeError{Path: r.path, Err: fmt.Errorf("%w: %w", ErrAborted, err)}
	}

	ext := filepath.Ext(r.path)
	if d, ok := r.registry.Get(ext); ok {
		f, err := os.Open(r.path)
		if err != nil {
			return nil, &DecodeError{Path: r.path, Err: err}
		}
		src, err := d.Decode(f)
		if err != nil {
			f.Close()
			return nil, &DecodeError{Path: r.path, Err: err}
		}
		return src, nil
	}

	if d, ok := r.registry.GetFile(ext); ok {
		if _, err := os.Stat(r.path); err != nil {
			return nil, &DecodeError{Path: r.path, Err: err}
		}
		src, err := d.DecodeFile(r.ctx, r.path)
		if err != nil {
			if errors.Is(err, ffmpeg.ErrNoAudioStream) {
				err = fmt.Errorf("%w: %w", ErrNoAudioTrack, err)
			}
			if errors.Is(err, ffmpeg.ErrBinaryNotFound) {
				err = fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
			}
			return nil, &DecodeError{Path: r.path, Err: err}
		}
		return src, nil
	}

	return nil, &DecodeError{Path: r.path, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)}
}

// count reads the whole stream once to learn its length.
func (r *Reader) count() error {
	var total int64
	for {
		block, err := r.NextBlock()
		total += int64(len(block) / r.channels)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	r.frames = total
	return r.Reset()
}

// SampleRate in Hz.
func (r *Reader) SampleRate() int { return r.sampleRate }

// Channels per frame.
func (r *Reader) Channels() int { return r.channels }

// Frames is the number of samples per channel.
func (r *Reader) Frames() int64 { return r.frames }

// Path of the source file.
func (r *Reader) Path() string { return r.path }

// NextBlock returns the next run of whole frames. The slice is reused by the
// following call. At the end of the stream it returns io.EOF, possibly with a
// final short block.
func (r *Reader) NextBlock() ([]int16, error) {
	if r.closed {
		return nil, &DecodeError{Path: r.path, Err: ErrClosed}
	}
	if err := r.ctx.Err(); err != nil {
		return nil, &DecodeError{Path: r.path, Err: fmt.Errorf("%w: %w", ErrAborted, err)}
	}

	n := copy(r.fbuf, r.pending)
	r.pending = r.pending[:0]

	var readErr error
	for n < len(r.fbuf) {
		m, err := r.src.ReadSamples(r.fbuf[n:])
		n += m
		if err != nil {
			readErr = err
			break
		}
		if m == 0 {
			break
		}
	}

	whole := n - n%r.channels
	if whole < n {
		r.pending = append(r.pending, r.fbuf[whole:n]...)
	}

	for i := range whole {
		r.block[i] = utils.Float32ToInt16(r.fbuf[i])
	}
	out := r.block[:whole]

	switch {
	case readErr == io.EOF:
		return out, io.EOF
	case readErr != nil:
		return out, &DecodeError{Path: r.path, Err: readErr}
	}
	return out, nil
}

// Skip discards frames from the current position. It returns io.EOF when the
// stream ends first.
func (r *Reader) Skip(frames int64) error {
	for frames > 0 {
		block, err := r.NextBlock()
		got := int64(len(block) / r.channels)
		if got > frames {
			// give back what was read past the target
			keep := block[frames*int64(r.channels):]
			rest := make([]float32, len(keep), len(keep)+len(r.pending))
			for i, s := range keep {
				rest[i] = utils.Int16ToFloat32(s)
			}
			r.pending = append(rest, r.pending...)
			return nil
		}
		frames -= got
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset restarts the stream from the first sample.
func (r *Reader) Reset() error {
	if r.closed {
		return &DecodeError{Path: r.path, Err: ErrClosed}
	}
	if r.src != nil {
		_ = r.src.Close()
		r.src = nil
	}
	src, err := r.open()
	if err != nil {
		return err
	}
	r.src = src
	r.pending = r.pending[:0]
	return nil
}

// Close releases the decoder.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.src == nil {
		return nil
	}
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", r.path, err)
	}
	return nil
}
