// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// Writer streams interleaved 16-bit PCM into a WAV container. The header is
// finalized on Close, so the destination must be seekable.
type Writer struct {
	enc      *gowav.Encoder
	buf      *goaudio.IntBuffer
	channels int
	frames   int64
	closed   bool
}

// NewWriter starts a WAV stream on w.
func NewWriter(w io.WriteSeeker, sampleRate, channels int) *Writer {
	return &Writer{
		enc:      gowav.NewEncoder(w, sampleRate, 16, channels, 1),
		channels: channels,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           make([]int, 0, 4096),
			SourceBitDepth: 16,
		},
	}
}

// Write appends samples, which must hold whole frames.
func (w *Writer) Write(samples []int16) error {
	if w.closed {
		return ErrWriterClosed
	}
	if len(samples)%w.channels != 0 {
		return ErrMisalignedSamples
	}
	if len(samples) == 0 {
		return nil
	}

	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	w.frames += int64(len(samples) / w.channels)
	return nil
}

// Frames is the number of frames written so far.
func (w *Writer) Frames() int64 { return w.frames }

// Close writes the final chunk sizes. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.frames == 0 {
		// an empty data chunk still needs the header written
		w.buf.Data = w.buf.Data[:0]
		if err := w.enc.Write(w.buf); err != nil {
			return fmt.Errorf("writing empty wav: %w", err)
		}
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav header: %w", err)
	}
	return nil
}
