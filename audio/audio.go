// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"io"
	"strings"
	"sync"
)

type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Lengther is implemented by sources that know their length up front.
// Frames returns the number of samples per channel, or 0 when unknown.
type Lengther interface {
	Frames() int64
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// FileDecoder constructs a Source from a file path. It is used by decoders that
// need random access to the whole container or delegate to an external process.
type FileDecoder interface {
	DecodeFile(ctx context.Context, path string) (Source, error)
}

// Registry for decoders by file extension (e.g., "wav", "mp3", "ogg").
// A registered value must implement Decoder, FileDecoder or both.
type Registry struct {
	codecs map[string]any

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]any),
		mtx:    &sync.Mutex{},
	}
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(format, "."))
}

func (r *Registry) Register(format string, d Decoder) {
	r.register(format, d)
}

func (r *Registry) RegisterFile(format string, d FileDecoder) {
	r.register(format, d)
}

func (r *Registry) register(format string, d any) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[normalizeFormat(format)] = d
}

// Get returns the stream decoder for format.
func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[normalizeFormat(format)].(Decoder)
	return d, ok
}

// GetFile returns the file decoder for format.
func (r *Registry) GetFile(format string) (FileDecoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[normalizeFormat(format)].(FileDecoder)
	return d, ok
}

// Formats lists the registered extensions.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	return out
}
