// SPDX-License-Identifier: EPL-2.0

// Package audio provides the float32 streaming primitives every decoder and
// renderer is built from.
//
// # Source Interface
//
// A Source yields interleaved float32 samples in [-1, 1]:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Sources that know their length up front also implement Lengther, which the
// level extractor uses to size bins before reading.
//
// # Decoders
//
// A Decoder builds a Source from an io.Reader; a FileDecoder builds one from
// a path, for containers that need random access or an external process. The
// Registry maps file extensions to either:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	reg.RegisterFile("m4a", ffmpeg.New(""))
//
// # Format Conversion
//
// Resampler changes the rate with cubic interpolation, MonoMixer averages
// channels down to one and Duplicator copies a mono stream onto more
// channels. Conform picks the chain that turns any source into a target
// rate and channel count:
//
//	src, err := audio.Conform(decoded, 44100, 2)
//
// Conform refuses layouts it cannot map, such as stereo onto six channels.
//
// # Reading
//
// ReadSamples returns io.EOF once the stream is exhausted. n may be non-zero
// together with io.EOF:
//
//	for {
//	    n, err := src.ReadSamples(buf)
//	    process(buf[:n])
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
package audio
