// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with github.com/jfreymuth/oggvorbis.
//
// The decoder keeps the stream's own channel layout and sample rate.
// Samples are float32 in [-1.0, 1.0] and reads always return whole frames:
//
//	src, err := vorbis.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
// Pure Go, no cgo. Encoding is not supported.
package vorbis
