// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 streams with github.com/hajimehoshi/go-mp3.
//
// Output is always stereo float32 in [-1.0, 1.0]; mono files are duplicated
// to both channels by the underlying decoder. Use audio.Conform to fold the
// result into a clip's layout:
//
//	src, err := mp3.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
//	mono, err := audio.Conform(src, 16000, 1)
//
// The total frame count is available through audio.Lengther when the input
// is seekable, such as an *os.File.
package mp3
