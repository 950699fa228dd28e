// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF (Audio Interchange File Format) files with
// github.com/go-audio/aiff.
//
// Only 16-bit PCM is accepted, in any channel layout and sample rate. The
// frame count comes from the COMM chunk, so the source always implements
// audio.Lengther with an exact value.
//
//	src, err := aiff.Decoder{}.Decode(file)
//	if errors.Is(err, aiff.ErrOnlyPCM16bitSupported) {
//	    // 24-bit or compressed AIFF-C
//	}
//
// Readers that cannot seek are buffered in memory before parsing.
package aiff
