// SPDX-License-Identifier: EPL-2.0

// Package ffmpeg covers the containers the pure Go decoders cannot: it
// decodes M4A/AAC (and anything else ffmpeg reads) and encodes AAC into
// M4A, by running ffmpeg and ffprobe as child processes.
//
// Decoding streams raw s16le from ffmpeg's stdout; encoding feeds a WAV
// stream into ffmpeg's stdin:
//
//	codec := ffmpeg.New("/usr/bin/ffmpeg", ffmpeg.WithBitrate("256k"))
//	src, err := codec.DecodeFile(ctx, "clip.m4a")
//	...
//	err = codec.EncodeM4A(ctx, src, "out.m4a")
//
// Every call takes a context; cancelling it kills the child process.
// Calls fail with ErrBinaryNotFound when the binaries are missing.
package ffmpeg
