// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and writes 16-bit PCM WAV files.
//
// Decoding is built on github.com/go-audio/wav, which walks the RIFF chunk list,
// so files with extra chunks (LIST, fact, ...) before the data chunk are fine.
// Only integer PCM at 16 bits per sample is accepted.
//
// Two writers are provided:
//   - Writer streams into an io.WriteSeeker and finalizes the chunk sizes on Close;
//     it is used for edit previews and recordings.
//   - WriteHeader/WritePCM16/WriteWAV16 write a canonical 44-byte header up front,
//     for destinations that cannot seek, such as a pipe into an encoder process.
package wav
