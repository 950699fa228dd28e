// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// UnknownDataSize marks a header whose data chunk runs to the end of the stream.
const UnknownDataSize = math.MaxUint32

// WriteHeader writes a canonical 44-byte PCM 16-bit header. It is meant for
// streams that cannot seek back, such as a pipe into an encoder; pass
// UnknownDataSize when the length is not known in advance.
func WriteHeader(w io.Writer, sampleRate, channels int, dataSize uint32) error {
	numChannels := uint16(channels)
	bitsPerSample := uint16(16)
	byteRate := uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample/8)
	blockAlign := numChannels * (bitsPerSample / 8)

	riffSize := uint32(UnknownDataSize)
	if dataSize <= UnknownDataSize-36 {
		riffSize = 36 + dataSize
	}

	header := make([]byte, 44)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], riffSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing wav header: %w", err)
	}
	return nil
}

// WritePCM16 writes interleaved samples as little-endian bytes in chunks.
func WritePCM16(w io.Writer, samples []int16) error {
	const chunkSize = 8192
	if len(samples) == 0 {
		return nil
	}

	buf := make([]byte, min(len(samples), chunkSize)*2)
	for i := 0; i < len(samples); i += chunkSize {
		chunk := samples[i:min(i+chunkSize, len(samples))]
		out := buf[:len(chunk)*2]
		for j, s := range chunk {
			binary.LittleEndian.PutUint16(out[j*2:], uint16(s))
		}
		if _, err := w.Write(out); err != nil {
			return fmt.Errorf("writing pcm samples: %w", err)
		}
	}
	return nil
}

// WriteWAV16 writes a complete 16-bit PCM WAV with the given channel layout.
func WriteWAV16(w io.Writer, sampleRate, channels int, samples []int16) error {
	if channels <= 0 || len(samples)%channels != 0 {
		return ErrMisalignedSamples
	}
	if err := WriteHeader(w, sampleRate, channels, uint32(len(samples)*2)); err != nil {
		return err
	}
	return WritePCM16(w, samples)
}
