// SPDX-License-Identifier: EPL-2.0

package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/formats/wav"
	"github.com/ik5/audclip/utils"
)

// encodeArgs builds the ffmpeg command line that reads WAV on stdin and
// writes AAC in an MPEG-4 audio container to dst.
func (c *Codec) encodeArgs(dst string) []string {
	return []string{
		"-nostdin",
		"-v", "error",
		"-y",
		"-f", "wav",
		"-i", "pipe:0",
		"-vn",
		"-c:a", "aac",
		"-b:a", c.bitrate,
		"-f", "ipod",
		dst,
	}
}

// EncodeM4A reads src to the end and encodes it as AAC into dst. dst must
// be a file path since the MP4 muxer seeks back to write its index.
func (c *Codec) EncodeM4A(ctx context.Context, src audio.Source, dst string) error {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, c.ffmpegPath)
	}
	if !SupportedRate(src.SampleRate()) {
		return fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, src.SampleRate())
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, c.encodeArgs(dst)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: starting ffmpeg: %w", ErrProcessFailed, err)
	}

	feedErr := feedWAV(stdin, src)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w: %s", ErrProcessFailed, waitErr, strings.TrimSpace(stderr.String()))
	}
	if feedErr != nil {
		return feedErr
	}
	if closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
		return fmt.Errorf("closing ffmpeg stdin: %w", closeErr)
	}
	return nil
}

// feedWAV streams src as a 16-bit WAV. The data size is exact when the
// source knows its length.
func feedWAV(w io.Writer, src audio.Source) error {
	size := uint32(wav.UnknownDataSize)
	if l, ok := src.(audio.Lengther); ok && l.Frames() > 0 {
		if n := l.Frames() * int64(src.Channels()) * 2; n < int64(wav.UnknownDataSize) {
			size = uint32(n)
		}
	}
	if err := wav.WriteHeader(w, src.SampleRate(), src.Channels(), size); err != nil {
		return err
	}

	fbuf := make([]float32, 4096*src.Channels())
	ibuf := make([]int16, len(fbuf))
	for {
		n, err := src.ReadSamples(fbuf)
		if n > 0 {
			for i := range n {
				ibuf[i] = utils.Float32ToInt16(fbuf[i])
			}
			if werr := wav.WritePCM16(w, ibuf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading source: %w", err)
		}
	}
}
