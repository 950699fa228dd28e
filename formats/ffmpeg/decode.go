// SPDX-License-Identifier: EPL-2.0

package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/utils"
)

// processSource streams s16le PCM from an ffmpeg child process.
type processSource struct {
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	stderr     *bytes.Buffer
	sampleRate int
	channels   int
	buf        []byte
	carry      []byte

	waitOnce sync.Once
	waitErr  error
}

func (s *processSource) SampleRate() int { return s.sampleRate }
func (s *processSource) Channels() int   { return s.channels }
func (s *processSource) BufSize() int    { return 4096 }

func (s *processSource) wait() error {
	s.waitOnce.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.waitErr = fmt.Errorf("%w: %w: %s", ErrProcessFailed, err, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.waitErr
}

// Close stops the process if it is still running.
func (s *processSource) Close() error {
	_ = s.stdout.Close()
	if s.cmd.ProcessState == nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()
	return nil
}

func (s *processSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	off := copy(s.buf, s.carry)
	s.carry = s.carry[:0]

	n, err := s.stdout.Read(s.buf[off:])
	n += off
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading ffmpeg output: %w", err)
	}
	if n%2 == 1 {
		s.carry = append(s.carry, s.buf[n-1])
	}

	samples := n / 2
	for i := range samples {
		dst[i] = utils.Int16ToFloat32(int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8))
	}

	if err == io.EOF {
		if werr := s.wait(); werr != nil {
			return samples, werr
		}
		if samples == 0 {
			return 0, io.EOF
		}
		return samples, io.EOF
	}
	return samples, nil
}

// DecodeFile probes path and streams its first audio track as 16-bit PCM in
// the track's own rate and layout. Closing the source stops the process.
func (c *Codec) DecodeFile(ctx context.Context, path string) (audio.Source, error) {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, c.ffmpegPath)
	}

	info, err := c.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-vn",
		"-map", "0:a:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(info.Channels),
		"-ar", strconv.Itoa(info.SampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting ffmpeg: %w", ErrProcessFailed, err)
	}

	return &processSource{
		cmd:        cmd,
		stdout:     stdout,
		stderr:     stderr,
		sampleRate: info.SampleRate,
		channels:   info.Channels,
		buf:        make([]byte, 8192),
	}, nil
}
