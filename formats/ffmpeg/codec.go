// SPDX-License-Identifier: EPL-2.0

package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultBitrate is the AAC bitrate used for M4A output.
const DefaultBitrate = "192k"

// aacRates are the sampling frequencies defined for AAC.
var aacRates = map[int]struct{}{
	7350: {}, 8000: {}, 11025: {}, 12000: {}, 16000: {}, 22050: {}, 24000: {},
	32000: {}, 44100: {}, 48000: {}, 64000: {}, 88200: {}, 96000: {},
}

// SupportedRate reports whether AAC can encode audio at rate.
func SupportedRate(rate int) bool {
	_, ok := aacRates[rate]
	return ok
}

// Codec runs ffmpeg and ffprobe child processes.
type Codec struct {
	ffmpegPath  string
	ffprobePath string
	bitrate     string
}

// Option configures a Codec.
type Option func(*Codec)

// WithBitrate sets the AAC bitrate, e.g. "256k".
func WithBitrate(bitrate string) Option {
	return func(c *Codec) {
		if bitrate != "" {
			c.bitrate = bitrate
		}
	}
}

// WithProbePath overrides the ffprobe binary. By default it sits next to
// ffmpeg.
func WithProbePath(path string) Option {
	return func(c *Codec) { c.ffprobePath = path }
}

// New creates a codec for the ffmpeg binary at ffmpegPath. An empty path
// means "ffmpeg" from PATH.
func New(ffmpegPath string, opts ...Option) *Codec {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	c := &Codec{
		ffmpegPath: ffmpegPath,
		bitrate:    DefaultBitrate,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ffprobePath == "" {
		c.ffprobePath = probePathFor(ffmpegPath)
	}
	return c
}

func probePathFor(ffmpegPath string) string {
	dir, base := filepath.Split(ffmpegPath)
	return dir + strings.Replace(base, "ffmpeg", "ffprobe", 1)
}

// FFmpegPath returns the configured ffmpeg binary.
func (c *Codec) FFmpegPath() string { return c.ffmpegPath }

// Available reports whether both binaries can be found.
func (c *Codec) Available() bool {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(c.ffprobePath)
	return err == nil
}

// StreamInfo describes the first audio stream of a file.
type StreamInfo struct {
	CodecName  string
	SampleRate int
	Channels   int
	Duration   time.Duration
}

type probeOutput struct {
	Streams []struct {
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Duration   string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects the first audio stream of path with ffprobe.
func (c *Codec) Probe(ctx context.Context, path string) (StreamInfo, error) {
	if _, err := exec.LookPath(c.ffprobePath); err != nil {
		return StreamInfo{}, fmt.Errorf("%w: %s", ErrBinaryNotFound, c.ffprobePath)
	}

	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels,duration:format=duration",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, c.ffprobePath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return StreamInfo{}, fmt.Errorf("%w: ffprobe %s: %w: %s", ErrProcessFailed, path, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbe(out.Bytes())
}

func parseProbe(data []byte) (StreamInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return StreamInfo{}, fmt.Errorf("unmarshal ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return StreamInfo{}, ErrNoAudioStream
	}

	s := probe.Streams[0]
	rate, err := strconv.Atoi(s.SampleRate)
	if err != nil || rate <= 0 || s.Channels <= 0 {
		return StreamInfo{}, fmt.Errorf("%w: rate %q, %d channels", ErrNoAudioStream, s.SampleRate, s.Channels)
	}

	info := StreamInfo{
		CodecName:  s.CodecName,
		SampleRate: rate,
		Channels:   s.Channels,
	}

	dur := s.Duration
	if dur == "" || dur == "N/A" {
		dur = probe.Format.Duration
	}
	if secs, err := strconv.ParseFloat(dur, 64); err == nil && secs > 0 {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	return info, nil
}
