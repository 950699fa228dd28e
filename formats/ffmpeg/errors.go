// SPDX-License-Identifier: EPL-2.0

package ffmpeg

import "errors"

var (
	// ErrBinaryNotFound indicates ffmpeg or ffprobe is not installed.
	ErrBinaryNotFound = errors.New("ffmpeg binary not found")

	// ErrNoAudioStream indicates the container holds no audio track.
	ErrNoAudioStream = errors.New("no audio stream found")

	// ErrUnsupportedSampleRate indicates AAC cannot encode the source rate.
	ErrUnsupportedSampleRate = errors.New("sample rate not supported by AAC")

	// ErrProcessFailed indicates ffmpeg exited with an error.
	ErrProcessFailed = errors.New("ffmpeg process failed")
)
