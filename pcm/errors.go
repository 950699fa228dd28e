// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat indicates no decoder is registered for the file.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrNoAudioTrack indicates the container has no usable audio.
	ErrNoAudioTrack = errors.New("no audio track")

	// ErrAborted indicates decoding stopped because the context ended.
	ErrAborted = errors.New("decoding aborted")

	// ErrClosed indicates use of a closed reader.
	ErrClosed = errors.New("reader closed")
)

// DecodeError reports a failure to open or read a source file.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
