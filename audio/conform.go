// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Conform builds a pipeline that delivers src at sampleRate with the given
// channel count: resample first, then fold or spread channels.
//
// Only mono<->N conversions are supported besides passthrough.
func Conform(src Source, sampleRate, channels int) (Source, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	out := src
	if src.SampleRate() != sampleRate {
		out = NewResampler(out, sampleRate)
	}

	switch {
	case out.Channels() == channels:
	case channels == 1:
		out = NewMonoMixer(out)
	case out.Channels() == 1:
		out = NewDuplicator(out, channels)
	default:
		return nil, fmt.Errorf("%w: %d -> %d", ErrUnsupportedChannels, src.Channels(), channels)
	}

	return out, nil
}
