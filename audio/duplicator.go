// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Duplicator spreads a mono source over n identical channels.
type Duplicator struct {
	src      Source
	channels int
	tmp      []float32
}

func NewDuplicator(src Source, channels int) *Duplicator {
	return &Duplicator{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}
}

func (d *Duplicator) SampleRate() int { return d.src.SampleRate() }
func (d *Duplicator) Channels() int   { return d.channels }
func (d *Duplicator) BufSize() int    { return d.src.BufSize() }

func (d *Duplicator) Frames() int64 {
	if l, ok := d.src.(Lengther); ok {
		return l.Frames()
	}
	return 0
}

func (d *Duplicator) Close() error {
	if err := d.src.Close(); err != nil {
		return fmt.Errorf("closing duplicator source: %w", err)
	}
	return nil
}

func (d *Duplicator) ReadSamples(dst []float32) (int, error) {
	if len(dst)%d.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	frames := len(dst) / d.channels
	if frames == 0 {
		return 0, nil
	}
	if cap(d.tmp) < frames {
		d.tmp = make([]float32, frames)
	}
	d.tmp = d.tmp[:frames]

	n, err := d.src.ReadSamples(d.tmp)
	for f := range n {
		for c := range d.channels {
			dst[f*d.channels+c] = d.tmp[f]
		}
	}
	return n * d.channels, err
}
