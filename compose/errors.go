// SPDX-License-Identifier: EPL-2.0

package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrRangeOutOfBounds indicates a range reaching outside the timeline.
	ErrRangeOutOfBounds = errors.New("range outside the timeline")

	// ErrEmptyRange indicates a range whose end is not after its start.
	ErrEmptyRange = errors.New("empty range")

	// ErrOverlappingRanges indicates excise ranges that share frames.
	ErrOverlappingRanges = errors.New("overlapping ranges")

	// ErrUnsupportedPreset indicates no output preset fits the operation and source.
	ErrUnsupportedPreset = errors.New("unsupported output preset")

	// ErrEmptyComposition indicates there is nothing left to render.
	ErrEmptyComposition = errors.New("empty composition")

	// ErrIncompatibleSources indicates sources whose channel layouts cannot be joined.
	ErrIncompatibleSources = errors.New("incompatible sources")
)

// CompositionError reports a failed render. No output file exists when it is
// returned.
type CompositionError struct {
	Op   Op
	Path string
	Err  error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("compose %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }
