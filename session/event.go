// SPDX-License-Identifier: EPL-2.0

package session

import (
	"fmt"

	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/compose"
	"github.com/ik5/audclip/levels"
)

// EventKind names a session transition.
type EventKind int

const (
	CropStarted EventKind = iota + 1
	CropRangeAdjusted
	CropStaged
	CropFinished
	CropCancelled

	CutStarted
	CutRangeAdjusted
	CutStaged
	CutFinished
	CutCancelled

	// PreviewFailed reports a preview render that failed. The previous
	// staged asset, if any, stays in place.
	PreviewFailed
)

var eventNames = map[EventKind]string{
	CropStarted:       "crop_started",
	CropRangeAdjusted: "crop_range_adjusted",
	CropStaged:        "crop_staged",
	CropFinished:      "crop_finished",
	CropCancelled:     "crop_cancelled",
	CutStarted:        "cut_started",
	CutRangeAdjusted:  "cut_range_adjusted",
	CutStaged:         "cut_staged",
	CutFinished:       "cut_finished",
	CutCancelled:      "cut_cancelled",
	PreviewFailed:     "preview_failed",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Terminal reports whether k ends a session.
func (k EventKind) Terminal() bool {
	switch k {
	case CropFinished, CropCancelled, CutFinished, CutCancelled:
		return true
	}
	return false
}

type transition int

const (
	started transition = iota
	adjusted
	staged
	finished
	cancelled
)

var kinds = map[Mode][5]EventKind{
	ModeCrop: {CropStarted, CropRangeAdjusted, CropStaged, CropFinished, CropCancelled},
	ModeCut:  {CutStarted, CutRangeAdjusted, CutStaged, CutFinished, CutCancelled},
}

func kindOf(m Mode, t transition) EventKind {
	return kinds[m][t]
}

// Event is published on every session transition.
type Event struct {
	Kind    EventKind
	AssetID string
	Mode    Mode
	// Generation of the preview the event refers to; 0 when none.
	Generation uint64
	// Asset is the original on start and cancel, the preview when staged and
	// the committed clip when finished.
	Asset asset.Asset
	// Ranges requested by an adjustment.
	Ranges []compose.TimeRange
	// Levels of the staged preview or the committed clip.
	Levels levels.LevelData
	Err    error
}
