// SPDX-License-Identifier: EPL-2.0

package recording

import (
	"fmt"
	"time"

	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/levels"
)

// EventKind names a recorder notification.
type EventKind int

const (
	RecordingStarted EventKind = iota + 1
	// LevelsUpdated carries the levels so far after each new bin.
	LevelsUpdated
	// RecordingCapped is published when the maximum duration is reached;
	// the take is finalized right after.
	RecordingCapped
	RecordingFinished
	// RecordingDiscarded is published when a take is abandoned.
	RecordingDiscarded
)

func (k EventKind) String() string {
	switch k {
	case RecordingStarted:
		return "recording_started"
	case LevelsUpdated:
		return "levels_updated"
	case RecordingCapped:
		return "recording_capped"
	case RecordingFinished:
		return "recording_finished"
	case RecordingDiscarded:
		return "recording_discarded"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is published while a take is recorded.
type Event struct {
	Kind    EventKind
	AssetID string
	Elapsed time.Duration
	Levels  levels.LevelData
	// Asset is set on RecordingFinished.
	Asset asset.Asset
	Err   error
}
