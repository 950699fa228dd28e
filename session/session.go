// SPDX-License-Identifier: EPL-2.0

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/levels"
)

// Mode is the kind of edit a session performs.
type Mode int

const (
	ModeCrop Mode = iota + 1
	ModeCut
)

func (m Mode) String() string {
	switch m {
	case ModeCrop:
		return "crop"
	case ModeCut:
		return "cut"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// State of an edit session.
type State int

const (
	StateIdle State = iota
	StateEditing
	StateStaged
	StateApplied
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateStaged:
		return "staged"
	case StateApplied:
		return "applied"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is a snapshot of an edit in progress.
type Session struct {
	Original asset.Asset
	Working  asset.Asset
	// Staged is the latest completed preview, nil until one exists.
	Staged *asset.Asset
	State  State
	Mode   Mode
	// Generation is the newest requested preview.
	Generation uint64
}

// Result describes an applied edit.
type Result struct {
	// Asset is the committed clip: same ID as the original, new path.
	Asset  asset.Asset
	Levels levels.LevelData
	// SupersededPath is the original file, removed unless CleanupErr says otherwise.
	SupersededPath string
	// CleanupErr collects failures to remove superseded and temporary files.
	CleanupErr error
}

// editSession is the live state behind a Session. The manager's lock guards
// the map it sits in; mtx guards the fields.
type editSession struct {
	mtx sync.Mutex

	original asset.Asset
	working  asset.Asset
	staged   *asset.Asset
	mode     Mode
	state    State

	gen       uint64
	resolving bool

	// ctx ends when the session is cancelled; each preview gets a child
	// that is cancelled as soon as a newer preview is requested.
	ctx           context.Context
	cancel        context.CancelFunc
	cancelPreview context.CancelFunc
	inflight      sync.WaitGroup

	// temps lists every work file this session created and still owns
	temps map[string]struct{}
}

func (s *editSession) snapshot() Session {
	out := Session{
		Original:   s.original,
		Working:    s.working,
		State:      s.state,
		Mode:       s.mode,
		Generation: s.gen,
	}
	if s.staged != nil {
		staged := *s.staged
		out.Staged = &staged
	}
	return out
}

func (s *editSession) track(path string)   { s.temps[path] = struct{}{} }
func (s *editSession) untrack(path string) { delete(s.temps, path) }
