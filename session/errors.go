// SPDX-License-Identifier: EPL-2.0

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionActive indicates the asset already has an open session.
	ErrSessionActive = errors.New("edit session already active")

	// ErrNoSession indicates the asset has no open session.
	ErrNoSession = errors.New("no edit session")

	// ErrWrongMode indicates a crop call on a cut session or the reverse.
	ErrWrongMode = errors.New("wrong edit mode")

	// ErrNothingStaged indicates Apply before any preview was staged.
	ErrNothingStaged = errors.New("nothing staged")

	// ErrResolving indicates the session is being applied or cancelled.
	ErrResolving = errors.New("edit session is resolving")

	// ErrManagerClosed indicates use of a closed Manager.
	ErrManagerClosed = errors.New("session manager closed")
)

// FileSystemError reports a failed file operation while staging, committing
// or cleaning up.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("session %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }
