// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tag labels a clip.
type Tag struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// Asset is a physical audio file plus its logical identity.
//
// ID stays the same across edits; Path changes every time an edit is committed.
type Asset struct {
	ID        string        `json:"id"`
	Path      string        `json:"path"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"created_at"`
	Tags      []Tag         `json:"tags,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// New creates an asset with a fresh ID for the file at path.
func New(path, title string) Asset {
	return Asset{
		ID:        uuid.NewString(),
		Path:      path,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
}

// Ext returns the container extension without the dot, lower cased.
func (a Asset) Ext() string {
	return Ext(a.Path)
}

// Dir returns the directory holding the asset file.
func (a Asset) Dir() string {
	return filepath.Dir(a.Path)
}

// WithPath returns a copy of a pointing at a new physical file.
func (a Asset) WithPath(path string, duration time.Duration) Asset {
	a.Path = path
	a.Duration = duration
	if len(a.Tags) > 0 {
		a.Tags = append([]Tag(nil), a.Tags...)
	}
	return a
}

// CacheKey identifies one version of the asset's samples.
func (a Asset) CacheKey() string {
	return a.ID + "@" + a.Path
}

// Ext returns the lower cased extension of path without the leading dot.
func Ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
