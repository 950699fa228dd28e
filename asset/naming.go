// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// File name suffixes other components rely on to recognise work files.
const (
	StagingSuffix = "_staging"
	CroppedSuffix = "_cropped"
	CutSuffix     = "_cut"
)

// StagingPath is the working copy of an asset for an edit or a recording.
func StagingPath(dir, id, ext string) string {
	return filepath.Join(dir, id+StagingSuffix+"."+ext)
}

// CroppedPath is the crop preview of an asset.
func CroppedPath(dir, id, ext string) string {
	return filepath.Join(dir, id+CroppedSuffix+"."+ext)
}

// CutPath is the cut preview of an asset.
func CutPath(dir, id, ext string) string {
	return filepath.Join(dir, id+CutSuffix+"."+ext)
}

// PendingPath is where generation gen of a preview is rendered before it is
// promoted to final.
func PendingPath(final string, gen uint64) string {
	ext := filepath.Ext(final)
	return strings.TrimSuffix(final, ext) + "." + strconv.FormatUint(gen, 10) + ext
}

// CommittedPath returns a new, unique file name for a committed version of id.
func CommittedPath(dir, id, ext string) string {
	return filepath.Join(dir, id+"-"+uuid.NewString()[:8]+"."+ext)
}

// IsTempPath reports whether path follows one of the work-file naming conventions.
//
// Prefer tracking temp files explicitly; this exists for callers that only see paths.
func IsTempPath(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range []string{StagingSuffix, CroppedSuffix, CutSuffix} {
		if strings.Contains(base, suffix+".") {
			return true
		}
	}
	return false
}
