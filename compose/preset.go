// SPDX-License-Identifier: EPL-2.0

package compose

import (
	"fmt"
	"strings"
)

// Op names a kind of render.
type Op int

const (
	// OpNormalize converts a fresh recording to the storage format.
	OpNormalize Op = iota + 1
	// OpCrop keeps one range of a clip.
	OpCrop
	// OpCut removes ranges from a clip.
	OpCut
	// OpAppend joins a new segment onto an existing clip.
	OpAppend
	// OpExport produces a shareable file.
	OpExport
)

func (o Op) String() string {
	switch o {
	case OpNormalize:
		return "normalize"
	case OpCrop:
		return "crop"
	case OpCut:
		return "cut"
	case OpAppend:
		return "append"
	case OpExport:
		return "export"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Container is an output file format, named by its extension.
type Container string

const (
	ContainerWAV Container = "wav"
	ContainerM4A Container = "m4a"
)

// Preset describes the file a render produces.
type Preset struct {
	Container Container
	// Lossless is set for passthrough PCM output.
	Lossless bool
}

// Ext is the file extension including the dot.
func (p Preset) Ext() string { return "." + string(p.Container) }

var presets = map[Op]Preset{
	OpNormalize: {Container: ContainerM4A},
	OpCrop:      {Container: ContainerWAV, Lossless: true},
	OpCut:       {Container: ContainerWAV, Lossless: true},
	OpExport:    {Container: ContainerM4A},
}

// containerFor maps an existing clip's extension onto the container appends
// are written in.
func containerFor(ext string) (Container, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "wav", "wave":
		return ContainerWAV, true
	case "m4a", "mp4", "aac":
		return ContainerM4A, true
	}
	return "", false
}

// PresetFor returns the output preset of op. existingExt is only consulted
// for OpAppend, whose output matches the clip being extended.
func PresetFor(op Op, existingExt string) (Preset, error) {
	if op == OpAppend {
		c, ok := containerFor(existingExt)
		if !ok {
			return Preset{}, fmt.Errorf("%w: cannot append to %q", ErrUnsupportedPreset, existingExt)
		}
		return Preset{Container: c, Lossless: c == ContainerWAV}, nil
	}

	p, ok := presets[op]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrUnsupportedPreset, op)
	}
	return p, nil
}
