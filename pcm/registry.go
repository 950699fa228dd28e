// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/formats/aiff"
	"github.com/ik5/audclip/formats/ffmpeg"
	"github.com/ik5/audclip/formats/mp3"
	"github.com/ik5/audclip/formats/vorbis"
	"github.com/ik5/audclip/formats/wav"
)

// DefaultRegistry maps every extension the module reads to a decoder. The
// pure Go decoders handle wav, mp3, ogg and aiff; codec handles the MPEG-4
// family. A nil codec leaves those extensions unregistered.
func DefaultRegistry(codec *ffmpeg.Codec) *audio.Registry {
	reg := audio.NewRegistry()

	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("aiff", aiff.Decoder{})

	if codec != nil {
		for _, ext := range []string{"m4a", "aac", "mp4", "caf", "3gp", "flac", "opus", "webm"} {
			reg.RegisterFile(ext, codec)
		}
	}
	return reg
}
