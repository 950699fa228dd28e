// SPDX-License-Identifier: EPL-2.0

package vorbis_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ik5/audclip/audio"
	"github.com/ik5/audclip/formats/vorbis"
)

// ExampleDecoder_Decode streams a file and reports its length.
func ExampleDecoder_Decode() {
	f, err := os.Open("input.ogg")
	if err != nil {
		log.Fatal(err)
	}

	src, err := vorbis.Decoder{}.Decode(f)
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close()

	if l, ok := src.(audio.Lengther); ok {
		fmt.Printf("%d frames at %d Hz\n", l.Frames(), src.SampleRate())
	}

	buf := make([]float32, 4096)
	var total int
	for {
		n, err := src.ReadSamples(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal(err)
		}
	}
	fmt.Printf("streamed %d samples\n", total)
}

// ExampleDecoder_Decode_errorHandling shows the sentinel returned for
// data that is not Ogg Vorbis.
func ExampleDecoder_Decode_errorHandling() {
	_, err := vorbis.Decoder{}.Decode(bytes.NewReader([]byte("not an ogg file")))
	fmt.Println(errors.Is(err, vorbis.ErrNotVorbisFile))
	// Output:
	// true
}
