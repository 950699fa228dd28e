// SPDX-License-Identifier: EPL-2.0

package audclip_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/audclip"
	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/compose"
	"github.com/ik5/audclip/config"
	"github.com/ik5/audclip/formats/wav"
)

// writeMemo writes ten seconds of a quiet tone at 44.1 kHz.
func writeMemo(dir string) (string, error) {
	const rate = 44100
	samples := make([]int16, 10*rate)
	for i := range samples {
		samples[i] = int16(1000 * ((i/50)%2*2 - 1))
	}
	path := filepath.Join(dir, "memo.wav")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := wav.WriteWAV16(f, rate, 1, samples); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// Example computes the waveform of a clip and trims it.
func Example() {
	dir, err := os.MkdirTemp("", "audclip-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	path, err := writeMemo(dir)
	if err != nil {
		fmt.Println(err)
		return
	}

	kit := audclip.New(config.Default())
	defer kit.Close()

	ctx := context.Background()
	clip := asset.New(path, "Memo")

	data := kit.Levels.Generate(ctx, clip, kit.Policy())
	fmt.Println("bins:", data.Len())

	trimmed, err := kit.Composer.Trim(ctx, clip, 2*time.Second, 5*time.Second, filepath.Join(dir, "memo_trimmed.wav"))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("trimmed:", trimmed.Duration)

	_, err = kit.Composer.Excise(ctx, trimmed, []compose.TimeRange{{Start: 8 * time.Second, End: 9 * time.Second}},
		filepath.Join(dir, "memo_cut.wav"))
	fmt.Println("out of range:", err != nil)
	// Output:
	// bins: 100
	// trimmed: 3s
	// out of range: true
}
