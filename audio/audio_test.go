// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/ik5/audclip/internal/audiotest"
)

type mockDecoder struct {
	name string
}

func (d *mockDecoder) Decode(r io.Reader) (Source, error) {
	return audiotest.NewSilentSource(44100, 2, 100), nil
}

type mockFileDecoder struct{}

func (mockFileDecoder) DecodeFile(ctx context.Context, path string) (Source, error) {
	return nil, errors.New("not implemented")
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &mockDecoder{name: "wav"}

	registry.Register("wav", decoder)

	got, ok := registry.Get("wav")
	if !ok {
		t.Fatal("Registry.Get() failed to retrieve registered decoder")
	}
	if got != decoder {
		t.Error("Registry.Get() returned different decoder instance")
	}

	if _, ok := registry.GetFile("wav"); ok {
		t.Error("Registry.GetFile() returned a stream-only decoder")
	}
}

func TestRegistry_ExtensionNormalization(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(".MP3", &mockDecoder{name: "mp3"})
	registry.RegisterFile("M4A", mockFileDecoder{})

	tests := []struct {
		format   string
		wantOK   bool
		wantFile bool
	}{
		{"mp3", true, false},
		{".mp3", true, false},
		{"Mp3", true, false},
		{"m4a", false, true},
		{".m4a", false, true},
		{"flac", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			if _, ok := registry.Get(tt.format); ok != tt.wantOK {
				t.Errorf("Get(%q) ok = %v, want %v", tt.format, ok, tt.wantOK)
			}
			if _, ok := registry.GetFile(tt.format); ok != tt.wantFile {
				t.Errorf("GetFile(%q) ok = %v, want %v", tt.format, ok, tt.wantFile)
			}
		})
	}

	formats := registry.Formats()
	sort.Strings(formats)
	if len(formats) != 2 || formats[0] != "m4a" || formats[1] != "mp3" {
		t.Errorf("Formats() = %v, want [m4a mp3]", formats)
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	first := &mockDecoder{name: "first"}
	second := &mockDecoder{name: "second"}

	registry.Register("wav", first)
	registry.Register("wav", second)

	got, _ := registry.Get("wav")
	if got != second {
		t.Error("Registry.Register() did not overwrite the previous decoder")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Register("wav", &mockDecoder{name: "wav"})
		}()
		go func() {
			defer wg.Done()
			_, _ = registry.Get("wav")
			if i%10 == 0 {
				_ = registry.Formats()
			}
		}()
	}
	wg.Wait()

	if _, ok := registry.Get("wav"); !ok {
		t.Error("decoder missing after concurrent registration")
	}
}

func BenchmarkRegistry_Get(b *testing.B) {
	registry := NewRegistry()
	registry.Register("wav", &mockDecoder{name: "wav"})

	b.ReportAllocs()
	for range b.N {
		_, _ = registry.Get("wav")
	}
}
