// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"io"
	"os"
	"time"

	"github.com/ik5/audclip/recording"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type recordFlags struct {
	input       string
	rate        int
	channels    int
	dir         string
	title       string
	continueOf  string
	maxDuration time.Duration
}

func newRecordCommand(a *app) *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record raw s16le PCM into a new clip or onto an existing one",
		Example: "  arecord -f S16_LE -r 44100 -c 1 -t raw | audclip record --title memo\n" +
			"  audclip record --input take.raw --continue clips/memo.m4a",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRecord(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "-", "raw PCM file, - for stdin")
	fl.IntVar(&f.rate, "rate", 44100, "sample rate of the input")
	fl.IntVar(&f.channels, "channels", 1, "channel count of the input")
	fl.StringVar(&f.dir, "dir", "", "directory for new clips (default storage.dir)")
	fl.StringVar(&f.title, "title", "", "title of a new clip")
	fl.StringVar(&f.continueOf, "continue", "", "append the take to this clip")
	fl.DurationVar(&f.maxDuration, "max-duration", 0, "cap the take (default recording.max_duration)")
	return cmd
}

func (a *app) runRecord(cmd *cobra.Command, f recordFlags) error {
	var in io.Reader = struct{ io.Reader }{cmd.InOrStdin()}
	if f.input != "-" {
		file, err := os.Open(f.input)
		if err != nil {
			return err
		}
		in = file
	}
	src, err := recording.NewRawSource(in, f.rate, f.channels)
	if err != nil {
		if c, ok := in.(io.Closer); ok {
			_ = c.Close()
		}
		return err
	}

	maxDur := a.cfg.Recording.MaxDuration
	if f.maxDuration > 0 {
		maxDur = f.maxDuration
	}
	rec := a.kit.Recorder(recording.WithMaxDuration(maxDur))
	defer rec.Close()
	unsubscribe := rec.Subscribe(func(e recording.Event) {
		if e.Kind == recording.LevelsUpdated {
			a.log.Debug("recording levels", zap.Duration("elapsed", e.Elapsed), zap.Int("bins", e.Levels.Len()))
			return
		}
		a.log.Info("recording", zap.Stringer("event", e.Kind), zap.Duration("elapsed", e.Elapsed))
	})
	defer unsubscribe()

	opts := recording.Options{Dir: f.dir, Title: f.title}
	if opts.Dir == "" && f.continueOf == "" {
		opts.Dir = a.cfg.Storage.Dir
	}
	if f.continueOf != "" {
		prev, err := fileAsset(f.continueOf)
		if err != nil {
			_ = src.Close()
			return err
		}
		opts.Continue = &prev
		opts.Levels = a.kit.Levels.Generate(cmd.Context(), prev, a.kit.Policy())
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			_ = src.Close()
			return err
		}
	}

	take, err := rec.Record(cmd.Context(), src, opts)
	if err != nil {
		return err
	}
	if take.CleanupErr != nil {
		a.log.Warn("previous clip not removed", zap.String("path", take.SupersededPath), zap.Error(take.CleanupErr))
	}
	capped := ""
	if take.Capped {
		capped = "\tcapped"
	}
	printf(cmd.OutOrStdout(), "%s\t%s\t%d bins%s\n", take.Asset.Path, take.Asset.Duration, take.Levels.Len(), capped)
	return nil
}
