// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/ik5/audclip/compose"
	"github.com/ik5/audclip/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type editFlags struct {
	start, end time.Duration
	ranges     []string
	cancel     bool
}

func newEditCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Run a crop or cut session that replaces the clip in place",
		Long: "Edit opens a session on a clip, renders a preview of the requested change\n" +
			"and then applies it. Applying writes the result next to the original under a\n" +
			"new name and removes the original. With --cancel the preview is rendered and\n" +
			"discarded, leaving the original untouched.",
	}
	cmd.AddCommand(newEditModeCommand(a, session.ModeCrop), newEditModeCommand(a, session.ModeCut))
	return cmd
}

func newEditModeCommand(a *app, mode session.Mode) *cobra.Command {
	var f editFlags
	cmd := &cobra.Command{
		Use:  fmt.Sprintf("%s FILE", mode),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEdit(cmd, mode, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&f.cancel, "cancel", false, "discard the preview instead of applying it")
	switch mode {
	case session.ModeCrop:
		cmd.Short = "Keep only the audio between --start and --end"
		fl.DurationVar(&f.start, "start", 0, "first instant to keep")
		fl.DurationVar(&f.end, "end", 0, "instant after the last one to keep")
		_ = cmd.MarkFlagRequired("end")
	case session.ModeCut:
		cmd.Short = "Remove the given ranges"
		fl.StringSliceVarP(&f.ranges, "range", "r", nil, "range to remove as START:END, repeatable")
		_ = cmd.MarkFlagRequired("range")
	}
	return cmd
}

func (a *app) runEdit(cmd *cobra.Command, mode session.Mode, path string, f editFlags) (err error) {
	var ranges []compose.TimeRange
	if mode == session.ModeCut {
		if ranges, err = parseRanges(f.ranges); err != nil {
			return err
		}
	}
	clip, err := fileAsset(path)
	if err != nil {
		return err
	}

	mgr := a.kit.Sessions()
	defer func() {
		if cerr := mgr.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	unsubscribe := mgr.Subscribe(func(e session.Event) {
		fields := []zap.Field{
			zap.Stringer("event", e.Kind),
			zap.String("asset_id", e.AssetID),
			zap.Uint64("generation", e.Generation),
		}
		if e.Err != nil {
			fields = append(fields, zap.Error(e.Err))
		}
		a.log.Info("edit session", fields...)
	})
	defer unsubscribe()

	var sess session.Session
	if mode == session.ModeCrop {
		if sess, err = mgr.StartCrop(clip); err != nil {
			return err
		}
		_, err = mgr.AdjustCrop(sess.Original.ID, f.start, f.end)
	} else {
		if sess, err = mgr.StartCut(clip); err != nil {
			return err
		}
		_, err = mgr.AdjustCut(sess.Original.ID, ranges)
	}
	if err != nil {
		return errors.Join(err, mgr.Cancel(sess.Original.ID))
	}

	if f.cancel {
		if err := mgr.Cancel(sess.Original.ID); err != nil {
			return err
		}
		printf(cmd.OutOrStdout(), "cancelled\t%s\n", clip.Path)
		return nil
	}

	res, err := mgr.Apply(cmd.Context(), sess.Original.ID)
	if err != nil {
		if errors.Is(err, session.ErrNothingStaged) {
			err = fmt.Errorf("%s preview could not be rendered: %w", mode, err)
		}
		return errors.Join(err, mgr.Cancel(sess.Original.ID))
	}
	if res.CleanupErr != nil {
		a.log.Warn("leftover files after edit", zap.Error(res.CleanupErr))
	}
	printf(cmd.OutOrStdout(), "%s\t%s\t%d bins\n", res.Asset.Path, res.Asset.Duration, res.Levels.Len())
	return nil
}
