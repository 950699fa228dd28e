// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ik5/audclip/compose"
	"github.com/spf13/cobra"
)

func newTrimCommand(a *app) *cobra.Command {
	var (
		start, end time.Duration
		out        string
	)
	cmd := &cobra.Command{
		Use:   "trim FILE",
		Short: "Keep only the audio between --start and --end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clip, err := fileAsset(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("end") {
				track, err := a.composer.Load(cmd.Context(), clip.Path)
				if err != nil {
					return err
				}
				end = compose.DurationOf(track.Frames, track.SampleRate)
			}
			if out == "" {
				out = siblingPath(clip.Path, "trimmed")
			}
			res, err := a.composer.Trim(cmd.Context(), clip, start, end, out)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\t%s\n", res.Path, res.Duration)
			return nil
		},
	}
	cmd.Flags().DurationVar(&start, "start", 0, "first instant to keep")
	cmd.Flags().DurationVar(&end, "end", 0, "instant after the last one to keep (default end of file)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default FILE_trimmed.EXT)")
	return cmd
}

func newExciseCommand(a *app) *cobra.Command {
	var (
		specs []string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "excise FILE --range START:END...",
		Short: "Remove one or more time ranges",
		Example: "  audclip excise talk.wav --range 1s:2.5s --range 10s:12s\n" +
			"  audclip excise talk.m4a -r 0s:500ms -o clean.m4a",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ranges, err := parseRanges(specs)
			if err != nil {
				return err
			}
			clip, err := fileAsset(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = siblingPath(clip.Path, "excised")
			}
			res, err := a.composer.Excise(cmd.Context(), clip, ranges, out)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\t%s\n", res.Path, res.Duration)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&specs, "range", "r", nil, "range to remove as START:END, repeatable")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default FILE_excised.EXT)")
	_ = cmd.MarkFlagRequired("range")
	return cmd
}

func newCombineCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "combine FILE FILE...",
		Short: "Concatenate clips into the container of the first one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, len(args))
			for i, p := range args {
				clip, err := fileAsset(p)
				if err != nil {
					return err
				}
				paths[i] = clip.Path
			}
			if out == "" {
				out = siblingPath(paths[0], "combined")
			}
			res, err := a.composer.Combine(cmd.Context(), paths, out)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\t%s\n", res.Path, res.Duration)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default FIRST_combined.EXT)")
	return cmd
}

// newConvertCommand builds normalize (to M4A) and export (to WAV).
func newConvertCommand(a *app, op compose.Op) *cobra.Command {
	preset, _ := compose.PresetFor(op, "")
	var out string
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s FILE", op),
		Short: fmt.Sprintf("Re-encode a clip as %s", strings.ToUpper(string(preset.Container))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clip, err := fileAsset(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				base := strings.TrimSuffix(clip.Path, filepath.Ext(clip.Path))
				out = base + preset.Ext()
				if out == clip.Path {
					out = siblingPath(clip.Path, op.String())
				}
			}
			run := a.composer.Normalize
			if op == compose.OpExport {
				run = a.composer.Export
			}
			res, err := run(cmd.Context(), clip.Path, out)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\t%s\n", res.Path, res.Duration)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file")
	return cmd
}

// siblingPath returns dir/NAME_tag.EXT for path dir/NAME.EXT.
func siblingPath(path, tag string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + tag + ext
}
