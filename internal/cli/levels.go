// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"encoding/json"
	"runtime"

	"github.com/ik5/audclip"
	"github.com/ik5/audclip/levels"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type levelsReport struct {
	Path   string           `json:"path"`
	ID     string           `json:"id"`
	Bins   int              `json:"bins"`
	Levels levels.LevelData `json:"levels"`
}

func newLevelsCommand(a *app) *cobra.Command {
	var width, spacing float64

	cmd := &cobra.Command{
		Use:   "levels FILE...",
		Short: "Print waveform levels as JSON, one object per line",
		Long: "Decodes each file and prints its waveform levels. Files that cannot be\n" +
			"decoded print empty levels. Results are cached in redis when configured.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("width") {
				a.cfg.Levels.Width = width
			}
			if cmd.Flags().Changed("spacing") {
				a.cfg.Levels.Spacing = spacing
			}
			policy := audclip.PolicyFor(a.cfg.Levels)
			gen := a.kit.Levels

			reports := make([]levelsReport, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			workers := a.cfg.Workers
			if workers <= 0 {
				workers = runtime.GOMAXPROCS(0)
			}
			g.SetLimit(workers)
			for i, path := range args {
				g.Go(func() error {
					clip, err := fileAsset(path)
					if err != nil {
						return err
					}
					d := gen.Generate(ctx, clip, policy)
					reports[i] = levelsReport{Path: path, ID: clip.ID, Bins: d.Len(), Levels: d}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range reports {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "fit the waveform to this many pixels instead of 10 bins per second")
	cmd.Flags().Float64Var(&spacing, "spacing", 1, "pixels per bar when --width is set")
	return cmd
}
