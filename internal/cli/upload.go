// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"github.com/ik5/audclip/asset"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newUploadCommand(a *app) *cobra.Command {
	var remove []string
	cmd := &cobra.Command{
		Use:   "upload [FILE...]",
		Short: "Copy clips to the configured MinIO bucket",
		Long: "Uploads each file under PREFIX/ID/NAME and prints the object key.\n" +
			"Keys given with --remove are deleted first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(remove) == 0 {
				return cmd.Usage()
			}
			store, err := a.kit.Store()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			for _, key := range remove {
				if err := store.Remove(ctx, key); err != nil {
					return err
				}
			}
			if len(args) == 0 {
				return nil
			}
			if err := store.EnsureBucket(ctx); err != nil {
				return err
			}

			clips := make([]asset.Asset, len(args))
			for i, p := range args {
				if clips[i], err = fileAsset(p); err != nil {
					return err
				}
			}
			keys := make([]string, len(clips))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(4)
			for i, clip := range clips {
				g.Go(func() (err error) {
					keys[i], err = store.Upload(gctx, clip)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for i, key := range keys {
				printf(cmd.OutOrStdout(), "%s\t%s\n", clips[i].Path, key)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "object key to delete, repeatable")
	return cmd
}
