package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamlet/internal/asset"
	"streamlet/internal/feed"
)

func newFeedCommand(ctx *commandContext) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Browse the home rails",
	}

	feedCmd.AddCommand(newFeedContinueCommand(ctx))
	feedCmd.AddCommand(newFeedDiscoverCommand(ctx))
	feedCmd.AddCommand(newFeedUploadsCommand(ctx))

	return feedCmd
}

func newFeedContinueCommand(ctx *commandContext) *cobra.Command {
	var viewerFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "continue",
		Short: "List recently watched assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, documents, closeStores, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer closeStores()

			entries, err := ctx.newCurator(documents).ContinueWatching(cmd.Context(), viewerFlag)
			if err != nil {
				return err
			}

			if jsonFlag {
				views := make([]resumeJSON, len(entries))
				for i, e := range entries {
					views[i] = resumeView(e)
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Nothing in progress.")
				return nil
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.AssetID, e.Title, formatFraction(e.FractionComplete), formatAge(e.UpdatedAt)}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Asset", "Title", "Watched", "Last Seen"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&viewerFlag, "viewer", "", "Viewer id")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of a table")
	_ = cmd.MarkFlagRequired("viewer")
	return cmd
}

func newFeedDiscoverCommand(ctx *commandContext) *cobra.Command {
	var viewerFlag string
	var rankFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List public assets from other uploaders",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := feed.ParseMode(rankFlag)
			if err != nil {
				return err
			}

			_, documents, closeStores, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer closeStores()

			assets, err := ctx.newCurator(documents).Discover(cmd.Context(), viewerFlag, mode)
			if err != nil {
				return err
			}
			return renderAssets(cmd, assets, jsonFlag, "Nothing to discover yet.")
		},
	}

	cmd.Flags().StringVar(&viewerFlag, "viewer", "", "Viewer id")
	cmd.Flags().StringVar(&rankFlag, "rank", "", "Ranking mode: recency or shuffle")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of a table")
	_ = cmd.MarkFlagRequired("viewer")
	return cmd
}

func newFeedUploadsCommand(ctx *commandContext) *cobra.Command {
	var ownerFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "List the viewer's own uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, documents, closeStores, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer closeStores()

			assets, err := ctx.newCurator(documents).OwnUploads(cmd.Context(), ownerFlag)
			if err != nil {
				return err
			}
			return renderAssets(cmd, assets, jsonFlag, "No uploads yet.")
		},
	}

	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Owner id")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of a table")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func renderAssets(cmd *cobra.Command, assets []asset.MediaAsset, asJSON bool, emptyMessage string) error {
	if asJSON {
		views := make([]assetJSON, len(assets))
		for i, a := range assets {
			views[i] = assetView(a)
		}
		return writeJSON(cmd, views)
	}

	out := cmd.OutOrStdout()
	if len(assets) == 0 {
		fmt.Fprintln(out, emptyMessage)
		return nil
	}
	rows := make([][]string, len(assets))
	for i, a := range assets {
		rows[i] = []string{a.ID, a.Title, a.OwnerID, string(a.Visibility), formatAge(a.CreatedAt)}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Asset", "Title", "Owner", "Visibility", "Published"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}
