package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Record and inspect playback progress",
	}

	watchCmd.AddCommand(newWatchRecordCommand(ctx))
	watchCmd.AddCommand(newWatchResumeCommand(ctx))

	return watchCmd
}

func newWatchRecordCommand(ctx *commandContext) *cobra.Command {
	var viewerFlag string
	var assetFlag string
	var titleFlag string
	var positionFlag float64
	var durationFlag float64

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Persist a playback position",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, documents, closeStores, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer closeStores()

			persisted, err := ctx.newSynchronizer(documents).Record(cmd.Context(),
				viewerFlag, assetFlag, titleFlag, positionFlag, durationFlag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !persisted {
				fmt.Fprintln(out, "Observation dropped: no usable duration.")
				return nil
			}
			fmt.Fprintf(out, "Recorded %s at %.0fs of %.0fs\n", assetFlag, positionFlag, durationFlag)
			return nil
		},
	}

	cmd.Flags().StringVar(&viewerFlag, "viewer", "", "Viewer id")
	cmd.Flags().StringVar(&assetFlag, "asset", "", "Asset id")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Title snapshot for the continue-watching rail")
	cmd.Flags().Float64Var(&positionFlag, "position", 0, "Playback position in seconds")
	cmd.Flags().Float64Var(&durationFlag, "duration", 0, "Media duration in seconds")
	_ = cmd.MarkFlagRequired("viewer")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}

func newWatchResumeCommand(ctx *commandContext) *cobra.Command {
	var viewerFlag string
	var assetFlag string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Show the saved playback position",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, documents, closeStores, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer closeStores()

			position, ok, err := ctx.newSynchronizer(documents).Resume(cmd.Context(), viewerFlag, assetFlag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "No saved position; starting from the beginning.")
				return nil
			}
			fmt.Fprintf(out, "Resume at %.0fs\n", position)
			return nil
		},
	}

	cmd.Flags().StringVar(&viewerFlag, "viewer", "", "Viewer id")
	cmd.Flags().StringVar(&assetFlag, "asset", "", "Asset id")
	_ = cmd.MarkFlagRequired("viewer")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}
