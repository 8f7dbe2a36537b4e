package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"streamlet/internal/asset"
	"streamlet/internal/logging"
	"streamlet/internal/services"
	"streamlet/internal/upload"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var ownerFlag string
	var titleFlag string
	var visibilityFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "publish <media-file>",
		Short: "Upload a media file and commit it to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visibility, err := asset.ParseVisibility(visibilityFlag)
			if err != nil {
				return err
			}

			source, err := filepath.Abs(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve media path: %w", err)
			}
			file, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("open media file: %w", err)
			}
			defer file.Close()
			info, err := file.Stat()
			if err != nil {
				return fmt.Errorf("inspect media file: %w", err)
			}

			objects, documents, closeStores, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer closeStores()

			coordinator := ctx.newCoordinator(objects, documents)
			assetID, err := coordinator.Reserve(ownerFlag)
			if err != nil {
				return err
			}
			opCtx := services.WithAssetID(services.WithOwnerID(cmd.Context(), ownerFlag), assetID)

			transfer, err := coordinator.BeginTransfer(opCtx, assetID,
				file, info.Size(), detectContentType(source), filepath.Base(source))
			if err != nil {
				return err
			}

			// Poster derivation runs alongside the transfer; its outcome never
			// blocks the commit.
			posterCh := make(chan string, 1)
			go func() {
				posterCh <- ctx.derivePoster(opCtx, coordinator, assetID, source)
			}()

			renderTransferProgress(cmd, transfer)
			if err := transfer.Wait(opCtx); err != nil {
				return err
			}

			committed, err := coordinator.Commit(opCtx, assetID, upload.CommitMetadata{
				Title:      titleFlag,
				Visibility: visibility,
				PosterURL:  <-posterCh,
			})
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, assetView(committed))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Asset", committed.ID},
					{"Title", committed.Title},
					{"Visibility", string(committed.Visibility)},
					{"Playable URL", committed.PlayableURL},
					{"Poster URL", committed.PosterURL},
				},
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Owner id publishing the media")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Asset title")
	cmd.Flags().StringVar(&visibilityFlag, "visibility", "", "public or private (default public)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of a table")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// derivePoster extracts and stores a poster frame, returning its reference
// or empty when derivation fails for any reason.
func (c *commandContext) derivePoster(ctx context.Context, coordinator *upload.Coordinator, assetID, source string) string {
	frame, err := c.newExtractor().Derive(ctx, source)
	if err != nil {
		c.ensureLogger().Warn("poster derivation failed; using placeholder",
			logging.String("asset", assetID), logging.Error(err))
		return ""
	}
	ref, err := coordinator.PublishPoster(ctx, assetID, frame)
	if err != nil {
		c.ensureLogger().Warn("poster upload failed; using placeholder",
			logging.String("asset", assetID), logging.Error(err))
		return ""
	}
	return ref
}

func renderTransferProgress(cmd *cobra.Command, transfer *upload.Transfer) {
	out := cmd.OutOrStdout()
	interactive := stdoutIsTerminal()
	for p := range transfer.Progress() {
		if interactive {
			fmt.Fprintf(out, "\ruploading %5.1f%%", p.Percent())
		}
	}
	if interactive {
		fmt.Fprintln(out)
	}
}
