package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamlet/internal/asset"
)

func newPostCommand(ctx *commandContext) *cobra.Command {
	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Manage channel posts",
	}

	postCmd.AddCommand(newPostCreateCommand(ctx))
	postCmd.AddCommand(newPostListCommand(ctx))

	return postCmd
}

func newPostCreateCommand(ctx *commandContext) *cobra.Command {
	var channelFlag string
	var visibilityFlag string

	cmd := &cobra.Command{
		Use:   "create <content>",
		Short: "Publish a post on your channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visibility, err := asset.ParseVisibility(visibilityFlag)
			if err != nil {
				return err
			}

			_, documents, closeStores, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer closeStores()

			post, err := ctx.newPosts(documents).Create(cmd.Context(), channelFlag, channelFlag, args[0], visibility)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %s\n", post.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&channelFlag, "channel", "", "Channel (owner) id")
	cmd.Flags().StringVar(&visibilityFlag, "visibility", "", "public or private (default public)")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func newPostListCommand(ctx *commandContext) *cobra.Command {
	var channelFlag string
	var allFlag bool
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a channel's posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, documents, closeStores, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer closeStores()

			service := ctx.newPosts(documents)
			list := service.ListPublic
			if allFlag {
				list = service.ListOwn
			}
			listed, err := list(cmd.Context(), channelFlag)
			if err != nil {
				return err
			}

			if jsonFlag {
				views := make([]postJSON, len(listed))
				for i, p := range listed {
					views[i] = postView(p)
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(listed) == 0 {
				fmt.Fprintln(out, "No posts yet.")
				return nil
			}
			rows := make([][]string, len(listed))
			for i, p := range listed {
				rows[i] = []string{p.Content, string(p.Visibility), formatAge(p.CreatedAt)}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Post", "Visibility", "Published"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&channelFlag, "channel", "", "Channel (owner) id")
	cmd.Flags().BoolVar(&allFlag, "all", false, "Include private posts (owner view)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of a table")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}
