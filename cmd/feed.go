package cmd

import (
	"fmt"
	"log/slog"

	"github.com/voxdroplab/voxdrop/internal/api"

	"github.com/spf13/cobra"
)

var feedChannel string

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show recent posts from the feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := api.NewClient(&cfg.API)
		if err != nil {
			return fmt.Errorf("failed to create API client: %w", err)
		}

		var posts []api.Post
		if feedChannel != "" {
			posts, err = client.ChannelFeed(cmd.Context(), feedChannel)
		} else {
			posts, err = client.Feed(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to fetch feed: %w", err)
		}

		printPosts(posts)
		return nil
	},
}

var feedRepliesCmd = &cobra.Command{
	Use:   "replies [post-id]",
	Short: "Show the replies to a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := api.NewClient(&cfg.API)
		if err != nil {
			return fmt.Errorf("failed to create API client: %w", err)
		}

		posts, err := client.Replies(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch replies: %w", err)
		}

		printPosts(posts)
		return nil
	},
}

var feedLikeCmd = &cobra.Command{
	Use:   "like [post-id]",
	Short: "Like a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := api.NewClient(&cfg.API)
		if err != nil {
			return fmt.Errorf("failed to create API client: %w", err)
		}

		if err := client.Like(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to like post: %w", err)
		}

		slog.Info("Post liked", "post_id", args[0])
		return nil
	},
}

var feedChannelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the available channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := api.NewClient(&cfg.API)
		if err != nil {
			return fmt.Errorf("failed to create API client: %w", err)
		}

		channels, err := client.Channels(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch channels: %w", err)
		}

		for _, ch := range channels {
			fmt.Printf("%-24s %s (%d posts)\n", ch.ID, ch.Name, ch.PostCount)
		}
		return nil
	},
}

func printPosts(posts []api.Post) {
	if len(posts) == 0 {
		fmt.Println("No posts.")
		return
	}
	for _, p := range posts {
		fmt.Printf("%s  @%-16s %3ds  ♥%-3d ↩%-3d  %s\n",
			p.CreatedAt.Format("2006-01-02 15:04"),
			p.UserName, p.DurationSeconds, p.LikeCount, p.ReplyCount, p.ID)
	}
}

func init() {
	feedCmd.Flags().StringVarP(&feedChannel, "channel", "c", "", "show a channel feed instead of the global feed")
	feedCmd.AddCommand(feedRepliesCmd)
	feedCmd.AddCommand(feedLikeCmd)
	feedCmd.AddCommand(feedChannelsCmd)
}
