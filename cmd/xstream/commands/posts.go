package commands

import (
	"fmt"

	"xstream-backend/cmd/xstream/globals"
	"xstream-backend/internal/entities"
	"xstream-backend/internal/pagination"
	"xstream-backend/internal/scrapers/x"

	"github.com/spf13/cobra"
)

type postStreamFunc func(api *x.API, id int64, opts pagination.Options) *pagination.Stream[entities.Post]

var searchProduct string

func init() {
	searchCmd.Flags().StringVarP(&searchProduct, "product", "p", string(x.SearchLatest), "The search tab: Latest, Top or Media.")
	rootCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(
		userPostsCmd("user-tweets <user>", "Streams the posts of a user.", (*x.API).UserTweets),
		userPostsCmd("tweets-and-replies <user>", "Streams the posts and replies of a user.", (*x.API).UserTweetsAndReplies),
		userPostsCmd("likes <user>", "Streams the posts a user liked.", (*x.API).Likes),
		idPostsCmd("list <list-id>", "list", "Streams the latest posts of a list.", (*x.API).ListTimeline),
		idPostsCmd("post-replies <post-id>", "post", "Streams the direct replies to a post.", (*x.API).PostReplies),
	)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Streams the posts matching a search query.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		product := x.SearchProduct(searchProduct)
		switch product {
		case x.SearchLatest, x.SearchTop, x.SearchMedia:
		default:
			return fmt.Errorf("unknown search product %q", searchProduct)
		}

		ctx := cmd.Context()
		stream := globals.Get(ctx).API.Search(args[0], product, streamOptions(ctx))
		return drain(cmd, args, stream, postOutput)
	},
}

func userPostsCmd(use, short string, stream postStreamFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := resolveUser(ctx, args[0])
			if err != nil {
				return err
			}
			return drain(cmd, args, stream(globals.Get(ctx).API, userID, streamOptions(ctx)), postOutput)
		},
	}
}

func idPostsCmd(use, kind, short string, stream postStreamFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(kind, args[0])
			if err != nil {
				return err
			}
			return drain(cmd, args, stream(globals.Get(ctx).API, id, streamOptions(ctx)), postOutput)
		},
	}
}
