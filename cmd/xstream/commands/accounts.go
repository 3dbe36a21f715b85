package commands

import (
	"xstream-backend/cmd/xstream/globals"
	"xstream-backend/internal/entities"
	"xstream-backend/internal/pagination"
	"xstream-backend/internal/scrapers/x"

	"github.com/spf13/cobra"
)

type accountStreamFunc func(api *x.API, id int64, opts pagination.Options) *pagination.Stream[entities.Account]

func init() {
	rootCmd.AddCommand(
		accountsCmd("followers <user>", "", "Streams the followers of a user.", (*x.API).Followers),
		accountsCmd("following <user>", "", "Streams the accounts a user follows.", (*x.API).Following),
		accountsCmd("verified-followers <user>", "", "Streams the blue verified followers of a user.", (*x.API).VerifiedFollowers),
		accountsCmd("subscriptions <user>", "", "Streams the accounts a user is subscribed to.", (*x.API).Subscriptions),
		accountsCmd("retweeters <post-id>", "post", "Streams the accounts that reposted a post.", (*x.API).Retweeters),
		accountsCmd("favoriters <post-id>", "post", "Streams the accounts that liked a post.", (*x.API).Favoriters),
	)
}

// accountsCmd creates a command streaming accounts related to its argument, an empty kind
// means the argument is a user (id or login).
func accountsCmd(use, kind, short string, stream accountStreamFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				id  int64
				err error
			)
			if kind == "" {
				id, err = resolveUser(ctx, args[0])
			} else {
				id, err = parseID(kind, args[0])
			}
			if err != nil {
				return err
			}
			return drain(cmd, args, stream(globals.Get(ctx).API, id, streamOptions(ctx)), accountOutput)
		},
	}
}
