package commands

import (
	"strings"

	"xstream-backend/cmd/xstream/globals"
	"xstream-backend/internal/entities"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(userCmd)
}

var postCmd = &cobra.Command{
	Use:   "post <post-id>",
	Short: "Fetches a single post with its quoted and reposted posts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("post", args[0])
		if err != nil {
			return err
		}
		post, err := globals.Get(ctx).API.PostDetails(ctx, id)
		if err != nil {
			return err
		}
		return emit(cmd, args, post, postOutput)
	},
}

var userCmd = &cobra.Command{
	Use:   "user <id | login>",
	Short: "Fetches a single account by id or login.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		api := globals.Get(ctx).API

		var (
			account entities.Account
			err     error
		)
		id, parseErr := entities.ParseID(args[0])
		if parseErr == nil {
			account, err = api.UserByID(ctx, id)
		} else {
			account, err = api.UserByLogin(ctx, strings.TrimPrefix(args[0], "@"))
		}
		if err != nil {
			return err
		}
		return emit(cmd, args, account, accountOutput)
	},
}
