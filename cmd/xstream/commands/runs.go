package commands

import (
	"errors"
	"fmt"

	"xstream-backend/cmd/xstream/globals"
	"xstream-backend/cmd/xstream/utils"
	"xstream-backend/internal/archive"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func openArchive(cmd *cobra.Command) (*archive.Store, error) {
	g := globals.Get(cmd.Context())
	if g.DB == "" {
		return nil, errors.New("--db is required")
	}
	return archive.Open(cmd.Context(), g.DB)
}

var runsCmd = &cobra.Command{
	Use:   "runs --db <path/to/archive.db>",
	Short: "Lists the runs saved in an archive.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(cmd.Context())
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Run", "Command", "Started"})
		for _, run := range runs {
			t.AppendRow(table.Row{run.ID, run.Command, humanize.Time(run.Started)})
		}
		t.Render()
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Prints the posts and accounts saved by a run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		posts, err := store.Posts(ctx, args[0])
		if err != nil {
			return err
		}
		accounts, err := store.Accounts(ctx, args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, obj := range append(posts, accounts...) {
			buff, err := json.Marshal(obj)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(buff))
		}
		return nil
	},
}
