package commands

import (
	"context"
	"fmt"
	"io"

	"xstream-backend/cmd/xstream/globals"
	"xstream-backend/internal/archive"
	"xstream-backend/internal/components/chrono"
	"xstream-backend/internal/components/telemetry"
	"xstream-backend/internal/entities"
	"xstream-backend/internal/pagination"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const (
	report_watch_tick      = "watch.tick"
	report_watch_new_posts = "watch.new-posts"
)

// defaultWatchLimit bounds a tick when --limit isn't given, the first tick against an empty
// archive would otherwise walk the whole search.
const defaultWatchLimit = 200

var watchSchedule string

func init() {
	watchCmd.Flags().StringVarP(&watchSchedule, "schedule", "s", "@every 15m", "The cron schedule searches are repeated on.")
	rootCmd.AddCommand(watchCmd)
}

// watcher archives the latest posts of a search, stopping each walk at the first post the
// archive already has.
type watcher struct {
	search func(opts pagination.Options) *pagination.Stream[entities.Post]
	store  *archive.Store
	tel    telemetry.API
	limit  int
	out    io.Writer
	label  string
}

func (w watcher) tick(ctx context.Context) {
	run, err := w.store.BeginRun(ctx, w.label)
	if err != nil {
		w.tel.ReportBroken(report_watch_tick, err)
		return
	}

	stream := w.search(pagination.Options{Limit: w.limit})
	var added int64
	for stream.Next(ctx) {
		post := stream.Item()
		known, err := w.store.KnownPost(ctx, post.IDStr)
		if err != nil {
			w.tel.ReportBroken(report_watch_tick, err)
			return
		}
		if known {
			break
		}
		err = w.store.SavePost(ctx, run.ID, post)
		if err != nil {
			w.tel.ReportBroken(report_watch_tick, err)
			return
		}
		added++
	}
	if err := stream.Err(); err != nil {
		w.tel.ReportBroken(report_watch_tick, err)
	}

	w.tel.ReportCount(report_watch_new_posts, added)
	fmt.Fprintf(w.out, "%s new posts (run %s)\n", humanize.Comma(added), run.ID)
}

var watchCmd = &cobra.Command{
	Use:   "watch <query> --db <path/to/archive.db> [--schedule <cron spec>]",
	Short: "Archives new posts matching a search query on a schedule.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g := globals.Get(ctx)

		store, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		w := watcher{
			search: func(opts pagination.Options) *pagination.Stream[entities.Post] {
				opts.EmptyPageTolerance = g.EmptyPageTolerance
				return g.API.Search(args[0], "", opts)
			},
			store: store,
			tel:   telemetry.NewScopedAPI("xstream", g.Tel),
			limit: g.Limit,
			out:   cmd.ErrOrStderr(),
			label: "watch " + args[0],
		}
		if w.limit <= 0 {
			w.limit = defaultWatchLimit
		}

		scheduler := chrono.NewStandardCron(g.Tel)
		err = scheduler.Cron(watchSchedule, func() {
			w.tick(ctx)
		})
		if err != nil {
			return err
		}

		w.tick(ctx)
		scheduler.Start()
		fmt.Fprintf(cmd.ErrOrStderr(), "next search %s\n", humanize.Time(scheduler.Next()))

		<-ctx.Done()
		<-scheduler.Stop().Done()
		return nil
	},
}
