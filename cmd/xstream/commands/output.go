package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"xstream-backend/cmd/xstream/globals"
	"xstream-backend/cmd/xstream/utils"
	"xstream-backend/internal/archive"
	"xstream-backend/internal/entities"
	"xstream-backend/internal/pagination"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// output describes how one kind of entity is printed and archived.
type output[T entities.Exporter] struct {
	header table.Row
	row    func(T) table.Row
	save   func(store *archive.Store, ctx context.Context, runID string, item T) error
}

func optionalCount(v *int64) string {
	if v == nil {
		return "-"
	}
	return humanize.Comma(*v)
}

var postOutput = output[entities.Post]{
	header: table.Row{"ID", "Date", "Author", "Replies", "Reposts", "Likes", "Views", "Content"},
	row: func(p entities.Post) table.Row {
		return table.Row{
			p.IDStr,
			p.Date.Format(time.DateTime),
			"@" + p.Author.Username,
			humanize.Comma(p.ReplyCount),
			humanize.Comma(p.RepostCount),
			humanize.Comma(p.LikeCount),
			optionalCount(p.ViewCount),
			utils.Oneline(p.RawContent, 60),
		}
	},
	save: (*archive.Store).SavePost,
}

var accountOutput = output[entities.Account]{
	header: table.Row{"ID", "Username", "Name", "Followers", "Following", "Posts", "Blue"},
	row: func(a entities.Account) table.Row {
		return table.Row{
			a.IDStr,
			"@" + a.Username,
			utils.Oneline(a.DisplayName, 30),
			humanize.Comma(a.FollowersCount),
			humanize.Comma(a.FollowingCount),
			humanize.Comma(a.PostsCount),
			a.Blue,
		}
	},
	save: (*archive.Store).SaveAccount,
}

// sink writes entities in the selected format and archives them when a database was given.
type sink[T entities.Exporter] struct {
	ctx   context.Context
	out   output[T]
	w     io.Writer
	table table.Writer
	store *archive.Store
	runID string
	count int64
}

func newSink[T entities.Exporter](cmd *cobra.Command, args []string, out output[T]) (*sink[T], error) {
	ctx := cmd.Context()
	g := globals.Get(ctx)

	s := &sink[T]{ctx: ctx, out: out, w: cmd.OutOrStdout()}
	if g.Format == formatTable {
		s.table = utils.NewTable()
		s.table.AppendHeader(out.header)
	}
	if g.DB != "" {
		store, err := archive.Open(ctx, g.DB)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		command := strings.TrimSpace(cmd.Name() + " " + strings.Join(args, " "))
		run, err := store.BeginRun(ctx, command)
		if err != nil {
			store.Close()
			return nil, err
		}
		s.store = store
		s.runID = run.ID
	}
	return s, nil
}

func (s *sink[T]) add(item T) error {
	s.count++
	if s.store != nil {
		err := s.out.save(s.store, s.ctx, s.runID, item)
		if err != nil {
			return err
		}
	}
	if s.table != nil {
		s.table.AppendRow(s.out.row(item))
		return nil
	}
	text, err := entities.JSON(item)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.w, text)
	return err
}

func (s *sink[T]) close() {
	if s.table != nil {
		s.table.Render()
	}
	if s.store != nil {
		s.store.Close()
	}
}

func streamOptions(ctx context.Context) pagination.Options {
	g := globals.Get(ctx)
	return pagination.Options{
		Limit:              g.Limit,
		EmptyPageTolerance: g.EmptyPageTolerance,
		StartCursor:        g.StartCursor,
	}
}

// drain emits every item of the stream, then prints a summary of the walk to stderr.
func drain[T entities.Exporter](cmd *cobra.Command, args []string, stream *pagination.Stream[T], out output[T]) error {
	ctx := cmd.Context()
	s, err := newSink(cmd, args, out)
	if err != nil {
		return err
	}
	defer s.close()

	start := time.Now()
	for stream.Next(ctx) {
		err := s.add(stream.Item())
		if err != nil {
			return err
		}
	}

	summary := fmt.Sprintf(
		"%s items from %s pages in %s, stopped: %s",
		humanize.Comma(s.count),
		humanize.Comma(int64(stream.Pages())),
		time.Since(start).Round(time.Millisecond),
		stream.Reason(),
	)
	if resumable(stream.Reason()) && stream.Cursor() != "" {
		summary += fmt.Sprintf(", next page: --cursor %q", stream.Cursor())
	}
	if s.store != nil {
		summary += fmt.Sprintf(" (run %s)", s.runID)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), summary)

	return stream.Err()
}

// resumable reports whether a walk that stopped for reason can usefully continue from its
// cursor. A loop guarded stream's cursor is the one upstream kept repeating.
func resumable(reason pagination.StopReason) bool {
	switch reason {
	case pagination.StopEndOfData, pagination.StopLoopGuard:
		return false
	}
	return true
}

// emit writes a single entity the same way drain writes a stream.
func emit[T entities.Exporter](cmd *cobra.Command, args []string, item T, out output[T]) error {
	s, err := newSink(cmd, args, out)
	if err != nil {
		return err
	}
	defer s.close()
	return s.add(item)
}
