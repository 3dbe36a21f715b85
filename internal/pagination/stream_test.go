package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"xstream-backend/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type rawPost struct {
	ID     int64
	Author string
}

type post struct {
	ID     int64
	Author string
}

func normalizePost(raw rawPost) (post, error) {
	if raw.Author == "" {
		return post{}, fmt.Errorf("post %d has no author", raw.ID)
	}
	return post{ID: raw.ID, Author: raw.Author}, nil
}

func postID(p post) int64 {
	return p.ID
}

type fakeFetcher struct {
	pages   []Page[rawPost]
	errs    map[int]error
	cursors []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, cursor string) (Page[rawPost], error) {
	call := len(f.cursors)
	f.cursors = append(f.cursors, cursor)
	if err := f.errs[call]; err != nil {
		return Page[rawPost]{}, err
	}
	if call >= len(f.pages) {
		return Page[rawPost]{}, nil
	}
	return f.pages[call], nil
}

func rawPosts(from, to int64) []rawPost {
	var out []rawPost
	for id := from; id <= to; id++ {
		out = append(out, rawPost{ID: id, Author: "author"})
	}
	return out
}

func ids(items []post) []int64 {
	var out []int64
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

func newStream(fetcher *fakeFetcher, opts Options) (*Stream[post], *telemetry.Recorder) {
	recorder := &telemetry.Recorder{}
	return New[rawPost, post](fetcher, normalizePost, postID, opts, recorder), recorder
}

func TestLoopGuard(t *testing.T) {
	fetcher := &fakeFetcher{pages: []Page[rawPost]{
		{Items: rawPosts(1, 10), Cursor: "A"},
		{Items: rawPosts(11, 20), Cursor: "B"},
		{Items: rawPosts(21, 30), Cursor: "B"},
		{Items: rawPosts(31, 40), Cursor: "C"},
	}}
	stream, _ := newStream(fetcher, Options{})

	items, err := Collect(context.Background(), stream, 0)
	require.NoError(t, err)
	require.Len(t, items, 20)
	require.Equal(t, int64(20), items[19].ID)
	require.Equal(t, []string{"", "A", "B"}, fetcher.cursors)
	require.Equal(t, 3, stream.Pages())
	require.Equal(t, StopLoopGuard, stream.Reason())
	// the repeated cursor leads nowhere, nothing is left to resume from
	require.Empty(t, stream.Cursor())
}

func TestCollectLimit(t *testing.T) {
	fetcher := &fakeFetcher{pages: []Page[rawPost]{
		{Items: rawPosts(1, 20), Cursor: "A"},
		{Items: rawPosts(21, 40), Cursor: "B"},
	}}
	stream, _ := newStream(fetcher, Options{})

	items, err := Collect(context.Background(), stream, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4, 5}, ids(items))
	require.Len(t, fetcher.cursors, 1)
}

func TestLimitOption(t *testing.T) {
	fetcher := &fakeFetcher{pages: []Page[rawPost]{
		{Items: rawPosts(1, 20), Cursor: "A"},
		{Items: rawPosts(21, 40), Cursor: "B"},
		{Items: rawPosts(41, 60), Cursor: "C"},
	}}
	stream, _ := newStream(fetcher, Options{Limit: 20})

	items, err := Collect(context.Background(), stream, 0)
	require.NoError(t, err)
	require.Len(t, items, 20)
	// the limit is met by the last item of the first page, nothing else is fetched
	require.Len(t, fetcher.cursors, 1)
	require.Equal(t, StopLimit, stream.Reason())

	fetcher = &fakeFetcher{pages: fetcher.pages}
	stream, _ = newStream(fetcher, Options{Limit: 25})
	items, err = Collect(context.Background(), stream, 0)
	require.NoError(t, err)
	require.Len(t, items, 25)
	require.Len(t, fetcher.cursors, 2)
}

func TestDuplicateSuppression(t *testing.T) {
	fetcher := &fakeFetcher{pages: []Page[rawPost]{
		{Items: rawPosts(1, 3), Cursor: "A"},
		{Items: []rawPost{{ID: 3, Author: "other"}, {ID: 4, Author: "author"}, {ID: 1, Author: "author"}}},
	}}
	stream, _ := newStream(fetcher, Options{})

	items, err := Collect(context.Background(), stream, 0)
	require.NoError(t, err)
	expected := []post{
		{ID: 1, Author: "author"},
		{ID: 2, Author: "author"},
		{ID: 3, Author: "author"},
		{ID: 4, Author: "author"},
	}
	if diff := cmp.Diff(expected, items); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, StopEndOfData, stream.Reason())
}

func TestEmptyTail(t *testing.T) {
	fetcher := &fakeFetcher{pages: []Page[rawPost]{
		{Items: rawPosts(1, 2), Cursor: "A"},
		{Items: rawPosts(1, 2), Cursor: "B"},
		{Cursor: "C"},
		{Cursor: "D"},
		{Items: rawPosts(3, 4), Cursor: "E"},
	}}
	stream, recorder := newStream(fetcher, Options{})

	items, err := Collect(context.Background(), stream, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, ids(items))
	require.Equal(t, []string{"", "A", "B", "C"}, fetcher.cursors)
	require.Equal(t, StopEmptyTail, stream.Reason())
	require.Len(t, recorder.Find(telemetry.KindWarning, report_fetch_page), 1)

	t.Run("tolerance", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: fetcher.pages}
		stream, _ := newStream(fetcher, Options{EmptyPageTolerance: 3})
		items, err := Collect(context.Background(), stream, 0)
		require.NoError(t, err)
		require.Equal(t, []int64{1, 2, 3, 4}, ids(items))
	})

	t.Run("empty pages reset", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: []Page[rawPost]{
			{Cursor: "A"},
			{Cursor: "B"},
			{Items: rawPosts(1, 1), Cursor: "C"},
			{Cursor: "D"},
			{Cursor: "E"},
			{Items: rawPosts(2, 2)},
		}}
		stream, _ := newStream(fetcher, Options{})
		items, err := Collect(context.Background(), stream, 0)
		require.NoError(t, err)
		require.Equal(t, []int64{1, 2}, ids(items))
		require.Equal(t, StopEndOfData, stream.Reason())
	})
}

func TestFetchError(t *testing.T) {
	upstream := errors.New("upstream returned 500")
	fetcher := &fakeFetcher{
		pages: []Page[rawPost]{{Items: rawPosts(1, 3), Cursor: "A"}},
		errs:  map[int]error{1: upstream},
	}
	stream, recorder := newStream(fetcher, Options{})

	items, err := Collect(context.Background(), stream, 0)
	require.Equal(t, []int64{1, 2, 3}, ids(items))
	require.Error(t, err)
	require.ErrorIs(t, err, upstream)

	var fetchErr FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, "A", fetchErr.Cursor)
	require.Equal(t, 2, fetchErr.Page)
	require.Equal(t, StopFailed, stream.Reason())
	require.Len(t, recorder.Find(telemetry.KindBroken, report_fetch_page), 1)

	// a stopped stream stays stopped
	require.False(t, stream.Next(context.Background()))
	require.Len(t, fetcher.cursors, 2)
}

func TestSkipMalformedItems(t *testing.T) {
	fetcher := &fakeFetcher{pages: []Page[rawPost]{{Items: []rawPost{
		{ID: 1, Author: "a"},
		{ID: 2},
		{ID: 3, Author: "c"},
	}}}}
	stream, recorder := newStream(fetcher, Options{})

	items, err := Collect(context.Background(), stream, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, ids(items))
	require.Len(t, recorder.Find(telemetry.KindDebug, report_skip_item), 1)

	counts := recorder.Find(telemetry.KindCount, report_skipped)
	require.Len(t, counts, 1)
	require.Equal(t, int64(1), counts[0].Count)
}

func TestStartCursorAndLazyFetch(t *testing.T) {
	fetcher := &fakeFetcher{pages: []Page[rawPost]{
		{Items: rawPosts(1, 20), Cursor: "B"},
		{Items: rawPosts(21, 40), Cursor: "C"},
	}}
	stream, _ := newStream(fetcher, Options{StartCursor: "A"})

	ctx := context.Background()
	for range 3 {
		require.True(t, stream.Next(ctx))
	}
	require.Equal(t, int64(3), stream.Item().ID)
	require.Equal(t, []string{"A"}, fetcher.cursors)
	require.Equal(t, StopNone, stream.Reason())
	require.Equal(t, "B", stream.Cursor())
}

func TestIndependentStreams(t *testing.T) {
	pages := []Page[rawPost]{{Items: rawPosts(1, 5)}}
	first, _ := newStream(&fakeFetcher{pages: pages}, Options{})
	second, _ := newStream(&fakeFetcher{pages: pages}, Options{})

	a, err := Collect(context.Background(), first, 0)
	require.NoError(t, err)
	b, err := Collect(context.Background(), second, 0)
	require.NoError(t, err)
	require.Equal(t, ids(a), ids(b))
}

func TestStopReasonString(t *testing.T) {
	require.Equal(t, "loop-guard", StopLoopGuard.String())
	require.Equal(t, "empty-tail", StopEmptyTail.String())
	require.Equal(t, "StopReason(42)", StopReason(42).String())
}
