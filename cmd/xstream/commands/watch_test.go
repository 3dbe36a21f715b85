package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"xstream-backend/internal/archive"
	"xstream-backend/internal/components/telemetry"
	"xstream-backend/internal/entities"
	"xstream-backend/internal/normalize"
	"xstream-backend/internal/pagination"
	"xstream-backend/internal/scrapers/x"

	"github.com/stretchr/testify/require"
)

func TestWatcherTick(t *testing.T) {
	ctx := context.Background()

	data, err := os.ReadFile(filepath.Join(fixtures, "search_page_1.json"))
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write(data)
	}))
	t.Cleanup(server.Close)

	recorder := &telemetry.Recorder{}
	client, err := x.NewClient(x.ClientOptions{BaseURL: server.URL + "/i/api/graphql"}, recorder)
	require.NoError(t, err)
	api := x.NewAPI(client, normalize.New(recorder, normalize.Options{}), recorder)

	store, err := archive.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	var out bytes.Buffer
	w := watcher{
		search: func(opts pagination.Options) *pagination.Stream[entities.Post] {
			return api.Search("golang", x.SearchLatest, opts)
		},
		store: store,
		tel:   recorder,
		limit: defaultWatchLimit,
		out:   &out,
		label: "watch golang",
	}

	w.tick(ctx)
	w.tick(ctx)
	require.Empty(t, recorder.Find(telemetry.KindBroken, report_watch_tick))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	counts := recorder.Find(telemetry.KindCount, report_watch_new_posts)
	require.Len(t, counts, 2)
	require.Positive(t, counts[0].Count)
	// every post of the page was archived by the first tick
	require.Zero(t, counts[1].Count)

	// runs are listed most recent first and can share a start second
	total := 0
	for _, run := range runs {
		posts, err := store.Posts(ctx, run.ID)
		require.NoError(t, err)
		total += len(posts)
	}
	require.EqualValues(t, counts[0].Count, total)
	require.Contains(t, out.String(), "0 new posts")
}
