package archive

import (
	"context"
	"testing"
	"time"

	"xstream-backend/internal/entities"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func testAccount(id int64, username string) entities.Account {
	return entities.Account{
		ID:       id,
		IDStr:    entities.FormatID(id),
		URL:      entities.AccountURL(username),
		Username: username,
	}
}

func testPost(id int64, author entities.Account, content string) entities.Post {
	return entities.Post{
		ID:                id,
		IDStr:             entities.FormatID(id),
		URL:               entities.PostURL(author.Username, entities.FormatID(id)),
		Date:              time.Date(2023, 5, 16, 10, 44, 50, 0, time.UTC),
		Author:            author,
		RawContent:        content,
		ConversationID:    id,
		ConversationIDStr: entities.FormatID(id),
	}
}

func openTestStore(t *testing.T) *Store {
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestPosts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	run, err := store.BeginRun(ctx, "search golang")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	author := testAccount(44196397, "inner_user")
	quoted := testPost(1649191520250245121, author, "quoted")
	post := testPost(1658421690001502208, testAccount(2244994945, "outer_user"), "look")
	post.QuotedPost = &quoted

	require.NoError(t, store.SavePost(ctx, run.ID, post))
	require.NoError(t, store.SavePost(ctx, run.ID, quoted))
	// saving again updates the row but doesn't duplicate it in the run
	post.RawContent = "look again"
	require.NoError(t, store.SavePost(ctx, run.ID, post))

	posts, err := store.Posts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	require.Equal(t, entities.TypePost, posts[0][entities.TypeKey])
	require.Equal(t, json.Number(post.IDStr), posts[0]["id"])
	require.Equal(t, post.IDStr, posts[0]["id_str"])
	require.Equal(t, "look again", posts[0]["rawContent"])
	require.Equal(t, json.Number(quoted.IDStr), posts[0]["quotedPost"].(map[string]any)["id"])
	require.Equal(t, quoted.IDStr, posts[1]["id_str"])

	known, err := store.KnownPost(ctx, quoted.IDStr)
	require.NoError(t, err)
	require.True(t, known)
	known, err = store.KnownPost(ctx, "1")
	require.NoError(t, err)
	require.False(t, known)

	pb, err := store.PostProto(ctx, post.IDStr)
	require.NoError(t, err)
	require.Equal(t, post.IDStr, pb.GetFields()["id_str"].GetStringValue())
	require.Equal(t, entities.TypePost, pb.GetFields()[entities.TypeKey].GetStringValue())
}

func TestAccountsAndRuns(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first, err := store.BeginRun(ctx, "followers 1")
	require.NoError(t, err)
	second, err := store.BeginRun(ctx, "followers 2")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	require.NoError(t, store.SaveAccount(ctx, first.ID, testAccount(10, "user0")))
	require.NoError(t, store.SaveAccount(ctx, first.ID, testAccount(11, "user1")))
	require.NoError(t, store.SaveAccount(ctx, second.ID, testAccount(11, "user1_renamed")))

	accounts, err := store.Accounts(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "user0", accounts[0]["username"])
	// rows are shared between runs, the latest save wins
	require.Equal(t, "user1_renamed", accounts[1]["username"])

	accounts, err = store.Accounts(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	posts, err := store.Posts(ctx, first.ID)
	require.NoError(t, err)
	require.Empty(t, posts)

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second.ID, runs[0].ID)
	require.Equal(t, "followers 2", runs[0].Command)
}

func TestIsRemote(t *testing.T) {
	require.True(t, isRemote("libsql://db.turso.io"))
	require.True(t, isRemote("https://db.turso.io"))
	require.False(t, isRemote("archive.db"))
	require.False(t, isRemote(":memory:"))
}
