package normalize

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"xstream-backend/internal/components/telemetry"
	"xstream-backend/internal/entities"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadDocument(t testing.TB, name string) *Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	doc, err := ParseDocument(data)
	require.NoError(t, err)
	return doc
}

func newNormalizer(opts Options) (Normalizer, *telemetry.Recorder) {
	recorder := &telemetry.Recorder{}
	return New(recorder, opts), recorder
}

func degradedFragments(recorder *telemetry.Recorder) []string {
	var out []string
	for _, report := range recorder.Find(telemetry.KindWarning, report_degraded) {
		fragment, _ := report.Params[0].(string)
		out = append(out, fragment)
	}
	return out
}

func TestRepost(t *testing.T) {
	doc := loadDocument(t, "repost.json")
	n, recorder := newNormalizer(Options{})

	post, err := n.Post(doc, "1658409412799737856")
	require.NoError(t, err)

	require.Equal(t, int64(1658409412799737856), post.ID)
	require.Equal(t, "1658409412799737856", post.IDStr)
	require.Equal(t, "outer_user", post.Author.Username)
	require.Equal(t, "https://x.com/outer_user/status/1658409412799737856", post.URL)

	require.NotNil(t, post.RepostedPost)
	require.Equal(t, "1658409412799737000", post.RepostedPost.IDStr)
	require.Equal(t, "inner_user", post.RepostedPost.Author.Username)
	require.Equal(t, "RT @inner_user: original text", post.RawContent)

	require.NotNil(t, post.ViewCount)
	require.Equal(t, int64(1234), *post.ViewCount)
	require.Equal(t, int64(1234), *post.RepostedPost.ViewCount)

	require.Equal(t, time.Date(2023, 5, 16, 10, 44, 50, 0, time.UTC), post.Date.UTC())
	require.Empty(t, degradedFragments(recorder))
	require.NoError(t, post.Validate())
}

func TestQuote(t *testing.T) {
	doc := loadDocument(t, "quote.json")
	n, recorder := newNormalizer(Options{})

	post, err := n.Post(doc, "100")
	require.NoError(t, err)
	require.NotNil(t, post.QuotedPost)
	require.Equal(t, int64(200), post.QuotedPost.ID)
	require.Equal(t, int64(50), *post.ViewCount)
	require.Equal(t, int64(7), *post.QuotedPost.ViewCount)
	require.Nil(t, post.RepostedPost)
	require.Equal(t, "look at this", post.RawContent)
	require.Empty(t, degradedFragments(recorder))

	self, err := n.Post(doc, "101")
	require.NoError(t, err)
	require.Nil(t, self.QuotedPost)
	require.Equal(t, []string{"quote"}, degradedFragments(recorder))
}

func TestCards(t *testing.T) {
	doc := loadDocument(t, "cards.json")
	n, recorder := newNormalizer(Options{})

	cases := []struct {
		id       string
		expected entities.Card
	}{
		{
			id:       "301",
			expected: entities.UnknownCard{Name: "future_card_v9", URL: "https://t.co/future"},
		},
		{
			id: "302",
			expected: entities.SummaryCard{
				Title:       "Some Article",
				Description: "It is about things",
				VanityURL:   "example.com",
				URL:         "https://t.co/abc",
				Photo:       &entities.Photo{URL: "https://pbs.twimg.com/card_img/1.jpg"},
			},
		},
		{
			id: "303",
			expected: entities.PollCard{
				Finished: true,
				Options: []entities.PollOption{
					{Label: "yes", VotesCount: 12},
					{Label: "no", VotesCount: 30},
				},
			},
		},
		{
			id: "304",
			expected: entities.BroadcastCard{
				Title: "Launch",
				URL:   "https://x.com/i/broadcasts/1",
				Photo: &entities.Photo{URL: "https://pbs.twimg.com/broadcast/1.jpg"},
			},
		},
		{
			id:       "306",
			expected: entities.AudiospaceCard{URL: "https://x.com/i/spaces/1"},
		},
	}

	for _, c := range cases {
		t.Run(c.id, func(t *testing.T) {
			post, err := n.Post(doc, c.id)
			require.NoError(t, err)
			if diff := cmp.Diff(c.expected, post.Card); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	require.Len(t, recorder.Find(telemetry.KindDebug, "unknown card type"), 1)
	require.Empty(t, degradedFragments(recorder))

	// a poll whose counts can't be read loses its card, not the post
	broken, err := n.Post(doc, "305")
	require.NoError(t, err)
	require.Nil(t, broken.Card)
	require.Equal(t, []string{"card"}, degradedFragments(recorder))
}

func TestCardKind(t *testing.T) {
	require.Equal(t, "broadcast", cardKind("745291183405076480:broadcast"))
	require.Equal(t, "poll2choice_text_only", cardKind("poll2choice_text_only"))
	require.Equal(t, "", cardKind("1:"))
}

func TestLinksAndEntities(t *testing.T) {
	doc := loadDocument(t, "links.json")
	n, recorder := newNormalizer(Options{})

	post, err := n.Post(doc, "1682072224013099008")
	require.NoError(t, err)

	var tracking []string
	for _, l := range post.Links {
		tracking = append(tracking, l.TrackingURL)
	}
	expected := []string{
		"https://t.co/link1",
		"https://t.co/link2",
		"https://t.co/link3",
		"https://t.co/link4",
		"https://t.co/link5",
	}
	if diff := cmp.Diff(expected, tracking); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, entities.Link{
		URL:         "https://example1.com/page",
		Text:        "example1.com",
		TrackingURL: "https://t.co/link1",
	}, post.Links[0])

	require.Equal(t, "many links, but the long version of the text", post.RawContent)
	require.Equal(t, []string{"golang"}, post.Hashtags)
	require.Equal(t, []string{"BTC"}, post.Cashtags)

	require.Len(t, post.MentionedAccounts, 1)
	require.Equal(t, "inner_user", post.MentionedAccounts[0].Username)

	require.NotNil(t, post.InReplyToID)
	require.Equal(t, int64(1682072224013000000), *post.InReplyToID)
	require.Equal(t, "1682072224013000000", post.InReplyToIDStr)
	// the replied-to account isn't in the document, it is recovered from the mentions
	require.NotNil(t, post.InReplyToAccount)
	require.Equal(t, int64(44196397), post.InReplyToAccount.ID)

	require.ElementsMatch(t, []string{"link", "mention"}, degradedFragments(recorder))
}

func TestMedia(t *testing.T) {
	doc := loadDocument(t, "media.json")
	n, recorder := newNormalizer(Options{})

	post, err := n.Post(doc, "1671508600538161153")
	require.NoError(t, err)
	require.NotNil(t, post.Media)

	views := int64(99)
	expected := entities.Media{
		Photos: []entities.Photo{{URL: "https://pbs.twimg.com/media/photo1.jpg"}},
		Videos: []entities.Video{{
			ThumbnailURL: "https://pbs.twimg.com/ext_tw_video_thumb/1/pu/img/thumb.jpg",
			Duration:     12345,
			Views:        &views,
			Variants: []entities.Variant{
				{URL: "https://video.twimg.com/1/vid/640x360/a.mp4", Bitrate: 832000, ContentType: "video/mp4"},
				{URL: "https://video.twimg.com/1/vid/1280x720/b.mp4", Bitrate: 2176000, ContentType: "video/mp4"},
			},
		}},
		Animated: []entities.Animated{{
			ThumbnailURL: "https://pbs.twimg.com/tweet_video_thumb/g.jpg",
			VideoURL:     "https://video.twimg.com/tweet_video/g.mp4",
		}},
	}
	if diff := cmp.Diff(expected, *post.Media); diff != "" {
		t.Fatal(diff)
	}

	// the playlist-only video and the unknown media type are both dropped
	require.ElementsMatch(t, []string{"media.video", "media"}, degradedFragments(recorder))
}

func TestRecursionLimits(t *testing.T) {
	doc := loadDocument(t, "chain.json")

	t.Run("depth", func(t *testing.T) {
		n, recorder := newNormalizer(Options{})
		post, err := n.Post(doc, "501")
		require.NoError(t, err)

		depth := 0
		current := &post
		for current.QuotedPost != nil {
			depth++
			current = current.QuotedPost
		}
		require.Equal(t, DefaultMaxDepth, depth)
		require.Equal(t, "505", current.IDStr)
		require.Equal(t, []string{"quote"}, degradedFragments(recorder))
	})

	t.Run("custom depth", func(t *testing.T) {
		n, _ := newNormalizer(Options{MaxDepth: 1})
		post, err := n.Post(doc, "501")
		require.NoError(t, err)
		require.NotNil(t, post.QuotedPost)
		require.Nil(t, post.QuotedPost.QuotedPost)
	})

	t.Run("cycle", func(t *testing.T) {
		n, recorder := newNormalizer(Options{})
		post, err := n.Post(doc, "601")
		require.NoError(t, err)
		require.NotNil(t, post.RepostedPost)
		require.Equal(t, "602", post.RepostedPost.IDStr)
		require.Nil(t, post.RepostedPost.RepostedPost)
		require.Equal(t, "RT @inner_user: cycle b", post.RawContent)
		require.Equal(t, []string{"repost"}, degradedFragments(recorder))
	})
}

func TestMalformed(t *testing.T) {
	doc := loadDocument(t, "malformed.json")
	n, recorder := newNormalizer(Options{})

	_, err := n.Post(doc, "701")
	require.ErrorIs(t, err, ErrMalformedEntity)
	require.Contains(t, err.Error(), "author")

	_, err = n.Post(doc, "702")
	require.ErrorIs(t, err, ErrMalformedEntity)
	require.Contains(t, err.Error(), "inconsistent ids")

	_, err = n.Post(doc, "does-not-exist")
	require.True(t, errors.Is(err, ErrMalformedEntity))

	require.Len(t, recorder.Find(telemetry.KindDebug, report_post), 2)
	require.Empty(t, degradedFragments(recorder))

	post, err := n.Post(doc, "703")
	require.NoError(t, err)
	require.Nil(t, post.QuotedPost)
	require.Equal(t, []string{"quote"}, degradedFragments(recorder))
}

func TestAccount(t *testing.T) {
	doc := loadDocument(t, "user_by_id.json")
	n, recorder := newNormalizer(Options{})

	account, err := n.Account(doc, "")
	require.NoError(t, err)

	expected := entities.Account{
		ID:             2244994945,
		IDStr:          "2244994945",
		URL:            "https://x.com/XDevelopers",
		Username:       "XDevelopers",
		DisplayName:    "Developers",
		RawDescription: "The voice of the X Dev team",
		DescriptionLinks: []entities.Link{
			{URL: "https://example9.com/page", Text: "example9.com", TrackingURL: "https://t.co/link9"},
			{URL: "https://example8.com/page", Text: "example8.com", TrackingURL: "https://t.co/link8"},
		},
		Location:        "Earth",
		Created:         time.Date(2013, 12, 14, 4, 35, 55, 0, time.UTC),
		FollowersCount:  120,
		FollowingCount:  80,
		PostsCount:      400,
		FavouritesCount: 10,
		ListedCount:     3,
		MediaCount:      7,
		ProfileImageURL: "https://pbs.twimg.com/profile_images/1/dev_normal.jpg",
		Blue:            true,
		BlueType:        "Business",
		PinnedIDs:       []int64{1722701605825642574},
	}
	account.Created = account.Created.UTC()
	if diff := cmp.Diff(expected, account); diff != "" {
		t.Fatal(diff)
	}
	require.NoError(t, account.Validate())
	require.Empty(t, degradedFragments(recorder))

	same, err := n.Account(doc, "2244994945")
	require.NoError(t, err)
	require.Equal(t, account.IDStr, same.IDStr)

	_, err = n.Account(doc, "1")
	require.ErrorIs(t, err, ErrMalformedEntity)
}

func TestGlobalObjects(t *testing.T) {
	doc := loadDocument(t, "global_objects.json")
	n, _ := newNormalizer(Options{})

	require.Equal(t, []string{"900"}, doc.PostIDs())
	require.Equal(t, []string{"44196397"}, doc.AccountIDs())

	post, err := n.Post(doc, "900")
	require.NoError(t, err)
	require.Equal(t, "old style", post.RawContent)
	require.Equal(t, "inner_user", post.Author.Username)
	require.Equal(t, int64(321), *post.ViewCount)
}

func TestIdentity(t *testing.T) {
	root, err := decodeRaw([]byte(`{"rest_id": "1649191520250245121", "id": 1649191520250245121}`))
	require.NoError(t, err)
	id, idStr, err := identity(root.(object))
	require.NoError(t, err)
	require.Equal(t, int64(1649191520250245121), id)
	require.Equal(t, "1649191520250245121", idStr)

	root, err = decodeRaw([]byte(`{"rest_id": "5", "id": 6}`))
	require.NoError(t, err)
	_, _, err = identity(root.(object))
	require.Error(t, err)

	_, _, err = identity(object{"id": "VXNlcjo0NDE5NjM5Nw=="})
	require.Error(t, err)
}
