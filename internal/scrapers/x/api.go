package x

import (
	"context"
	"fmt"

	"xstream-backend/internal/components/assert"
	"xstream-backend/internal/components/telemetry"
	"xstream-backend/internal/entities"
	"xstream-backend/internal/normalize"
	"xstream-backend/internal/pagination"
)

const (
	report_api_post_details = "api.post-details"
	report_api_user         = "api.user"
)

// SearchProduct is the tab of the search page results come from.
type SearchProduct string

const (
	SearchLatest SearchProduct = "Latest"
	SearchTop    SearchProduct = "Top"
	SearchMedia  SearchProduct = "Media"
)

// API exposes every supported timeline as a stream of normalized entities.
type API struct {
	client     *Client
	normalizer normalize.Normalizer
	tel        telemetry.API
}

func NewAPI(client *Client, normalizer normalize.Normalizer, tel telemetry.API) *API {
	assert.NotNil(client)
	assert.NotNil(tel)
	return &API{
		client:     client,
		normalizer: normalizer,
		tel:        telemetry.NewScopedAPI("x_api", tel),
	}
}

func identifyPost(p entities.Post) int64 {
	return p.ID
}

func identifyAccount(a entities.Account) int64 {
	return a.ID
}

func (a *API) posts(op Operation, variables map[string]any, opts pagination.Options) *pagination.Stream[entities.Post] {
	fetcher := timelineFetcher{client: a.client, op: op, variables: variables, kind: normalize.KindPost}
	return pagination.New(fetcher, a.normalizer.PostItem, identifyPost, opts, a.tel)
}

func (a *API) accounts(op Operation, variables map[string]any, opts pagination.Options) *pagination.Stream[entities.Account] {
	fetcher := timelineFetcher{client: a.client, op: op, variables: variables, kind: normalize.KindAccount}
	return pagination.New(fetcher, a.normalizer.AccountItem, identifyAccount, opts, a.tel)
}

func userTimelineVariables(userID int64) map[string]any {
	return map[string]any{
		"userId":                                 entities.FormatID(userID),
		"count":                                  40,
		"includePromotedContent":                 true,
		"withQuickPromoteEligibilityTweetFields": true,
		"withVoice":                              true,
		"withV2Timeline":                         true,
	}
}

func accountListVariables(userID int64) map[string]any {
	return map[string]any{
		"userId":                 entities.FormatID(userID),
		"count":                  20,
		"includePromotedContent": false,
	}
}

func postEngagementVariables(postID int64) map[string]any {
	return map[string]any{
		"tweetId":                entities.FormatID(postID),
		"count":                  20,
		"includePromotedContent": true,
	}
}

func postDetailVariables(postID int64) map[string]any {
	return map[string]any{
		"focalTweetId":                           entities.FormatID(postID),
		"with_rux_injections":                    true,
		"includePromotedContent":                 true,
		"withCommunity":                          true,
		"withQuickPromoteEligibilityTweetFields": true,
		"withBirdwatchNotes":                     true,
		"withVoice":                              true,
		"withV2Timeline":                         true,
	}
}

// Search streams the posts matching a query in the given search tab.
func (a *API) Search(query string, product SearchProduct, opts pagination.Options) *pagination.Stream[entities.Post] {
	if product == "" {
		product = SearchLatest
	}
	return a.posts(OpSearchTimeline, map[string]any{
		"rawQuery":    query,
		"count":       20,
		"product":     string(product),
		"querySource": "typed_query",
	}, opts)
}

func (a *API) UserTweets(userID int64, opts pagination.Options) *pagination.Stream[entities.Post] {
	return a.posts(OpUserTweets, userTimelineVariables(userID), opts)
}

func (a *API) UserTweetsAndReplies(userID int64, opts pagination.Options) *pagination.Stream[entities.Post] {
	return a.posts(OpUserTweetsAndReplies, userTimelineVariables(userID), opts)
}

// Likes streams the posts liked by a user, upstream only serves this for the session's own
// account.
func (a *API) Likes(userID int64, opts pagination.Options) *pagination.Stream[entities.Post] {
	return a.posts(OpLikes, userTimelineVariables(userID), opts)
}

func (a *API) ListTimeline(listID int64, opts pagination.Options) *pagination.Stream[entities.Post] {
	return a.posts(OpListLatestTweetsTimeline, map[string]any{
		"listId": entities.FormatID(listID),
		"count":  20,
	}, opts)
}

// PostReplies streams the direct replies to a post. The conversation timeline also carries
// the post itself and replies further down the thread, those are dropped.
func (a *API) PostReplies(postID int64, opts pagination.Options) *pagination.Stream[entities.Post] {
	fetcher := timelineFetcher{
		client:    a.client,
		op:        OpTweetDetail,
		variables: postDetailVariables(postID),
		kind:      normalize.KindPost,
	}
	normalizeReply := func(item normalize.RawItem) (entities.Post, error) {
		post, err := a.normalizer.PostItem(item)
		if err != nil {
			return entities.Post{}, err
		}
		if post.InReplyToID == nil || *post.InReplyToID != postID {
			return entities.Post{}, fmt.Errorf("post %s is not a reply to %d", post.IDStr, postID)
		}
		return post, nil
	}
	return pagination.New(fetcher, normalizeReply, identifyPost, opts, a.tel)
}

func (a *API) Followers(userID int64, opts pagination.Options) *pagination.Stream[entities.Account] {
	return a.accounts(OpFollowers, accountListVariables(userID), opts)
}

func (a *API) Following(userID int64, opts pagination.Options) *pagination.Stream[entities.Account] {
	return a.accounts(OpFollowing, accountListVariables(userID), opts)
}

func (a *API) VerifiedFollowers(userID int64, opts pagination.Options) *pagination.Stream[entities.Account] {
	return a.accounts(OpBlueVerifiedFollowers, accountListVariables(userID), opts)
}

// Subscriptions streams the accounts a user is paying a creator subscription to.
func (a *API) Subscriptions(userID int64, opts pagination.Options) *pagination.Stream[entities.Account] {
	return a.accounts(OpUserCreatorSubscriptions, accountListVariables(userID), opts)
}

func (a *API) Retweeters(postID int64, opts pagination.Options) *pagination.Stream[entities.Account] {
	return a.accounts(OpRetweeters, postEngagementVariables(postID), opts)
}

func (a *API) Favoriters(postID int64, opts pagination.Options) *pagination.Stream[entities.Account] {
	return a.accounts(OpFavoriters, postEngagementVariables(postID), opts)
}

// PostDetails fetches a single post.
func (a *API) PostDetails(ctx context.Context, postID int64) (entities.Post, error) {
	body, err := a.client.Graphql(ctx, OpTweetDetail, postDetailVariables(postID))
	if err != nil {
		return entities.Post{}, err
	}
	doc, err := normalize.ParseDocument(body)
	if err != nil {
		a.tel.ReportBroken(report_api_post_details, fmt.Errorf("parse document: %w", err))
		return entities.Post{}, err
	}
	return a.normalizer.Post(doc, entities.FormatID(postID))
}

func (a *API) UserByID(ctx context.Context, userID int64) (entities.Account, error) {
	return a.user(ctx, OpUserByRestId, map[string]any{
		"userId":                   entities.FormatID(userID),
		"withSafetyModeUserFields": true,
	}, entities.FormatID(userID))
}

func (a *API) UserByLogin(ctx context.Context, login string) (entities.Account, error) {
	return a.user(ctx, OpUserByScreenName, map[string]any{
		"screen_name":              login,
		"withSafetyModeUserFields": true,
	}, "")
}

func (a *API) user(ctx context.Context, op Operation, variables map[string]any, targetID string) (entities.Account, error) {
	body, err := a.client.Graphql(ctx, op, variables)
	if err != nil {
		return entities.Account{}, err
	}
	doc, err := normalize.ParseDocument(body)
	if err != nil {
		a.tel.ReportBroken(report_api_user, fmt.Errorf("parse document: %w", err), op.Name)
		return entities.Account{}, err
	}
	return a.normalizer.Account(doc, targetID)
}
