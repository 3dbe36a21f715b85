package x

import "maps"

// Operation is one GraphQL query of the web client. Query ids rotate whenever upstream
// redeploys, ClientOptions.QueryIDs overrides them without a rebuild.
type Operation struct {
	Name    string
	QueryID string
	// Features are merged over defaultFeatures.
	Features     map[string]bool
	FieldToggles map[string]bool
}

func (o Operation) features() map[string]bool {
	out := maps.Clone(defaultFeatures)
	maps.Copy(out, o.Features)
	return out
}

var (
	OpSearchTimeline = Operation{
		Name:    "SearchTimeline",
		QueryID: "AIdc203rPpK_k_2KWSdm7g",
	}
	OpUserByRestId = Operation{
		Name:    "UserByRestId",
		QueryID: "WJ7rCtezBVT6nk6VM5R8Bw",
	}
	OpUserByScreenName = Operation{
		Name:         "UserByScreenName",
		QueryID:      "1VOOyvKkiI3FMmkeDNxM9A",
		FieldToggles: map[string]bool{"withAuxiliaryUserLabels": false},
	}
	OpTweetDetail = Operation{
		Name:         "TweetDetail",
		QueryID:      "_8aYOgEDz35BrBcBal1-_w",
		FieldToggles: map[string]bool{"withArticleRichContentState": false},
	}
	OpFollowers = Operation{
		Name:    "Followers",
		QueryID: "Elc_-qTARceHpztqhI9PQA",
	}
	OpFollowing = Operation{
		Name:    "Following",
		QueryID: "C1qZ6bs-L3oc_TKSZyxkXQ",
	}
	OpBlueVerifiedFollowers = Operation{
		Name:    "BlueVerifiedFollowers",
		QueryID: "UdtFCymsUy0fyh5nVx8Slw",
	}
	OpUserCreatorSubscriptions = Operation{
		Name:    "UserCreatorSubscriptions",
		QueryID: "fl06vxyEWgL_ZKv-pU8Ftw",
	}
	OpRetweeters = Operation{
		Name:    "Retweeters",
		QueryID: "i-CI8t2pJD15euZJErEDrg",
	}
	OpFavoriters = Operation{
		Name:    "Favoriters",
		QueryID: "LLkw5EcVutJL6y-2gkz22A",
	}
	OpUserTweets = Operation{
		Name:    "UserTweets",
		QueryID: "HeWHY26ItCfUmm1e6ITjeA",
	}
	OpUserTweetsAndReplies = Operation{
		Name:    "UserTweetsAndReplies",
		QueryID: "OAx9yEcW3JA9bPo63pcYlA",
	}
	OpListLatestTweetsTimeline = Operation{
		Name:    "ListLatestTweetsTimeline",
		QueryID: "BkauSnPUDQTeeJsxq17opA",
	}
	OpLikes = Operation{
		Name:    "Likes",
		QueryID: "IohM3gxQHfvWePH5E3KuNA",
	}
)

// Operations lists every operation by name, it is what config overrides are validated against.
var Operations = map[string]Operation{
	OpSearchTimeline.Name:           OpSearchTimeline,
	OpUserByRestId.Name:             OpUserByRestId,
	OpUserByScreenName.Name:         OpUserByScreenName,
	OpTweetDetail.Name:              OpTweetDetail,
	OpFollowers.Name:                OpFollowers,
	OpFollowing.Name:                OpFollowing,
	OpBlueVerifiedFollowers.Name:    OpBlueVerifiedFollowers,
	OpUserCreatorSubscriptions.Name: OpUserCreatorSubscriptions,
	OpRetweeters.Name:               OpRetweeters,
	OpFavoriters.Name:               OpFavoriters,
	OpUserTweets.Name:               OpUserTweets,
	OpUserTweetsAndReplies.Name:     OpUserTweetsAndReplies,
	OpListLatestTweetsTimeline.Name: OpListLatestTweetsTimeline,
	OpLikes.Name:                    OpLikes,
}

// defaultFeatures are the feature switches the web client sends with every query, upstream
// rejects queries that omit switches it considers required.
var defaultFeatures = map[string]bool{
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"verified_phone_label_enabled":                                            false,
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"tweetypie_unmention_optimization_enabled":                                true,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                false,
	"tweet_awards_web_tipping_enabled":                                        false,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"responsive_web_media_download_video_enabled":                             false,
	"responsive_web_enhance_cards_enabled":                                    false,
}
