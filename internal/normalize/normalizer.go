// Package normalize turns raw upstream documents into entities.
//
// The normalizer is a pure function of its input, it keeps no state between calls and is safe
// to use from any number of goroutines. Faults on the entity being asked for make the call
// fail with ErrMalformedEntity. Faults in nested fragments (a bad video, a card that doesn't
// parse, a mention without an id) only drop that fragment, they are reported through
// telemetry with the `normalizer.degraded-substructure` id.
package normalize

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"xstream-backend/internal/components/assert"
	"xstream-backend/internal/components/telemetry"
	"xstream-backend/internal/entities"
)

const (
	report_degraded = "normalizer.degraded-substructure"
	report_post     = "normalizer.post"
	report_account  = "normalizer.account"
)

// ErrMalformedEntity is returned (wrapped) when the entity being normalized lacks its
// identity or its author.
var ErrMalformedEntity = errors.New("malformed entity")

// DefaultMaxDepth is how many reposts/quotes deep a chain is followed before it is truncated.
const DefaultMaxDepth = 4

type Options struct {
	// MaxDepth <= 0 means DefaultMaxDepth.
	MaxDepth int
}

type Normalizer struct {
	tel      telemetry.API
	maxDepth int
}

func New(tel telemetry.API, opts Options) Normalizer {
	assert.NotNil(tel)

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return Normalizer{
		tel:      telemetry.NewScopedAPI("normalize", tel),
		maxDepth: maxDepth,
	}
}

func malformed(kind, id, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s: %s", ErrMalformedEntity, kind, id, fmt.Sprintf(format, args...))
}

func (n Normalizer) degraded(fragment, ownerID string, reason error) {
	n.tel.ReportWarning(report_degraded, fragment, ownerID, reason)
}

// identity resolves the id of a raw object. Every place upstream may put the id is checked
// and they must all agree.
func identity(obj object) (int64, string, error) {
	candidates := []string{}
	for _, key := range []string{"rest_id", "id_str"} {
		if str := getString(obj, key); str != "" {
			candidates = append(candidates, str)
		}
	}
	// on GraphQL users `id` is an opaque base64 string, only numeric ids take part
	if number, ok := obj["id"].(interface{ Int64() (int64, error) }); ok {
		n, err := number.Int64()
		if err != nil {
			return 0, "", fmt.Errorf("numeric id: %w", err)
		}
		candidates = append(candidates, entities.FormatID(n))
	}
	if len(candidates) == 0 {
		return 0, "", fmt.Errorf("missing id")
	}

	idStr := candidates[0]
	for _, other := range candidates[1:] {
		if other != idStr {
			return 0, "", fmt.Errorf("inconsistent ids %q and %q", idStr, other)
		}
	}
	id, err := entities.ParseID(idStr)
	if err != nil {
		return 0, "", err
	}
	return id, idStr, nil
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(time.RubyDate, value)
}

// Account normalizes the account with the given id, an empty targetID picks the first account
// found in the document (single user responses).
func (n Normalizer) Account(doc *Document, targetID string) (entities.Account, error) {
	if targetID == "" {
		if len(doc.accountOrder) == 0 {
			return entities.Account{}, malformed("account", "", "document contains no accounts")
		}
		targetID = doc.accountOrder[0]
	}
	obj, ok := doc.account(targetID)
	if !ok {
		return entities.Account{}, malformed("account", targetID, "not found in document")
	}
	account, err := n.account(obj)
	if err != nil {
		n.tel.ReportDebug(report_account, targetID, err)
		return entities.Account{}, err
	}
	return account, nil
}

func (n Normalizer) account(obj object) (entities.Account, error) {
	id, idStr, err := identity(obj)
	if err != nil {
		return entities.Account{}, malformed("account", getString(obj, "rest_id"), "%s", err.Error())
	}
	username := getString(obj, "screen_name")
	if username == "" {
		return entities.Account{}, malformed("account", idStr, "missing screen_name")
	}

	account := entities.Account{
		ID:               id,
		IDStr:            idStr,
		URL:              entities.AccountURL(username),
		Username:         username,
		DisplayName:      getString(obj, "name"),
		RawDescription:   getString(obj, "description"),
		DescriptionLinks: n.links(obj, idStr, "entities.description.urls", "entities.url.urls"),
		Location:         getString(obj, "location"),
		ProfileImageURL:  getString(obj, "profile_image_url_https"),
		ProfileBannerURL: getString(obj, "profile_banner_url"),
		Verified:         getBool(obj, "verified"),
		Blue:             getBool(obj, "is_blue_verified"),
		BlueType:         getString(obj, "verified_type"),
	}
	account.FollowersCount, _ = getInt(obj, "followers_count")
	account.FollowingCount, _ = getInt(obj, "friends_count")
	account.PostsCount, _ = getInt(obj, "statuses_count")
	account.FavouritesCount, _ = getInt(obj, "favourites_count")
	account.ListedCount, _ = getInt(obj, "listed_count")
	account.MediaCount, _ = getInt(obj, "media_count")

	if created := getString(obj, "created_at"); created != "" {
		account.Created, err = parseDate(created)
		if err != nil {
			n.degraded("account.created", idStr, err)
		}
	}
	for _, pinned := range getList(obj, "pinned_tweet_ids_str") {
		str, _ := pinned.(string)
		pinnedID, err := entities.ParseID(str)
		if err != nil {
			n.degraded("account.pinned", idStr, err)
			continue
		}
		account.PinnedIDs = append(account.PinnedIDs, pinnedID)
	}

	return account, nil
}

func (n Normalizer) accountRef(obj object) (entities.AccountRef, error) {
	id, idStr, err := identity(obj)
	if err != nil {
		return entities.AccountRef{}, err
	}
	username := getString(obj, "screen_name")
	if username == "" {
		return entities.AccountRef{}, fmt.Errorf("account ref %s has no screen_name", idStr)
	}
	return entities.AccountRef{
		ID:          id,
		IDStr:       idStr,
		Username:    username,
		DisplayName: getString(obj, "name"),
	}, nil
}

// links reads upstream url entities from every path, dropping duplicates by tracking url.
func (n Normalizer) links(obj object, ownerID string, paths ...string) []entities.Link {
	var links []entities.Link
	for _, path := range paths {
		for _, item := range getList(obj, path) {
			link := entities.Link{
				URL:         getString(item, "expanded_url"),
				Text:        getString(item, "display_url"),
				TrackingURL: getString(item, "url"),
			}
			if link.URL == "" || link.Text == "" || link.TrackingURL == "" {
				n.degraded("link", ownerID, fmt.Errorf("incomplete url entity at %s", path))
				continue
			}
			links = append(links, link)
		}
	}
	return entities.DedupLinks(links)
}

// chain tracks the ids of the posts currently being normalized above a nested post.
type chain struct {
	ids []string
}

func (c chain) depth() int {
	return len(c.ids) - 1
}

func (c chain) with(id string) chain {
	return chain{ids: append(slices.Clone(c.ids), id)}
}

// Post normalizes the post with the given id out of the document.
func (n Normalizer) Post(doc *Document, targetID string) (entities.Post, error) {
	obj, ok := doc.post(targetID)
	if !ok {
		return entities.Post{}, malformed("post", targetID, "not found in document")
	}
	post, err := n.post(doc, obj, chain{ids: []string{targetID}})
	if err != nil {
		n.tel.ReportDebug(report_post, targetID, err)
		return entities.Post{}, err
	}
	return post, nil
}

func (n Normalizer) author(doc *Document, obj object) (entities.Account, error) {
	userID := firstString(obj, "user_id_str", "core.user_results.result.rest_id")
	if userID == "" {
		return entities.Account{}, fmt.Errorf("missing author reference")
	}
	userObj, ok := doc.account(userID)
	if !ok {
		return entities.Account{}, fmt.Errorf("author %s not found in document", userID)
	}
	return n.account(userObj)
}

func (n Normalizer) post(doc *Document, obj object, c chain) (entities.Post, error) {
	id, idStr, err := identity(obj)
	if err != nil {
		return entities.Post{}, malformed("post", getString(obj, "rest_id"), "%s", err.Error())
	}
	author, err := n.author(doc, obj)
	if err != nil {
		return entities.Post{}, malformed("post", idStr, "%s", err.Error())
	}

	post := entities.Post{
		ID:                id,
		IDStr:             idStr,
		URL:               entities.PostURL(author.Username, idStr),
		Author:            author,
		Lang:              getString(obj, "lang"),
		RawContent:        firstString(obj, "note_tweet.note_tweet_results.result.text", "full_text", "text"),
		Source:            getString(obj, "source"),
		Hashtags:          stringsAt(obj, "entities.hashtags", "text"),
		Cashtags:          stringsAt(obj, "entities.symbols", "text"),
		PossiblySensitive: getBool(obj, "possibly_sensitive"),
	}
	post.ReplyCount, _ = getInt(obj, "reply_count")
	post.RepostCount, _ = getInt(obj, "retweet_count")
	post.LikeCount, _ = getInt(obj, "favorite_count")
	post.QuoteCount, _ = getInt(obj, "quote_count")
	post.BookmarkCount, _ = getInt(obj, "bookmark_count")

	if created := getString(obj, "created_at"); created != "" {
		post.Date, err = parseDate(created)
		if err != nil {
			n.degraded("post.date", idStr, err)
		}
	}

	post.ConversationID, post.ConversationIDStr = id, idStr
	if conversation := getString(obj, "conversation_id_str"); conversation != "" {
		conversationID, err := entities.ParseID(conversation)
		if err != nil {
			n.degraded("post.conversation", idStr, err)
		} else {
			post.ConversationID, post.ConversationIDStr = conversationID, conversation
		}
	}

	post.MentionedAccounts = n.mentions(obj, idStr)
	n.reply(doc, obj, &post)
	post.Links = n.links(obj, idStr, "entities.urls", "note_tweet.note_tweet_results.result.entity_set.urls")
	post.Media = n.media(obj, idStr)
	post.Card = n.card(obj, idStr)

	repostID := firstString(
		obj,
		"retweeted_status_id_str",
		"retweeted_status_result.result.rest_id",
		"retweeted_status_result.result.tweet.rest_id",
	)
	if repostID != "" {
		post.RepostedPost = n.nested(doc, "repost", idStr, repostID, c)
	}

	quoteID := firstString(
		obj,
		"quoted_status_id_str",
		"quoted_status_result.result.rest_id",
		"quoted_status_result.result.tweet.rest_id",
	)
	if quoteID == idStr {
		n.degraded("quote", idStr, fmt.Errorf("post quotes itself"))
	} else if quoteID != "" {
		post.QuotedPost = n.nested(doc, "quote", idStr, quoteID, c)
	}

	if views, ok := getInt(obj, "views.count"); ok {
		post.ViewCount = &views
	} else if views, ok := getInt(obj, "ext_views.count"); ok {
		post.ViewCount = &views
	}

	if rt := post.RepostedPost; rt != nil {
		// the outer text is truncated by upstream, rebuild it from the full inner text
		if !strings.HasSuffix(post.RawContent, rt.RawContent) {
			post.RawContent = fmt.Sprintf("RT @%s: %s", rt.Author.Username, rt.RawContent)
		}
		if post.ViewCount == nil && rt.ViewCount != nil {
			views := *rt.ViewCount
			post.ViewCount = &views
		}
	}

	err = post.Validate()
	if err != nil {
		return entities.Post{}, malformed("post", idStr, "%s", err.Error())
	}
	return post, nil
}

// nested normalizes a reposted or quoted post, returning nil when it cannot be.
func (n Normalizer) nested(doc *Document, fragment, ownerID, childID string, c chain) *entities.Post {
	if slices.Contains(c.ids, childID) {
		n.degraded(fragment, ownerID, fmt.Errorf("cycle through %s", childID))
		return nil
	}
	if c.depth()+1 > n.maxDepth {
		n.degraded(fragment, ownerID, fmt.Errorf("chain deeper than %d, truncated at %s", n.maxDepth, childID))
		return nil
	}
	obj, ok := doc.post(childID)
	if !ok {
		n.degraded(fragment, ownerID, fmt.Errorf("%s not found in document", childID))
		return nil
	}
	child, err := n.post(doc, obj, c.with(childID))
	if err != nil {
		n.degraded(fragment, ownerID, err)
		return nil
	}
	return &child
}

func (n Normalizer) mentions(obj object, ownerID string) []entities.AccountRef {
	var out []entities.AccountRef
	for _, item := range getList(obj, "entities.user_mentions") {
		mention, _ := item.(object)
		ref, err := n.accountRef(mention)
		if err != nil {
			n.degraded("mention", ownerID, err)
			continue
		}
		out = append(out, ref)
	}
	return out
}

func (n Normalizer) reply(doc *Document, obj object, post *entities.Post) {
	if replyTo := getString(obj, "in_reply_to_status_id_str"); replyTo != "" {
		replyID, err := entities.ParseID(replyTo)
		if err != nil {
			n.degraded("reply", post.IDStr, err)
		} else {
			post.InReplyToID = &replyID
			post.InReplyToIDStr = replyTo
		}
	}

	userID := getString(obj, "in_reply_to_user_id_str")
	if userID == "" {
		return
	}
	if userObj, ok := doc.account(userID); ok {
		ref, err := n.accountRef(userObj)
		if err == nil {
			post.InReplyToAccount = &ref
			return
		}
		n.degraded("reply.account", post.IDStr, err)
	}
	for _, mention := range post.MentionedAccounts {
		if mention.IDStr == userID {
			ref := mention
			post.InReplyToAccount = &ref
			return
		}
	}
	// deleted or hidden accounts are never in the document
	n.degraded("reply.account", post.IDStr, fmt.Errorf("account %s not found", userID))
}
