// Package entities contains the typed values produced by the normalizer.
//
// Every entity is a plain value, once constructed it is never mutated. Identifiers are
// carried twice, as an int64 and as the decimal string the upstream API sends, because
// some consumers cannot represent the full int64 range. The two must always agree.
package entities

import (
	"fmt"
	"strconv"
	"time"
)

const baseUrl = "https://x.com"

// FormatID returns the canonical decimal form of an identifier.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID parses a decimal identifier, it rejects anything that does not round-trip
// back to the exact same string (leading zeros, signs, whitespace).
func ParseID(idStr string) (int64, error) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, err
	}
	if FormatID(id) != idStr {
		return 0, fmt.Errorf("id %q is not in canonical form", idStr)
	}
	return id, nil
}

// PostURL is the canonical url of a post.
func PostURL(username, idStr string) string {
	return fmt.Sprintf("%s/%s/status/%s", baseUrl, username, idStr)
}

// AccountURL is the canonical url of an account.
func AccountURL(username string) string {
	return fmt.Sprintf("%s/%s", baseUrl, username)
}

type Post struct {
	ID    int64
	IDStr string
	URL   string
	Date  time.Time

	Author     Account
	Lang       string
	RawContent string
	Source     string

	ReplyCount    int64
	RepostCount   int64
	LikeCount     int64
	QuoteCount    int64
	BookmarkCount int64
	// ViewCount is nil when upstream didn't provide one.
	ViewCount *int64

	ConversationID    int64
	ConversationIDStr string

	InReplyToID      *int64
	InReplyToIDStr   string
	InReplyToAccount *AccountRef

	Hashtags          []string
	Cashtags          []string
	MentionedAccounts []AccountRef
	Links             []Link

	Media *Media
	Card  Card

	RepostedPost *Post
	QuotedPost   *Post

	PossiblySensitive bool
}

type Account struct {
	ID    int64
	IDStr string
	URL   string

	Username         string
	DisplayName      string
	RawDescription   string
	DescriptionLinks []Link
	Location         string
	Created          time.Time

	FollowersCount  int64
	FollowingCount  int64
	PostsCount      int64
	FavouritesCount int64
	ListedCount     int64
	MediaCount      int64

	ProfileImageURL  string
	ProfileBannerURL string

	Verified bool
	// Blue is the paid subscription flag.
	Blue     bool
	BlueType string

	PinnedIDs []int64
}

// Ref returns the lightweight reference form of the account.
func (a Account) Ref() AccountRef {
	return AccountRef{
		ID:          a.ID,
		IDStr:       a.IDStr,
		Username:    a.Username,
		DisplayName: a.DisplayName,
	}
}

// AccountRef is used wherever only a pointer to an account is needed (mentions, replies),
// it never carries any further graph.
type AccountRef struct {
	ID          int64
	IDStr       string
	Username    string
	DisplayName string
}

type Link struct {
	URL  string
	Text string
	// TrackingURL is the t.co form of the link, it is the dedup key.
	TrackingURL string
}

// DedupLinks drops every link whose TrackingURL was already seen, keeping first-seen order.
func DedupLinks(links []Link) []Link {
	if len(links) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(links))
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l.TrackingURL]; ok {
			continue
		}
		seen[l.TrackingURL] = struct{}{}
		out = append(out, l)
	}
	return out
}
