package entities

import (
	"time"

	json "github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"
)

// TypeKey is the discriminator key written into every exported entity.
const TypeKey = "_type"

const (
	TypePost       = "post"
	TypeAccount    = "account"
	TypeAccountRef = "account_ref"
	TypeMedia      = "media"
)

// Exporter is implemented by every top level entity.
type Exporter interface {
	Export() map[string]any
}

// JSON renders the compact textual form of an entity.
func JSON(e Exporter) (string, error) {
	buff, err := json.Marshal(e.Export())
	if err != nil {
		return "", err
	}
	return string(buff), nil
}

// ToProto converts the exported form of an entity into a protobuf Struct.
// Numbers become doubles in that form, `id_str` keeps the exact identifier.
func ToProto(e Exporter) (*structpb.Struct, error) {
	return structpb.NewStruct(e.Export())
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func optionalInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func exportLinks(links []Link) []any {
	out := make([]any, len(links))
	for i, l := range links {
		out[i] = map[string]any{
			"url":    l.URL,
			"text":   l.Text,
			"tcourl": l.TrackingURL,
		}
	}
	return out
}

func exportPhoto(p *Photo) any {
	if p == nil {
		return nil
	}
	return map[string]any{"url": p.URL}
}

func (p Post) Export() map[string]any {
	mentions := make([]any, len(p.MentionedAccounts))
	for i, m := range p.MentionedAccounts {
		mentions[i] = m.Export()
	}

	out := map[string]any{
		TypeKey:             TypePost,
		"id":                p.ID,
		"id_str":            p.IDStr,
		"url":               p.URL,
		"date":              formatTime(p.Date),
		"author":            p.Author.Export(),
		"lang":              p.Lang,
		"rawContent":        p.RawContent,
		"source":            p.Source,
		"replyCount":        p.ReplyCount,
		"repostCount":       p.RepostCount,
		"likeCount":         p.LikeCount,
		"quoteCount":        p.QuoteCount,
		"bookmarkCount":     p.BookmarkCount,
		"viewCount":         optionalInt(p.ViewCount),
		"conversationId":    p.ConversationID,
		"conversationIdStr": p.ConversationIDStr,
		"inReplyToId":       optionalInt(p.InReplyToID),
		"inReplyToIdStr":    nil,
		"inReplyToAccount":  nil,
		"hashtags":          stringList(p.Hashtags),
		"cashtags":          stringList(p.Cashtags),
		"mentionedAccounts": mentions,
		"links":             exportLinks(p.Links),
		"media":             nil,
		"card":              nil,
		"repostedPost":      nil,
		"quotedPost":        nil,
		"possiblySensitive": p.PossiblySensitive,
	}
	if p.InReplyToIDStr != "" {
		out["inReplyToIdStr"] = p.InReplyToIDStr
	}
	if p.InReplyToAccount != nil {
		out["inReplyToAccount"] = p.InReplyToAccount.Export()
	}
	if p.Media != nil {
		out["media"] = p.Media.Export()
	}
	if p.Card != nil {
		out["card"] = ExportCard(p.Card)
	}
	if p.RepostedPost != nil {
		out["repostedPost"] = p.RepostedPost.Export()
	}
	if p.QuotedPost != nil {
		out["quotedPost"] = p.QuotedPost.Export()
	}
	return out
}

func (a Account) Export() map[string]any {
	pinned := make([]any, len(a.PinnedIDs))
	for i, id := range a.PinnedIDs {
		pinned[i] = id
	}
	return map[string]any{
		TypeKey:            TypeAccount,
		"id":               a.ID,
		"id_str":           a.IDStr,
		"url":              a.URL,
		"username":         a.Username,
		"displayname":      a.DisplayName,
		"rawDescription":   a.RawDescription,
		"descriptionLinks": exportLinks(a.DescriptionLinks),
		"location":         a.Location,
		"created":          formatTime(a.Created),
		"followersCount":   a.FollowersCount,
		"followingCount":   a.FollowingCount,
		"postsCount":       a.PostsCount,
		"favouritesCount":  a.FavouritesCount,
		"listedCount":      a.ListedCount,
		"mediaCount":       a.MediaCount,
		"profileImageUrl":  a.ProfileImageURL,
		"profileBannerUrl": a.ProfileBannerURL,
		"verified":         a.Verified,
		"blue":             a.Blue,
		"blueType":         a.BlueType,
		"pinnedIds":        pinned,
	}
}

func (r AccountRef) Export() map[string]any {
	return map[string]any{
		TypeKey:       TypeAccountRef,
		"id":          r.ID,
		"id_str":      r.IDStr,
		"username":    r.Username,
		"displayname": r.DisplayName,
	}
}

func (m Media) Export() map[string]any {
	photos := make([]any, len(m.Photos))
	for i, p := range m.Photos {
		photos[i] = exportPhoto(&p)
	}
	videos := make([]any, len(m.Videos))
	for i, v := range m.Videos {
		variants := make([]any, len(v.Variants))
		for j, variant := range v.Variants {
			variants[j] = map[string]any{
				"url":         variant.URL,
				"bitrate":     variant.Bitrate,
				"contentType": variant.ContentType,
			}
		}
		videos[i] = map[string]any{
			"thumbnailUrl": v.ThumbnailURL,
			"duration":     v.Duration,
			"views":        optionalInt(v.Views),
			"variants":     variants,
		}
	}
	animated := make([]any, len(m.Animated))
	for i, a := range m.Animated {
		animated[i] = map[string]any{
			"thumbnailUrl": a.ThumbnailURL,
			"videoUrl":     a.VideoURL,
		}
	}
	return map[string]any{
		TypeKey:    TypeMedia,
		"photos":   photos,
		"videos":   videos,
		"animated": animated,
	}
}

// ExportCard renders any card variant, the discriminator is the card type.
func ExportCard(c Card) map[string]any {
	out := c.export()
	out[TypeKey] = c.CardType()
	return out
}

func (c SummaryCard) export() map[string]any {
	return map[string]any{
		"title":       c.Title,
		"description": c.Description,
		"vanityUrl":   c.VanityURL,
		"url":         c.URL,
		"photo":       exportPhoto(c.Photo),
	}
}

func (c PollCard) export() map[string]any {
	options := make([]any, len(c.Options))
	for i, o := range c.Options {
		options[i] = map[string]any{
			"label":      o.Label,
			"votesCount": o.VotesCount,
		}
	}
	return map[string]any{
		"finished": c.Finished,
		"options":  options,
	}
}

func (c BroadcastCard) export() map[string]any {
	return map[string]any{
		"title": c.Title,
		"url":   c.URL,
		"photo": exportPhoto(c.Photo),
	}
}

func (c AudiospaceCard) export() map[string]any {
	return map[string]any{"url": c.URL}
}

func (c UnknownCard) export() map[string]any {
	return map[string]any{
		"name": c.Name,
		"url":  c.URL,
	}
}
