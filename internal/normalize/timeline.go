package normalize

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"xstream-backend/internal/entities"
)

type ItemKind int

const (
	KindPost ItemKind = iota
	KindAccount
)

func (k ItemKind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindAccount:
		return "account"
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// RawItem points at one entity inside a document, it is what a timeline page is made of.
type RawItem struct {
	Doc      *Document
	Kind     ItemKind
	TargetID string
}

// Timeline is one page of a paginated upstream response.
type Timeline struct {
	Doc   *Document
	Items []RawItem
	// Cursor is the continuation token of the page, empty when upstream offered none.
	Cursor string
}

// Filter keeps only the items of the given kind.
func (t Timeline) Filter(kind ItemKind) []RawItem {
	var out []RawItem
	for _, item := range t.Items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// ParseTimeline decodes one paginated upstream response into its items, in the order
// upstream listed them, and its bottom cursor.
func ParseTimeline(data []byte) (Timeline, error) {
	root, err := decodeRaw(data)
	if err != nil {
		return Timeline{}, err
	}
	doc := NewDocument(root)
	timeline := Timeline{
		Doc:    doc,
		Cursor: findCursor(root, "Bottom"),
	}

	var entries []any
	collectEntries(root, &entries)
	for _, entry := range entries {
		entryID := getString(entry, "entryId")
		if skipEntry(entryID) {
			continue
		}
		for _, content := range entryContents(entry) {
			if item, ok := itemFromContent(doc, content); ok {
				timeline.Items = append(timeline.Items, item)
			}
		}
	}
	return timeline, nil
}

func skipEntry(entryID string) bool {
	for _, prefix := range []string{"cursor-", "messageprompt-", "promoted-"} {
		if strings.HasPrefix(entryID, prefix) {
			return true
		}
	}
	return false
}

// collectEntries gathers every timeline entry in document order, entries live under
// `instructions[].entries`, modules add more under `instructions[].moduleItems` and a
// TimelinePinEntry instruction carries a single `entry`.
func collectEntries(value any, out *[]any) {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			collectEntries(item, out)
		}
	case object:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			child := v[key]
			if key == "entries" || key == "moduleItems" {
				if list, ok := child.([]any); ok {
					*out = append(*out, list...)
					continue
				}
			}
			if key == "entry" {
				if entry, ok := child.(object); ok && getString(entry, "entryId") != "" {
					*out = append(*out, entry)
					continue
				}
			}
			collectEntries(child, out)
		}
	}
}

// entryContents returns the itemContent of a single item entry, or of every item of a module.
func entryContents(entry any) []any {
	if content := getObject(entry, "content.itemContent"); content != nil {
		return []any{content}
	}
	if content := getObject(entry, "item.itemContent"); content != nil {
		return []any{content}
	}
	var out []any
	for _, item := range getList(entry, "content.items") {
		if content := getObject(item, "item.itemContent"); content != nil {
			out = append(out, content)
		}
	}
	return out
}

func itemFromContent(doc *Document, content any) (RawItem, bool) {
	if result := getObject(content, "tweet_results.result"); result != nil {
		id := firstString(result, "rest_id", "tweet.rest_id")
		if id == "" {
			return RawItem{}, false
		}
		return RawItem{Doc: doc, Kind: KindPost, TargetID: id}, true
	}
	if result := getObject(content, "user_results.result"); result != nil {
		id := getString(result, "rest_id")
		if id == "" {
			return RawItem{}, false
		}
		return RawItem{Doc: doc, Kind: KindAccount, TargetID: id}, true
	}
	return RawItem{}, false
}

func findCursor(value any, cursorType string) string {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if cursor := findCursor(item, cursorType); cursor != "" {
				return cursor
			}
		}
	case object:
		if getString(v, "cursorType") == cursorType {
			return getString(v, "value")
		}
		for _, key := range slices.Sorted(maps.Keys(v)) {
			if cursor := findCursor(v[key], cursorType); cursor != "" {
				return cursor
			}
		}
	}
	return ""
}

// PostItem normalizes a timeline item that points at a post.
func (n Normalizer) PostItem(item RawItem) (entities.Post, error) {
	if item.Kind != KindPost {
		return entities.Post{}, fmt.Errorf("item %s is a %s, not a post", item.TargetID, item.Kind)
	}
	return n.Post(item.Doc, item.TargetID)
}

// AccountItem normalizes a timeline item that points at an account.
func (n Normalizer) AccountItem(item RawItem) (entities.Account, error) {
	if item.Kind != KindAccount {
		return entities.Account{}, fmt.Errorf("item %s is a %s, not an account", item.TargetID, item.Kind)
	}
	return n.Account(item.Doc, item.TargetID)
}
