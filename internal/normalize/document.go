package normalize

import (
	"maps"
	"slices"
)

// Document is a raw upstream response reduced to flat tables of posts and accounts keyed by
// their decimal id. Upstream nests the same objects in many places (authors inside every post,
// quoted posts inside posts, timeline entries), the tables allow resolving any of them by id.
type Document struct {
	posts        map[string]object
	postOrder    []string
	accounts     map[string]object
	accountOrder []string
}

// ParseDocument decodes a raw upstream response into a Document.
func ParseDocument(data []byte) (*Document, error) {
	root, err := decodeRaw(data)
	if err != nil {
		return nil, err
	}
	return NewDocument(root), nil
}

// NewDocument builds a Document out of an already decoded JSON tree. Both the GraphQL shape
// (`__typename` nodes with a `legacy` payload) and the older `globalObjects` envelope are
// understood.
func NewDocument(root any) *Document {
	doc := &Document{
		posts:    map[string]object{},
		accounts: map[string]object{},
	}

	if global := getObject(root, "globalObjects"); global != nil {
		tweets := getObject(global, "tweets")
		for _, key := range slices.Sorted(maps.Keys(tweets)) {
			if obj, ok := tweets[key].(object); ok {
				doc.addPost(key, obj)
			}
		}
		users := getObject(global, "users")
		for _, key := range slices.Sorted(maps.Keys(users)) {
			if obj, ok := users[key].(object); ok {
				doc.addAccount(key, obj)
			}
		}
	}

	doc.walk(root)
	return doc
}

func (d *Document) addPost(id string, obj object) {
	if id == "" {
		return
	}
	if _, exists := d.posts[id]; exists {
		return
	}
	d.posts[id] = obj
	d.postOrder = append(d.postOrder, id)
}

func (d *Document) addAccount(id string, obj object) {
	if id == "" {
		return
	}
	if _, exists := d.accounts[id]; exists {
		return
	}
	d.accounts[id] = obj
	d.accountOrder = append(d.accountOrder, id)
}

func (d *Document) walk(value any) {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			d.walk(item)
		}
	case object:
		switch getString(v, "__typename") {
		case "Tweet":
			d.addNode(v, true)
		case "TweetWithVisibilityResults":
			// the wrapped tweet frequently comes without a __typename of its own
			if tweet := getObject(v, "tweet"); tweet != nil {
				d.addNode(tweet, true)
			}
		case "User":
			d.addNode(v, false)
		}
		// map order is random, sorting keeps the first-seen order stable across runs
		for _, key := range slices.Sorted(maps.Keys(v)) {
			d.walk(v[key])
		}
	}
}

func (d *Document) addNode(node object, isPost bool) {
	legacy := getObject(node, "legacy")
	if legacy == nil {
		return
	}
	id := getString(node, "rest_id")
	if id == "" {
		id = getString(legacy, "id_str")
	}
	flat := flattenNode(node, legacy, isPost)
	if isPost {
		d.addPost(id, flat)
		return
	}
	d.addAccount(id, flat)
}

// flattenNode merges the `legacy` payload of a GraphQL node onto the node itself, legacy wins
// on conflicts. For users, fields that have migrated out of legacy are pulled back in when
// legacy no longer carries them.
func flattenNode(node, legacy object, isPost bool) object {
	flat := make(object, len(node)+len(legacy))
	for k, v := range node {
		if k == "legacy" {
			continue
		}
		flat[k] = v
	}
	for k, v := range legacy {
		flat[k] = v
	}
	if isPost {
		return flat
	}

	moved := map[string]string{
		"screen_name":             "core.screen_name",
		"name":                    "core.name",
		"created_at":              "core.created_at",
		"profile_image_url_https": "avatar.image_url",
		"location":                "location.location",
	}
	for key, path := range moved {
		if str, ok := flat[key].(string); ok && str != "" {
			continue
		}
		if str := getString(node, path); str != "" {
			flat[key] = str
		}
	}
	return flat
}

func (d *Document) post(id string) (object, bool) {
	obj, ok := d.posts[id]
	return obj, ok
}

func (d *Document) account(id string) (object, bool) {
	obj, ok := d.accounts[id]
	return obj, ok
}

// PostIDs lists the ids of every post in the document in the order they were first seen.
func (d *Document) PostIDs() []string {
	return append([]string(nil), d.postOrder...)
}

// AccountIDs lists the ids of every account in the document in the order they were first seen.
func (d *Document) AccountIDs() []string {
	return append([]string(nil), d.accountOrder...)
}
