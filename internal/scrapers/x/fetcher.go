package x

import (
	"context"
	"maps"

	"xstream-backend/internal/normalize"
	"xstream-backend/internal/pagination"
)

// timelineFetcher requests the pages of one paginated operation, keeping only the items of
// the kind the timeline is about (a followers timeline also mentions posts, a search also
// mentions accounts).
type timelineFetcher struct {
	client    *Client
	op        Operation
	variables map[string]any
	kind      normalize.ItemKind
}

func (f timelineFetcher) FetchPage(ctx context.Context, cursor string) (pagination.Page[normalize.RawItem], error) {
	variables := map[string]any{}
	maps.Copy(variables, f.variables)
	if cursor != "" {
		variables["cursor"] = cursor
	}

	body, err := f.client.Graphql(ctx, f.op, variables)
	if err != nil {
		return pagination.Page[normalize.RawItem]{}, err
	}
	timeline, err := normalize.ParseTimeline(body)
	if err != nil {
		return pagination.Page[normalize.RawItem]{}, err
	}
	return pagination.Page[normalize.RawItem]{
		Items:  timeline.Filter(f.kind),
		Cursor: timeline.Cursor,
	}, nil
}
