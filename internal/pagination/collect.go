package pagination

import "context"

// Collect pulls items out of the stream until it stops or limit items were collected,
// limit <= 0 drains the stream. The items collected before a fetch failure are returned
// along with the error.
func Collect[T any](ctx context.Context, s *Stream[T], limit int) ([]T, error) {
	var out []T
	for (limit <= 0 || len(out) < limit) && s.Next(ctx) {
		out = append(out, s.Item())
	}
	return out, s.Err()
}
