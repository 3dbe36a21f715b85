// Package pagination walks cursor paginated upstream timelines and turns them into a lazy
// stream of normalized entities.
//
// A Stream issues at most one fetch at a time and only when the consumer asks for an item that
// isn't buffered yet, so a consumer that stops calling Next never causes another fetch.
// Each Stream owns its seen-id set and counters, separate streams share nothing.
package pagination

import (
	"context"
	"fmt"

	"xstream-backend/internal/components/assert"
	"xstream-backend/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("xstream.internal.pagination")

const (
	report_fetch_page = "stream.fetch-page"
	report_skip_item  = "stream.skip-item"
	report_skipped    = "stream.skipped-items"
)

// DefaultEmptyPageTolerance is how many consecutive pages without a single new item are
// tolerated before the stream gives up on a cursor upstream keeps offering.
const DefaultEmptyPageTolerance = 2

// Page is one upstream response: its raw items in upstream order and the cursor of the next
// page, an empty Cursor means there is no next page.
type Page[R any] struct {
	Items  []R
	Cursor string
}

// Fetcher is the capability of requesting one page. The cursor is passed through verbatim,
// the empty cursor requests the first page.
type Fetcher[R any] interface {
	FetchPage(ctx context.Context, cursor string) (Page[R], error)
}

// FetchFunc adapts a plain function to a Fetcher.
type FetchFunc[R any] func(ctx context.Context, cursor string) (Page[R], error)

func (f FetchFunc[R]) FetchPage(ctx context.Context, cursor string) (Page[R], error) {
	return f(ctx, cursor)
}

type StopReason int

const (
	// StopNone means the stream hasn't stopped.
	StopNone StopReason = iota
	// StopEndOfData means upstream returned a page without a cursor.
	StopEndOfData
	// StopLoopGuard means upstream returned the same cursor that was used to request the page.
	StopLoopGuard
	// StopEmptyTail means too many consecutive pages had nothing new.
	StopEmptyTail
	// StopLimit means the requested number of items was emitted.
	StopLimit
	// StopFailed means a fetch failed, see Stream.Err.
	StopFailed
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopEndOfData:
		return "end-of-data"
	case StopLoopGuard:
		return "loop-guard"
	case StopEmptyTail:
		return "empty-tail"
	case StopLimit:
		return "limit"
	case StopFailed:
		return "failed"
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

// FetchError is the terminal error of a stream whose fetcher failed.
type FetchError struct {
	// Cursor is the cursor the failed page was requested with.
	Cursor string
	// Page is the 1-based index of the failed page.
	Page int
	Err  error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (cursor %q): %s", e.Page, e.Cursor, e.Err.Error())
}

func (e FetchError) Unwrap() error {
	return e.Err
}

type Options struct {
	// Limit is the maximum number of items emitted, <= 0 means no limit.
	Limit int
	// EmptyPageTolerance <= 0 means DefaultEmptyPageTolerance.
	EmptyPageTolerance int
	// StartCursor resumes a previous walk, empty starts from the first page.
	StartCursor string
}

// Stream is a single pass iterator over the entities of a paginated timeline.
//
//	for s.Next(ctx) {
//		item := s.Item()
//	}
//	if err := s.Err(); err != nil { ... }
type Stream[T any] struct {
	fetch    func(ctx context.Context, cursor string) (Page[T], error)
	identify func(T) int64
	tel      telemetry.API

	limit     int
	tolerance int

	cursor     string
	seen       map[int64]struct{}
	buffer     []T
	item       T
	emitted    int
	pages      int
	emptyPages int
	reason     StopReason
	err        error
}

// New creates a stream that requests pages from fetcher, turns every raw item into a T with
// normalize and emits each identity at most once. Items that fail to normalize are skipped.
func New[R, T any](
	fetcher Fetcher[R],
	normalize func(R) (T, error),
	identify func(T) int64,
	opts Options,
	tel telemetry.API,
) *Stream[T] {
	assert.NotNil(fetcher)
	assert.NotNil(normalize)
	assert.NotNil(identify)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("pagination", tel)

	tolerance := opts.EmptyPageTolerance
	if tolerance <= 0 {
		tolerance = DefaultEmptyPageTolerance
	}

	fetch := func(ctx context.Context, cursor string) (Page[T], error) {
		raw, err := fetcher.FetchPage(ctx, cursor)
		if err != nil {
			return Page[T]{}, err
		}
		page := Page[T]{
			Cursor: raw.Cursor,
			Items:  make([]T, 0, len(raw.Items)),
		}
		skipped := 0
		for _, item := range raw.Items {
			normalized, err := normalize(item)
			if err != nil {
				tel.ReportDebug(report_skip_item, err)
				skipped++
				continue
			}
			page.Items = append(page.Items, normalized)
		}
		if skipped > 0 {
			tel.ReportCount(report_skipped, int64(skipped))
		}
		return page, nil
	}

	return &Stream[T]{
		fetch:     fetch,
		identify:  identify,
		tel:       tel,
		limit:     opts.Limit,
		tolerance: tolerance,
		cursor:    opts.StartCursor,
		seen:      map[int64]struct{}{},
	}
}

// Next advances to the next item, fetching a page when nothing is buffered. It returns false
// once the stream has stopped, Reason and Err tell why.
func (s *Stream[T]) Next(ctx context.Context) bool {
	for {
		if s.limit > 0 && s.emitted >= s.limit {
			// items still buffered were cut off by the limit, not by whatever ended the walk
			if len(s.buffer) > 0 {
				s.buffer = nil
				s.reason = StopLimit
			}
			s.stop(StopLimit)
			return false
		}
		if len(s.buffer) > 0 {
			s.item = s.buffer[0]
			s.buffer = s.buffer[1:]
			s.emitted++
			return true
		}
		if s.reason != StopNone {
			return false
		}
		s.fetchPage(ctx)
	}
}

// Item is the item Next last advanced to.
func (s *Stream[T]) Item() T {
	return s.item
}

// Err is the terminal error of the stream, nil when it stopped cleanly (or hasn't stopped).
func (s *Stream[T]) Err() error {
	return s.err
}

// Reason is why the stream stopped, StopNone while it is still running.
func (s *Stream[T]) Reason() StopReason {
	if len(s.buffer) > 0 && s.reason != StopFailed {
		return StopNone
	}
	return s.reason
}

// Pages is the number of fetches issued so far.
func (s *Stream[T]) Pages() int {
	return s.pages
}

// Cursor is the cursor the next page would be requested with, it can be given back as
// Options.StartCursor to resume the walk later. It is empty once upstream has nothing more
// to offer (end of data or a repeated cursor).
func (s *Stream[T]) Cursor() string {
	return s.cursor
}

func (s *Stream[T]) stop(reason StopReason) {
	if s.reason == StopNone {
		s.reason = reason
	}
}

func (s *Stream[T]) fetchPage(ctx context.Context) {
	s.pages++
	requested := s.cursor

	ctx, span := tracer.Start(ctx, "stream:fetch-page")
	defer span.End()
	span.SetAttributes(
		attribute.Int("page", s.pages),
		attribute.String("cursor", requested),
	)

	page, err := s.fetch(ctx, requested)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportBroken(report_fetch_page, requested, err)
		s.err = FetchError{Cursor: requested, Page: s.pages, Err: err}
		s.stop(StopFailed)
		return
	}

	// a repeated cursor means upstream is serving the same page again
	if page.Cursor != "" && page.Cursor == requested {
		span.SetAttributes(attribute.String("stop", StopLoopGuard.String()))
		s.cursor = ""
		s.stop(StopLoopGuard)
		return
	}

	fresh := 0
	for _, item := range page.Items {
		id := s.identify(item)
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.buffer = append(s.buffer, item)
		fresh++
	}
	span.SetAttributes(
		attribute.Int("items", len(page.Items)),
		attribute.Int("fresh", fresh),
	)

	if fresh == 0 {
		s.emptyPages++
	} else {
		s.emptyPages = 0
	}

	switch {
	case page.Cursor == "":
		s.cursor = ""
		s.stop(StopEndOfData)
	case s.emptyPages > s.tolerance:
		s.tel.ReportWarning(report_fetch_page, "empty tail", page.Cursor, s.emptyPages)
		s.stop(StopEmptyTail)
	default:
		s.cursor = page.Cursor
	}
}
