package globals

import (
	"context"

	"xstream-backend/internal/components/telemetry"
	"xstream-backend/internal/scrapers/x"
)

type key struct{}

type Value struct {
	API  *x.API
	Tel  telemetry.API
	Otel telemetry.Otel

	Limit              int
	EmptyPageTolerance int
	StartCursor        string
	Format             string
	// DB is the archive the results are saved to, empty disables archiving.
	DB string
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key{}).(*Value)
}
