// Package tracing times pipeline stages and emits each span as a structured
// log line when it ends. Spans nest through the context: a child records its
// full dotted path, so a search request produces lines like
// "search", "search.keyword-filter", "search.semantic-rerank".
package tracing

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridian-labs/catalog-search/pkg/logger"
)

type pathKey struct{}

// Span is one timed stage. End logs it; a Span is not reused after End.
type Span struct {
	path  string
	start time.Time
	attrs []any
	log   *slog.Logger
}

// StartSpan opens a root span. The returned context carries the span path
// for children started from it.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	return start(ctx, name)
}

// StartChildSpan opens a span nested under whatever span the context
// carries. Without a parent in ctx it behaves like StartSpan.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	if parent, ok := ctx.Value(pathKey{}).(string); ok {
		name = parent + "." + name
	}
	return start(ctx, name)
}

func start(ctx context.Context, path string) (context.Context, *Span) {
	s := &Span{
		path:  path,
		start: time.Now(),
		log:   logger.FromContext(ctx),
	}
	return context.WithValue(ctx, pathKey{}, path), s
}

// SetAttr attaches a key-value pair to the span's log line. Spans are used
// by a single goroutine, so no locking.
func (s *Span) SetAttr(key string, value any) {
	s.attrs = append(s.attrs, key, value)
}

// End emits the span at debug level with its duration and attributes.
func (s *Span) End() {
	args := make([]any, 0, len(s.attrs)+4)
	args = append(args,
		"span", s.path,
		"duration_us", time.Since(s.start).Microseconds(),
	)
	args = append(args, s.attrs...)
	s.log.Debug("span", args...)
}
