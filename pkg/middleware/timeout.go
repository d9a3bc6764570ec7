package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/meridian-labs/catalog-search/pkg/logger"
)

// Timeout bounds each request with a deadline and answers 504 when the
// handler has not written anything by then. The handler goroutine is left
// running against the cancelled context and is expected to bail out.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &deadlineWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if tw.started.CompareAndSwap(false, true) {
					logger.FromContext(ctx).Warn("request deadline exceeded",
						"method", r.Method,
						"path", r.URL.Path,
						"limit", d,
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					w.Write([]byte(`{"error":"request timeout"}`))
				}
			}
		})
	}
}

// deadlineWriter marks the response as started so the timeout arm cannot
// write a second status line.
type deadlineWriter struct {
	http.ResponseWriter
	started atomic.Bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	if dw.started.CompareAndSwap(false, true) {
		dw.ResponseWriter.WriteHeader(code)
	}
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.started.Store(true)
	return dw.ResponseWriter.Write(b)
}
