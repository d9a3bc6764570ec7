package api

import (
	"net/http"
	"time"

	"github.com/meridian-labs/catalog-search/internal/analytics"
	"github.com/meridian-labs/catalog-search/pkg/health"
	"github.com/meridian-labs/catalog-search/pkg/metrics"
	"github.com/meridian-labs/catalog-search/pkg/middleware"
)

// NewRouter builds the service HTTP handler.
//
// Route table:
//
//	GET    /api/v1/search                → hybrid search
//	GET    /api/v1/autocomplete         → prefix suggestions
//	POST   /api/v1/admin/rebuild        → publish a new generation
//	GET    /api/v1/recent/{user_id}     → recent searches
//	POST   /api/v1/recent               → record a recent search
//	DELETE /api/v1/recent/{user_id}     → clear recent searches
//	GET    /api/v1/analytics            → aggregated stats
//	GET    /api/v1/cache/stats          → query cache counters
//	POST   /api/v1/cache/invalidate     → flush the query cache
//	GET    /health/live                 → liveness
//	GET    /health/ready                → readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → handler
func NewRouter(h *Handler, stats *analytics.Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/autocomplete", h.Autocomplete)
	mux.HandleFunc("POST /api/v1/admin/rebuild", h.Rebuild)

	mux.HandleFunc("GET /api/v1/recent/{user_id}", h.RecentSearches)
	mux.HandleFunc("POST /api/v1/recent", h.RecordRecentSearch)
	mux.HandleFunc("DELETE /api/v1/recent/{user_id}", h.ClearRecentSearches)

	if stats != nil {
		mux.HandleFunc("GET /api/v1/analytics", stats.Stats)
	}

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if requestTimeout > 0 {
		chain = middleware.Timeout(requestTimeout)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	return chain
}
