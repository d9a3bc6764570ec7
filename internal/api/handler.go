// Package api exposes the search service over HTTP: search, autocomplete,
// catalog rebuilds, recent searches, analytics, and cache administration.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meridian-labs/catalog-search/internal/analytics"
	"github.com/meridian-labs/catalog-search/internal/catalog"
	"github.com/meridian-labs/catalog-search/internal/engine"
	"github.com/meridian-labs/catalog-search/internal/recent"
	"github.com/meridian-labs/catalog-search/pkg/config"
	pkgerrors "github.com/meridian-labs/catalog-search/pkg/errors"
	"github.com/meridian-labs/catalog-search/pkg/logger"
	"github.com/meridian-labs/catalog-search/pkg/metrics"
	"github.com/meridian-labs/catalog-search/pkg/middleware"
)

const defaultSuggestLimit = 5

// SearchEngine is the engine surface the HTTP layer depends on.
type SearchEngine interface {
	Search(ctx context.Context, query string, limit, offset int) (*engine.SearchResponse, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
	Rebuild(ctx context.Context, listings []catalog.Listing) (uint64, error)
	Current() *engine.Generation
}

// Handler holds the HTTP endpoints. Cache, collector, and recent stores are
// optional; a nil value disables that collaborator.
type Handler struct {
	engine    SearchEngine
	cache     *QueryCache
	collector *analytics.Collector
	recent    recent.Store
	metrics   *metrics.Metrics
	cfg       config.SearchConfig
	catalog   config.CatalogConfig
	logger    *slog.Logger
}

func NewHandler(
	eng SearchEngine,
	cache *QueryCache,
	collector *analytics.Collector,
	recentStore recent.Store,
	m *metrics.Metrics,
	cfg config.SearchConfig,
	catalogCfg config.CatalogConfig,
) *Handler {
	return &Handler{
		engine:    eng,
		cache:     cache,
		collector: collector,
		recent:    recentStore,
		metrics:   m,
		cfg:       cfg,
		catalog:   catalogCfg,
		logger:    slog.Default().With("component", "api-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, err := intParam(r, "limit", h.cfg.DefaultLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := r.URL.Query().Get("user_id")

	resp, cacheHit, err := h.search(ctx, query, limit, offset)
	if err != nil {
		h.observeSearch(nil, false, start)
		log.Error("search failed", "query", query, "error", err)
		h.writeEngineError(w, err)
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	h.observeSearch(resp, cacheHit, start)
	log.Info("search completed",
		"query", query,
		"total", resp.Total,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"degraded", resp.Degraded,
		"latency_ms", latencyMs,
	)

	if h.recent != nil && userID != "" {
		// Off the request path; history is best-effort.
		go func() {
			recordCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := h.recent.Record(recordCtx, userID, query); err != nil {
				h.logger.Warn("recording recent search failed", "user_id", userID, "error", err)
			}
		}()
	}
	if h.collector != nil {
		h.collector.TrackSearch(analytics.SearchEvent{
			Type:         analytics.EventSearch,
			Query:        query,
			UserID:       userID,
			Total:        resp.Total,
			Returned:     len(resp.Results),
			LatencyMs:    latencyMs,
			CacheHit:     cacheHit,
			Degraded:     resp.Degraded,
			GenerationID: resp.GenerationID,
			RequestID:    middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) search(ctx context.Context, query string, limit, offset int) (*engine.SearchResponse, bool, error) {
	if h.cache == nil {
		resp, err := h.engine.Search(ctx, query, limit, offset)
		return resp, false, err
	}
	gen := h.engine.Current()
	if gen == nil {
		return nil, false, pkgerrors.ErrEngineNotReady
	}
	return h.cache.GetOrCompute(ctx, gen.ID, query, limit, offset, func() (*engine.SearchResponse, error) {
		return h.engine.Search(ctx, query, limit, offset)
	})
}

func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'prefix' is required")
		return
	}
	limit, err := intParam(r, "limit", defaultSuggestLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	suggestions, err := h.engine.Suggest(r.Context(), prefix, limit)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SuggestLatency.Observe(time.Since(start).Seconds())
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"prefix":      prefix,
		"suggestions": suggestions,
	})
}

// Rebuild replaces the published generation from the request body (a JSON
// array of listings) or, with an empty body, from the configured catalog
// file.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	listings, err := h.rebuildListings(r)
	if err != nil {
		log.Error("rebuild request rejected", "error", err)
		h.writeEngineError(w, err)
		return
	}

	generationID, err := h.engine.Rebuild(ctx, listings)
	took := time.Since(start)
	if err != nil {
		h.observeRebuild(false, took)
		h.trackRebuild(analytics.RebuildEvent{Listings: len(listings), DurationMs: took.Milliseconds()})
		log.Error("rebuild failed", "listings", len(listings), "error", err)
		h.writeEngineError(w, err)
		return
	}

	h.observeRebuild(true, took)
	h.trackRebuild(analytics.RebuildEvent{
		GenerationID: generationID,
		Listings:     len(listings),
		DurationMs:   took.Milliseconds(),
		Success:      true,
	})
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			h.logger.Warn("cache invalidation after rebuild failed", "error", err)
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"generation_id": generationID,
		"listings":      len(listings),
		"took_ms":       took.Milliseconds(),
	})
}

func (h *Handler) rebuildListings(r *http.Request) ([]catalog.Listing, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrInvalidCatalog, http.StatusBadRequest, "reading request body")
	}
	if len(body) == 0 {
		if h.catalog.Path == "" {
			return nil, pkgerrors.New(pkgerrors.ErrInvalidCatalog, http.StatusBadRequest,
				"request body is empty and no catalog file is configured")
		}
		return catalog.LoadFile(h.catalog.Path)
	}
	var listings []catalog.Listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrInvalidCatalog, http.StatusBadRequest,
			"request body is not a listing array: %v", err)
	}
	return listings, nil
}

func (h *Handler) RecentSearches(w http.ResponseWriter, r *http.Request) {
	if h.recent == nil {
		h.writeError(w, http.StatusServiceUnavailable, "recent searches are disabled")
		return
	}
	userID := r.PathValue("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	queries, err := h.recent.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing recent searches failed", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "listing recent searches failed")
		return
	}
	if queries == nil {
		queries = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"queries": queries,
	})
}

func (h *Handler) RecordRecentSearch(w http.ResponseWriter, r *http.Request) {
	if h.recent == nil {
		h.writeError(w, http.StatusServiceUnavailable, "recent searches are disabled")
		return
	}
	var req struct {
		UserID string `json:"user_id"`
		Query  string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Query) == "" {
		h.writeError(w, http.StatusBadRequest, "user_id and query are required")
		return
	}
	if err := h.recent.Record(r.Context(), req.UserID, req.Query); err != nil {
		h.logger.Error("recording recent search failed", "user_id", req.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "recording recent search failed")
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (h *Handler) ClearRecentSearches(w http.ResponseWriter, r *http.Request) {
	if h.recent == nil {
		h.writeError(w, http.StatusServiceUnavailable, "recent searches are disabled")
		return
	}
	userID := r.PathValue("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := h.recent.Clear(r.Context(), userID); err != nil {
		h.logger.Error("clearing recent searches failed", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "clearing recent searches failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) observeSearch(resp *engine.SearchResponse, cacheHit bool, start time.Time) {
	if h.metrics == nil {
		return
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.SearchQueriesTotal.WithLabelValues(searchOutcome(resp)).Inc()
	if resp != nil {
		h.metrics.SearchResultsCount.Observe(float64(len(resp.Results)))
	}
}

func searchOutcome(resp *engine.SearchResponse) string {
	switch {
	case resp == nil:
		return "error"
	case resp.Degraded:
		return "keyword_degraded"
	case resp.Total == 0:
		return "zero_result"
	case len(resp.Results) > 0:
		return string(resp.Results[0].MatchType)
	default:
		return "zero_result"
	}
}

func (h *Handler) observeRebuild(success bool, took time.Duration) {
	if h.metrics == nil {
		return
	}
	status := "failure"
	if success {
		status = "success"
	}
	h.metrics.RebuildsTotal.WithLabelValues(status).Inc()
	if success {
		h.metrics.RebuildDuration.Observe(took.Seconds())
	}
}

func (h *Handler) trackRebuild(event analytics.RebuildEvent) {
	if h.collector == nil {
		return
	}
	event.Type = analytics.EventRebuild
	h.collector.TrackRebuild(event)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer", name)
	}
	return v, nil
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
