package analytics

import (
	"encoding/json"
	"net/http"

	"github.com/meridian-labs/catalog-search/pkg/logger"
)

// Handler serves the aggregator's rolling stats.
type Handler struct {
	agg *Aggregator
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg}
}

// Stats writes the current Snapshot as JSON. Stats are eventually
// consistent with the event stream, so responses are marked uncacheable.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(h.agg.Snapshot()); err != nil {
		logger.FromContext(r.Context()).Error("writing analytics response failed", "error", err)
	}
}
