package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/meridian-labs/catalog-search/pkg/logger"
)

// StartServer exposes the Prometheus scrape endpoint on its own listener,
// away from the API port. The returned function shuts it down.
func StartServer(port int) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	log := logger.WithComponent("metrics-server")
	go func() {
		log.Info("scrape endpoint listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("scrape endpoint failed", "error", err)
		}
	}()
	return srv.Shutdown
}
