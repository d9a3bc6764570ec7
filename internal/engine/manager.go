package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/meridian-labs/catalog-search/internal/catalog"
	"github.com/meridian-labs/catalog-search/internal/engine/embed"
	"github.com/meridian-labs/catalog-search/pkg/config"
	"github.com/meridian-labs/catalog-search/pkg/errors"
	"github.com/meridian-labs/catalog-search/pkg/resilience"
)

// Engine owns the currently published Generation and the query path over it.
// Reads capture the generation pointer once and never lock; Rebuild builds a
// fresh generation off to the side and publishes it with a single atomic
// swap.
type Engine struct {
	cfg      config.SearchConfig
	provider embed.Provider

	current   atomic.Pointer[Generation]
	rebuildIn atomic.Bool
	nextID    atomic.Uint64

	breaker      *resilience.CircuitBreaker
	embedTimeout time.Duration
	onPublish    func(*Generation)
	logger       *slog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithPublishHook registers fn to be called synchronously after each
// successful publish, with the freshly published generation.
func WithPublishHook(fn func(*Generation)) Option {
	return func(e *Engine) { e.onPublish = fn }
}

// WithEmbedTimeout bounds the per-query embedding call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(e *Engine) { e.embedTimeout = d }
}

// New creates an Engine with no published generation. Searches return
// ErrEngineNotReady until the first successful Rebuild.
func New(cfg config.SearchConfig, provider embed.Provider, opts ...Option) *Engine {
	e := &Engine{
		cfg:          cfg,
		provider:     provider,
		embedTimeout: 2 * time.Second,
		breaker: resilience.NewCircuitBreaker("embedding-provider", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     15 * time.Second,
		}),
		logger: slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rebuild validates the catalog snapshot, builds a complete new generation
// (keyword index, trie, batched embeddings), and publishes it atomically.
// On any failure the build is discarded and the previously published
// generation keeps serving. A rebuild arriving while another is running is
// rejected with ErrRebuildInProgress, never queued or interleaved.
func (e *Engine) Rebuild(ctx context.Context, listings []catalog.Listing) (uint64, error) {
	if !e.rebuildIn.CompareAndSwap(false, true) {
		return 0, errors.ErrRebuildInProgress
	}
	defer e.rebuildIn.Store(false)

	start := time.Now()
	if err := catalog.Validate(listings); err != nil {
		return 0, err
	}

	// The caller keeps ownership of its slice; the generation must stay
	// immutable, so copy before building.
	snapshot := make([]catalog.Listing, len(listings))
	copy(snapshot, listings)

	texts := make([]string, len(snapshot))
	for i, l := range snapshot {
		texts[i] = l.SearchableText()
	}

	var vectors [][]float32
	err := resilience.Retry(ctx, "rebuild-embeddings", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var embedErr error
		vectors, embedErr = e.provider.Embed(ctx, texts)
		return embedErr
	})
	if err != nil {
		e.logger.Error("rebuild aborted, embedding batch failed",
			"listings", len(snapshot),
			"error", err,
		)
		return 0, err
	}

	gen := buildGeneration(e.nextID.Add(1), snapshot, vectors)
	e.current.Store(gen)
	if e.onPublish != nil {
		e.onPublish(gen)
	}

	e.logger.Info("generation published",
		"generation_id", gen.ID,
		"listings", len(gen.Listings),
		"terms", gen.Keyword.Terms(),
		"suggest_terms", gen.Suggest.Len(),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return gen.ID, nil
}

// Current returns the published generation, or nil before the first rebuild.
func (e *Engine) Current() *Generation {
	return e.current.Load()
}

// Ready reports whether a generation has been published.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// BreakerState exposes the provider circuit state for health reporting.
func (e *Engine) BreakerState() resilience.State {
	return e.breaker.GetState()
}

// embedQuery fetches the query embedding through the circuit breaker and
// the per-request timeout. Failures degrade the request, they never block
// other requests.
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var vec []float32
	err := e.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, e.embedTimeout, "query-embedding", func(ctx context.Context) error {
			vectors, err := e.provider.Embed(ctx, []string{query})
			if err != nil {
				return err
			}
			if len(vectors) != 1 {
				return &embed.ProviderError{Op: "embed-query", Err: errMissingVector}
			}
			vec = vectors[0]
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}
