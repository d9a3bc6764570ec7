package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/catalog-search/internal/catalog"
	"github.com/meridian-labs/catalog-search/internal/engine/embed"
	"github.com/meridian-labs/catalog-search/pkg/config"
	"github.com/meridian-labs/catalog-search/pkg/errors"
)

// stubProvider returns deterministic vectors and can be flipped into a
// failing state to exercise the degraded paths.
type stubProvider struct {
	dim     int
	failing atomic.Bool
	calls   atomic.Int64
}

func newStubProvider(dim int) *stubProvider {
	return &stubProvider{dim: dim}
}

func (p *stubProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	if p.failing.Load() {
		return nil, &embed.ProviderError{Op: "embed", Err: fmt.Errorf("stub provider down")}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, p.dim)
	}
	return out, nil
}

func (p *stubProvider) Dimension() int { return p.dim }

// hashVector reuses the local provider's deterministic embedding so related
// text gets related vectors within a test run.
func hashVector(text string, dim int) []float32 {
	vecs, _ := embed.NewLocalProvider(dim).Embed(context.Background(), []string{text})
	return vecs[0]
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		CandidateCap:   50,
		KeywordWeight:  0.4,
		SemanticWeight: 0.6,
		MatchEpsilon:   0.05,
		DefaultLimit:   10,
		MaxLimit:       100,
	}
}

func fixtureListings() []catalog.Listing {
	return []catalog.Listing{
		{ID: "l-1", Title: "Ergonomic Laptop Stand", Description: "Aluminium riser for laptops up to 17 inches", Category: "accessories", Tags: []string{"laptop", "desk"}},
		{ID: "l-2", Title: "Gaming Desktop Tower", Description: "High performance desktop computer", Category: "computers", Tags: []string{"desktop", "gaming"}},
		{ID: "l-3", Title: "Wireless Laptop Mouse", Description: "Compact wireless mouse for laptop users", Category: "accessories", Tags: []string{"wireless", "mouse"}},
		{ID: "l-4", Title: "Standing Desk Lamp", Description: "Adjustable LED lamp for desks", Category: "lighting", Tags: []string{"lamp", "led"}},
		{ID: "l-5", Title: "Mechanical Keyboard", Description: "Tenkeyless keyboard with brown switches", Category: "accessories", Tags: []string{"keyboard"}},
	}
}

func readyEngine(t *testing.T) (*Engine, *stubProvider) {
	t.Helper()
	provider := newStubProvider(64)
	e := New(testConfig(), provider)
	_, err := e.Rebuild(context.Background(), fixtureListings())
	require.NoError(t, err)
	return e, provider
}

func TestSearchBeforeRebuild(t *testing.T) {
	e := New(testConfig(), newStubProvider(64))
	assert.False(t, e.Ready())

	_, err := e.Search(context.Background(), "laptop", 10, 0)
	assert.ErrorIs(t, err, errors.ErrEngineNotReady)

	_, err = e.Suggest(context.Background(), "lap", 5)
	assert.ErrorIs(t, err, errors.ErrEngineNotReady)

	_, err = e.Rebuild(context.Background(), fixtureListings())
	require.NoError(t, err)
	assert.True(t, e.Ready())
}

func TestSearchKeywordRelevance(t *testing.T) {
	// Keyword-only weighting: the hash embeddings carry no semantic
	// signal, so ranking assertions pin the fused score to the keyword
	// component.
	cfg := testConfig()
	cfg.KeywordWeight = 1.0
	cfg.SemanticWeight = 0.0
	e := New(cfg, newStubProvider(64))
	_, err := e.Rebuild(context.Background(), fixtureListings())
	require.NoError(t, err)

	resp, err := e.Search(context.Background(), "wireless laptop mouse", 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	// l-3 matches all three query tokens; nothing else comes close.
	assert.Equal(t, "l-3", resp.Results[0].Listing.ID)
	assert.InDelta(t, 1.0, resp.Results[0].KeywordScore, 1e-9)

	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].FusedScore, resp.Results[i].FusedScore,
			"results must be ordered by fused score")
	}
}

func TestSearchScoresBounded(t *testing.T) {
	e, _ := readyEngine(t)

	resp, err := e.Search(context.Background(), "desktop gaming computer", 10, 0)
	require.NoError(t, err)

	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.KeywordScore, 0.0)
		assert.LessOrEqual(t, r.KeywordScore, 1.0)
		assert.GreaterOrEqual(t, r.SemanticScore, 0.0)
		assert.LessOrEqual(t, r.SemanticScore, 1.0)
		assert.GreaterOrEqual(t, r.FusedScore, 0.0)
		assert.LessOrEqual(t, r.FusedScore, 1.0)
	}
}

func TestSearchInvalidQuery(t *testing.T) {
	e, _ := readyEngine(t)
	ctx := context.Background()

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}

	cases := []struct {
		name   string
		query  string
		limit  int
		offset int
	}{
		{"empty", "", 10, 0},
		{"whitespace only", "   \t  ", 10, 0},
		{"too long", string(long), 10, 0},
		{"zero limit", "laptop", 0, 0},
		{"limit above max", "laptop", 101, 0},
		{"negative offset", "laptop", 10, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Search(ctx, tc.query, tc.limit, tc.offset)
			assert.ErrorIs(t, err, errors.ErrInvalidQuery)
		})
	}
}

func TestSearchQueryTrimmedTo200Runes(t *testing.T) {
	e, _ := readyEngine(t)

	// 200 runes exactly, multi-byte, passes validation.
	runes := make([]rune, 200)
	for i := range runes {
		runes[i] = 'é'
	}
	_, err := e.Search(context.Background(), string(runes), 10, 0)
	assert.NoError(t, err)
}

func TestSearchColdStartFallback(t *testing.T) {
	e, _ := readyEngine(t)

	// No catalog term matches: the full catalog falls through to the
	// semantic stage instead of returning nothing.
	resp, err := e.Search(context.Background(), "quantum zebra orbit", 10, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Results, len(fixtureListings()))
	assert.False(t, resp.Degraded)
}

func TestSearchDegradedKeywordOnly(t *testing.T) {
	e, provider := readyEngine(t)
	provider.failing.Store(true)

	resp, err := e.Search(context.Background(), "laptop stand", 10, 0)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)

	for _, r := range resp.Results {
		assert.Equal(t, MatchKeywordDegraded, r.MatchType)
		assert.Equal(t, r.KeywordScore, r.FusedScore,
			"degraded requests rank purely by keyword score")
		assert.Zero(t, r.SemanticScore)
	}
}

func TestSearchUnavailableWhenNoSignal(t *testing.T) {
	e, provider := readyEngine(t)
	provider.failing.Store(true)

	// Zero keyword matches forces the full-catalog fallback, and with the
	// provider down there is nothing left to rank by.
	_, err := e.Search(context.Background(), "xyzzy plugh", 10, 0)
	assert.ErrorIs(t, err, errors.ErrSearchUnavailable)
}

func TestSearchMatchTypes(t *testing.T) {
	e, _ := readyEngine(t)

	resp, err := e.Search(context.Background(), "laptop", 10, 0)
	require.NoError(t, err)

	byID := make(map[string]SearchResult)
	for _, r := range resp.Results {
		byID[r.Listing.ID] = r
	}

	stand, ok := byID["l-1"]
	require.True(t, ok)
	assert.Greater(t, stand.KeywordScore, 0.05)
	assert.Contains(t, []MatchType{MatchHybrid, MatchKeyword}, stand.MatchType)

	if kb, ok := byID["l-5"]; ok {
		assert.Zero(t, kb.KeywordScore)
		assert.Equal(t, MatchSemantic, kb.MatchType)
	}
}

func TestSearchPaginationAfterRanking(t *testing.T) {
	e, _ := readyEngine(t)
	ctx := context.Background()

	full, err := e.Search(ctx, "laptop desk", 100, 0)
	require.NoError(t, err)

	page, err := e.Search(ctx, "laptop desk", 2, 2)
	require.NoError(t, err)

	assert.Equal(t, full.Total, page.Total, "total reflects the whole candidate set")
	require.Len(t, page.Results, 2)
	assert.Equal(t, full.Results[2].Listing.ID, page.Results[0].Listing.ID)
	assert.Equal(t, full.Results[3].Listing.ID, page.Results[1].Listing.ID)

	beyond, err := e.Search(ctx, "laptop desk", 10, 1000)
	require.NoError(t, err)
	assert.Empty(t, beyond.Results)
	assert.Equal(t, full.Total, beyond.Total)
}

func TestSearchDeterministic(t *testing.T) {
	e, _ := readyEngine(t)
	ctx := context.Background()

	first, err := e.Search(ctx, "wireless desk laptop", 10, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Search(ctx, "wireless desk laptop", 10, 0)
		require.NoError(t, err)
		require.Len(t, again.Results, len(first.Results))
		for j := range first.Results {
			assert.Equal(t, first.Results[j].Listing.ID, again.Results[j].Listing.ID)
			assert.Equal(t, first.Results[j].FusedScore, again.Results[j].FusedScore)
		}
	}
}

func TestSuggest(t *testing.T) {
	e, _ := readyEngine(t)
	ctx := context.Background()

	got, err := e.Suggest(ctx, "lap", 10)
	require.NoError(t, err)
	assert.Contains(t, got, "laptop")
	assert.NotContains(t, got, "lamp")

	got, err = e.Suggest(ctx, "la", 10)
	require.NoError(t, err)
	assert.Contains(t, got, "laptop")
	assert.Contains(t, got, "lamp")
	// "laptop" appears in titles across several listings, "lamp" once.
	assert.Less(t, indexOf(got, "laptop"), indexOf(got, "lamp"))

	got, err = e.Suggest(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestValidation(t *testing.T) {
	e, _ := readyEngine(t)
	ctx := context.Background()

	_, err := e.Suggest(ctx, "", 5)
	assert.ErrorIs(t, err, errors.ErrInvalidQuery)

	longPrefix := make([]byte, 51)
	for i := range longPrefix {
		longPrefix[i] = 'a'
	}
	_, err = e.Suggest(ctx, string(longPrefix), 5)
	assert.ErrorIs(t, err, errors.ErrInvalidQuery)

	_, err = e.Suggest(ctx, "lap", 0)
	assert.ErrorIs(t, err, errors.ErrInvalidQuery)
	_, err = e.Suggest(ctx, "lap", 11)
	assert.ErrorIs(t, err, errors.ErrInvalidQuery)
}

func TestRebuildPublishesNewGeneration(t *testing.T) {
	e, _ := readyEngine(t)
	ctx := context.Background()

	first := e.Current()
	require.NotNil(t, first)

	id, err := e.Rebuild(ctx, fixtureListings()[:2])
	require.NoError(t, err)
	assert.Greater(t, id, first.ID)

	second := e.Current()
	assert.Equal(t, id, second.ID)
	assert.Len(t, second.Listings, 2)
	// The old generation is untouched.
	assert.Len(t, first.Listings, len(fixtureListings()))
}

func TestRebuildIdempotentModuloGenerationID(t *testing.T) {
	e, _ := readyEngine(t)
	ctx := context.Background()

	first, err := e.Search(ctx, "wireless desk laptop", 10, 0)
	require.NoError(t, err)

	id, err := e.Rebuild(ctx, fixtureListings())
	require.NoError(t, err)
	assert.Greater(t, id, first.GenerationID)

	again, err := e.Search(ctx, "wireless desk laptop", 10, 0)
	require.NoError(t, err)
	require.Len(t, again.Results, len(first.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Listing.ID, again.Results[i].Listing.ID)
		assert.Equal(t, first.Results[i].FusedScore, again.Results[i].FusedScore)
	}
}

func TestRebuildRejectsInvalidCatalog(t *testing.T) {
	e, _ := readyEngine(t)
	before := e.Current().ID

	_, err := e.Rebuild(context.Background(), []catalog.Listing{
		{ID: "dup", Title: "One"},
		{ID: "dup", Title: "Two"},
	})
	assert.ErrorIs(t, err, errors.ErrInvalidCatalog)
	assert.Equal(t, before, e.Current().ID, "failed rebuild must not publish")
}

func TestRebuildKeepsServingOnProviderFailure(t *testing.T) {
	e, provider := readyEngine(t)
	before := e.Current().ID
	provider.failing.Store(true)

	_, err := e.Rebuild(context.Background(), fixtureListings())
	require.Error(t, err)
	assert.Equal(t, before, e.Current().ID)

	provider.failing.Store(false)
	resp, err := e.Search(context.Background(), "laptop", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, before, resp.GenerationID)
}

func TestRebuildSingleFlight(t *testing.T) {
	provider := newStubProvider(64)
	e := New(testConfig(), provider)

	const workers = 8
	var wg sync.WaitGroup
	var ok, busy atomic.Int64
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.Rebuild(context.Background(), fixtureListings())
			switch {
			case err == nil:
				ok.Add(1)
			case err == errors.ErrRebuildInProgress:
				busy.Add(1)
			default:
				t.Errorf("unexpected rebuild error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.GreaterOrEqual(t, ok.Load(), int64(1))
	assert.Equal(t, int64(workers), ok.Load()+busy.Load())
}

func TestSearchNeverMixesGenerations(t *testing.T) {
	e, _ := readyEngine(t)
	ctx := context.Background()

	small := fixtureListings()[:2]
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if _, err := e.Rebuild(ctx, small); err != nil {
				// A concurrent rebuild may still hold the slot.
				assert.ErrorIs(t, err, errors.ErrRebuildInProgress)
			}
			if _, err := e.Rebuild(ctx, fixtureListings()); err != nil {
				assert.ErrorIs(t, err, errors.ErrRebuildInProgress)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		resp, err := e.Search(ctx, "laptop desk", 100, 0)
		if err != nil {
			t.Fatalf("search failed mid-rebuild: %v", err)
		}
		// Every result must belong to a single snapshot: either the
		// 2-listing catalog or the full one, never in between.
		assert.Contains(t, []int{len(small), len(fixtureListings())}, resp.Total)
	}
	<-done
}

func indexOf(ss []string, want string) int {
	for i, s := range ss {
		if s == want {
			return i
		}
	}
	return len(ss)
}
