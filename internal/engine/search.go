package engine

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/meridian-labs/catalog-search/internal/engine/tokenizer"
	"github.com/meridian-labs/catalog-search/pkg/errors"
	"github.com/meridian-labs/catalog-search/pkg/tracing"
)

const (
	maxQueryLen  = 200
	maxPrefixLen = 50
	maxSuggest   = 10
)

// candidate is one listing position that survived the keyword filter.
type candidate struct {
	pos      int32
	keyword  float64
	semantic float64
	fused    float64
}

// Search runs the hybrid pipeline: keyword prefilter, semantic rerank over
// the bounded candidate set, score fusion, deterministic ordering, then
// offset/limit. See the package documentation for the degradation rules.
func (e *Engine) Search(ctx context.Context, query string, limit, offset int) (*SearchResponse, error) {
	start := time.Now()

	query, err := validateQuery(query, limit, offset)
	if err != nil {
		return nil, err
	}

	gen := e.current.Load()
	if gen == nil {
		return nil, errors.ErrEngineNotReady
	}

	ctx, span := tracing.StartSpan(ctx, "search")
	span.SetAttr("generation_id", gen.ID)
	defer span.End()

	_, kwSpan := tracing.StartChildSpan(ctx, "keyword-filter")
	tokens := tokenizer.TokenizeUnique(query)
	candidates, fallback := keywordFilter(gen, tokens, e.cfg.CandidateCap)
	kwSpan.SetAttr("candidates", len(candidates))
	kwSpan.SetAttr("fallback", fallback)
	kwSpan.End()

	_, rerankSpan := tracing.StartChildSpan(ctx, "semantic-rerank")
	degraded := false
	queryVec, err := e.embedQuery(ctx, query)
	if err != nil {
		if fallback {
			// Keyword filtering already fell back to the full catalog
			// with zero signal; without the semantic stage there is
			// nothing left to rank by.
			rerankSpan.End()
			return nil, errors.New(errors.ErrSearchUnavailable, 503,
				"no keyword matches and embedding provider failed")
		}
		degraded = true
		e.logger.Warn("semantic stage degraded to keyword-only ranking", "error", err)
	} else {
		for i := range candidates {
			sim := cosine(queryVec, gen.Vectors[candidates[i].pos])
			if sim < 0 {
				sim = 0
			}
			candidates[i].semantic = sim
		}
	}
	rerankSpan.End()

	fuse(candidates, e.cfg.KeywordWeight, e.cfg.SemanticWeight, degraded)
	orderCandidates(gen, candidates)

	total := len(candidates)
	page := paginate(candidates, offset, limit)

	results := make([]SearchResult, len(page))
	for i, c := range page {
		results[i] = SearchResult{
			Listing:       gen.Listings[c.pos],
			KeywordScore:  c.keyword,
			SemanticScore: c.semantic,
			FusedScore:    c.fused,
			MatchType:     e.matchType(c, degraded),
		}
	}

	return &SearchResponse{
		Query:        query,
		Results:      results,
		Total:        total,
		TookMs:       time.Since(start).Milliseconds(),
		GenerationID: gen.ID,
		Degraded:     degraded,
	}, nil
}

// Suggest returns up to limit autocomplete suggestions for prefix from the
// current generation's trie.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if n := utf8.RuneCountInString(prefix); n < 1 || n > maxPrefixLen {
		return nil, errors.Newf(errors.ErrInvalidQuery, 400,
			"prefix must be 1-%d characters, got %d", maxPrefixLen, n)
	}
	if limit < 1 || limit > maxSuggest {
		return nil, errors.Newf(errors.ErrInvalidQuery, 400,
			"limit must be between 1 and %d", maxSuggest)
	}
	gen := e.current.Load()
	if gen == nil {
		return nil, errors.ErrEngineNotReady
	}
	return gen.Suggest.Suggest(prefix, limit), nil
}

// validateQuery trims and bounds-checks the search inputs.
func validateQuery(query string, limit, offset int) (string, error) {
	trimmed := strings.TrimSpace(query)
	n := utf8.RuneCountInString(trimmed)
	if n < 1 || n > maxQueryLen {
		return "", errors.Newf(errors.ErrInvalidQuery, 400,
			"query must be 1-%d characters after trimming, got %d", maxQueryLen, n)
	}
	if limit < 1 || limit > 100 {
		return "", errors.Newf(errors.ErrInvalidQuery, 400, "limit must be between 1 and 100")
	}
	if offset < 0 {
		return "", errors.New(errors.ErrInvalidQuery, 400, "offset must not be negative")
	}
	return trimmed, nil
}

// keywordFilter scores listings by query-token overlap and returns up to cap
// candidates ordered by score. When the catalog is smaller than the cap or
// nothing matches, it falls back to the full listing set with zero keyword
// scores so the semantic stage can still surface results; keyword matching
// is a booster, never a hard gate.
func keywordFilter(gen *Generation, tokens []string, maxCands int) (cands []candidate, fallback bool) {
	matched := make(map[int32]int)
	for _, tok := range tokens {
		for _, pos := range gen.Keyword.Postings(tok) {
			matched[pos]++
		}
	}

	if len(matched) == 0 || len(gen.Listings) < maxCands {
		cands = make([]candidate, len(gen.Listings))
		for i := range gen.Listings {
			cands[i] = candidate{pos: int32(i)}
		}
		if len(matched) > 0 {
			// Small catalog: keep genuine keyword scores, just skip
			// the candidate cut.
			for i := range cands {
				cands[i].keyword = float64(matched[cands[i].pos]) / float64(len(tokens))
			}
			return cands, false
		}
		return cands, true
	}

	cands = make([]candidate, 0, len(matched))
	for pos, hits := range matched {
		cands = append(cands, candidate{
			pos:     pos,
			keyword: float64(hits) / float64(len(tokens)),
		})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].keyword != cands[j].keyword {
			return cands[i].keyword > cands[j].keyword
		}
		return cands[i].pos < cands[j].pos
	})
	if len(cands) > maxCands {
		cands = cands[:maxCands]
	}
	return cands, false
}

// fuse computes the weighted final score. A degraded request ranks purely by
// keyword score.
func fuse(cands []candidate, wKeyword, wSemantic float64, degraded bool) {
	for i := range cands {
		if degraded {
			cands[i].fused = cands[i].keyword
			continue
		}
		cands[i].fused = wKeyword*cands[i].keyword + wSemantic*cands[i].semantic
	}
}

// orderCandidates sorts by fused score descending; ties break by catalog
// insertion order, then listing id, for fully deterministic output.
func orderCandidates(gen *Generation, cands []candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].fused != cands[j].fused {
			return cands[i].fused > cands[j].fused
		}
		if cands[i].pos != cands[j].pos {
			return cands[i].pos < cands[j].pos
		}
		return gen.Listings[cands[i].pos].ID < gen.Listings[cands[j].pos].ID
	})
}

// paginate slices the fully ranked candidate list. Ranking always happens
// over the whole candidate set first.
func paginate(cands []candidate, offset, limit int) []candidate {
	if offset >= len(cands) {
		return nil
	}
	end := offset + limit
	if end > len(cands) {
		end = len(cands)
	}
	return cands[offset:end]
}

// matchType labels a result by which component scores cleared the epsilon.
func (e *Engine) matchType(c candidate, degraded bool) MatchType {
	if degraded {
		return MatchKeywordDegraded
	}
	kw := c.keyword > e.cfg.MatchEpsilon
	sem := c.semantic > e.cfg.MatchEpsilon
	switch {
	case kw && sem:
		return MatchHybrid
	case kw:
		return MatchKeyword
	default:
		return MatchSemantic
	}
}

// cosine returns the cosine similarity of two vectors, 0 when either has
// zero magnitude or lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
