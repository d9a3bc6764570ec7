package engine

import (
	"errors"

	"github.com/meridian-labs/catalog-search/internal/catalog"
)

var errMissingVector = errors.New("provider returned no vector for query")

// MatchType labels which signals contributed to a result's ranking.
type MatchType string

const (
	MatchHybrid   MatchType = "hybrid"
	MatchKeyword  MatchType = "keyword"
	MatchSemantic MatchType = "semantic"
	// MatchKeywordDegraded marks results ranked without a semantic
	// component because the provider failed at query time.
	MatchKeywordDegraded MatchType = "keyword-degraded"
)

// SearchResult is one ranked listing with its component scores, all in [0,1].
type SearchResult struct {
	Listing       catalog.Listing `json:"listing"`
	KeywordScore  float64         `json:"keyword_score"`
	SemanticScore float64         `json:"semantic_score"`
	FusedScore    float64         `json:"fused_score"`
	MatchType     MatchType       `json:"match_type"`
}

// SearchResponse is the full outcome of one search call.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	Total        int            `json:"total"`
	TookMs       int64          `json:"took_ms"`
	GenerationID uint64         `json:"generation_id"`
	Degraded     bool           `json:"degraded,omitempty"`
}
