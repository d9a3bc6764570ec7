// Package engine implements the hybrid search core: immutable index
// generations, the rebuild lifecycle with atomic publish, keyword
// prefiltering, semantic re-ranking, score fusion, and the autocomplete
// suggester.
package engine

import (
	"github.com/meridian-labs/catalog-search/internal/catalog"
	"github.com/meridian-labs/catalog-search/internal/engine/index"
	"github.com/meridian-labs/catalog-search/internal/engine/tokenizer"
	"github.com/meridian-labs/catalog-search/internal/engine/trie"
)

const (
	// titleBoost multiplies the suggester frequency of tokens that appear
	// in a listing title.
	titleBoost = 3
	// titlePhraseWeight is the suggester frequency added for the whole
	// lowercased title of each listing.
	titlePhraseWeight = 10
	// minSuggestTermLen keeps one- and two-character fragments out of the
	// suggester.
	minSuggestTermLen = 3
	// topTermsN is the size of the global top-terms list served for empty
	// prefixes.
	topTermsN = 100
)

// Generation is one immutable, fully-built snapshot of the search index.
// Row i of Vectors always corresponds to Listings[i]; nothing inside a
// Generation is ever mutated after Build returns, so readers need no locks.
type Generation struct {
	ID       uint64
	Listings []catalog.Listing
	Vectors  [][]float32
	Keyword  *index.Index
	Suggest  *trie.Trie
}

// buildGeneration assembles a Generation from an already-validated catalog
// snapshot and its embedding matrix. The caller owns id assignment and
// publishing.
func buildGeneration(id uint64, listings []catalog.Listing, vectors [][]float32) *Generation {
	docs := make([][]string, len(listings))
	for i, l := range listings {
		docs[i] = tokenizer.TokenizeUnique(l.SearchableText())
	}

	return &Generation{
		ID:       id,
		Listings: listings,
		Vectors:  vectors,
		Keyword:  index.Build(docs),
		Suggest:  buildSuggester(listings),
	}
}

// buildSuggester derives the autocomplete trie from catalog terms. Token
// frequency is its occurrence count across the catalog, with title tokens
// boosted and whole titles inserted as phrase terms.
func buildSuggester(listings []catalog.Listing) *trie.Trie {
	t := trie.New()
	for _, l := range listings {
		for _, tok := range tokenizer.Tokenize(l.Title) {
			if len(tok) < minSuggestTermLen {
				continue
			}
			t.Insert(tok, titleBoost)
		}
		t.Insert(l.Title, titlePhraseWeight)

		rest := l.Description + " " + l.Category
		for _, tok := range tokenizer.Tokenize(rest) {
			if len(tok) < minSuggestTermLen {
				continue
			}
			t.Insert(tok, 1)
		}
		for _, tag := range l.Tags {
			for _, tok := range tokenizer.Tokenize(tag) {
				if len(tok) < minSuggestTermLen {
					continue
				}
				t.Insert(tok, 1)
			}
		}
	}
	t.Finalize(topTermsN)
	return t
}
