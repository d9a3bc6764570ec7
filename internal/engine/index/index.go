// Package index implements the immutable inverted keyword index built once
// per generation: token → sorted catalog positions.
package index

// Index maps normalised tokens to the catalog positions whose listings
// contain them. It is built in one pass and never mutated afterwards;
// rebuilding the catalog produces a brand-new Index.
type Index struct {
	postings map[string][]int32
	docs     int
}

// Build constructs the index from per-listing token sets. docs[i] holds the
// distinct tokens of the listing at catalog position i, so every posting
// list ends up sorted ascending by construction and free of duplicates.
func Build(docs [][]string) *Index {
	ix := &Index{
		postings: make(map[string][]int32),
		docs:     len(docs),
	}
	for pos, tokens := range docs {
		for _, tok := range tokens {
			ix.postings[tok] = append(ix.postings[tok], int32(pos))
		}
	}
	return ix
}

// Postings returns the catalog positions for token, or nil when the token is
// not indexed. Callers must not modify the returned slice.
func (ix *Index) Postings(token string) []int32 {
	return ix.postings[token]
}

// Terms returns the number of distinct tokens in the index.
func (ix *Index) Terms() int {
	return len(ix.postings)
}

// Docs returns the number of listings the index was built over.
func (ix *Index) Docs() int {
	return ix.docs
}
