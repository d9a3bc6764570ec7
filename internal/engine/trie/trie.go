// Package trie implements the frequency-ranked prefix suggester. Nodes live
// in a flat arena addressed by index rather than as a pointer graph, with a
// small sorted edge slice per node; discarding the arena frees the whole
// structure when a generation is replaced.
package trie

import (
	"sort"
	"strings"
)

// maxVisit bounds the number of nodes one Suggest call may touch. Hitting
// the cap yields valid but possibly incomplete results on pathological
// subtrees.
const maxVisit = 1000

// Term is a suggestible term with its cumulative frequency.
type Term struct {
	Text string
	Freq int64
}

type edge struct {
	ch    rune
	child int32
}

type node struct {
	edges    []edge // sorted by ch
	terminal bool
	freq     int64
}

// Trie is the prefix suggester for one generation. It is mutable during the
// build phase (Insert) and must be sealed with Finalize before serving;
// after that it is read-only and safe for concurrent use.
type Trie struct {
	nodes []node
	terms int
	top   []Term
}

// New returns an empty Trie containing only the root node.
func New() *Trie {
	return &Trie{nodes: make([]node, 1, 256)}
}

// Insert walks or creates one node per character of the lowercased term and
// adds freq to the terminal node's cumulative count. Re-inserting the same
// term accumulates, never resets.
func (t *Trie) Insert(term string, freq int64) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return
	}
	cur := int32(0)
	for _, ch := range term {
		next, ok := t.findEdge(cur, ch)
		if !ok {
			next = t.addNode(cur, ch)
		}
		cur = next
	}
	if !t.nodes[cur].terminal {
		t.nodes[cur].terminal = true
		t.terms++
	}
	t.nodes[cur].freq += freq
}

// Finalize computes the global top-N term list used for empty-prefix
// suggestions. It must be called once, after the last Insert.
func (t *Trie) Finalize(topN int) {
	all := make([]Term, 0, t.terms)
	t.collect(0, "", len(t.nodes), &all)
	sortTerms(all)
	if len(all) > topN {
		all = all[:topN]
	}
	t.top = all
}

// Suggest returns up to limit terms starting with prefix, most frequent
// first, ties broken lexicographically. An empty prefix returns the global
// top terms; a prefix with no matching path returns nil.
func (t *Trie) Suggest(prefix string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		n := min(limit, len(t.top))
		out := make([]string, n)
		for i := 0; i < n; i++ {
			out[i] = t.top[i].Text
		}
		return out
	}

	cur := int32(0)
	for _, ch := range prefix {
		next, ok := t.findEdge(cur, ch)
		if !ok {
			return nil
		}
		cur = next
	}

	collected := make([]Term, 0, limit*4)
	t.collect(cur, prefix, maxVisit, &collected)
	sortTerms(collected)
	if len(collected) > limit {
		collected = collected[:limit]
	}
	out := make([]string, len(collected))
	for i, term := range collected {
		out[i] = term.Text
	}
	return out
}

// Len returns the number of distinct terms inserted.
func (t *Trie) Len() int {
	return t.terms
}

// Top returns the precomputed global top terms (at most the Finalize topN).
func (t *Trie) Top() []Term {
	return t.top
}

// collect performs an iterative DFS from root, visiting at most visitCap
// nodes and appending every terminal it reaches to out. Children are pushed
// in reverse edge order so the traversal runs lexicographically.
func (t *Trie) collect(root int32, rootText string, visitCap int, out *[]Term) {
	type frame struct {
		idx  int32
		text string
	}
	stack := []frame{{root, rootText}}
	visited := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++
		if visited > visitCap {
			return
		}
		n := &t.nodes[f.idx]
		if n.terminal {
			*out = append(*out, Term{Text: f.text, Freq: n.freq})
		}
		for i := len(n.edges) - 1; i >= 0; i-- {
			e := n.edges[i]
			stack = append(stack, frame{e.child, f.text + string(e.ch)})
		}
	}
}

// findEdge binary-searches the sorted edge slice of node idx.
func (t *Trie) findEdge(idx int32, ch rune) (int32, bool) {
	edges := t.nodes[idx].edges
	i := sort.Search(len(edges), func(i int) bool { return edges[i].ch >= ch })
	if i < len(edges) && edges[i].ch == ch {
		return edges[i].child, true
	}
	return 0, false
}

// addNode appends a fresh node to the arena and links it from parent,
// keeping the parent's edges sorted.
func (t *Trie) addNode(parent int32, ch rune) int32 {
	child := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{})
	edges := t.nodes[parent].edges
	i := sort.Search(len(edges), func(i int) bool { return edges[i].ch >= ch })
	edges = append(edges, edge{})
	copy(edges[i+1:], edges[i:])
	edges[i] = edge{ch: ch, child: child}
	t.nodes[parent].edges = edges
	return child
}

func sortTerms(terms []Term) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Freq != terms[j].Freq {
			return terms[i].Freq > terms[j].Freq
		}
		return terms[i].Text < terms[j].Text
	})
}
