package trie

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTrie(terms map[string]int64, topN int) *Trie {
	t := New()
	for term, freq := range terms {
		t.Insert(term, freq)
	}
	t.Finalize(topN)
	return t
}

func TestSuggestByPrefix(t *testing.T) {
	tr := buildTrie(map[string]int64{
		"laptop": 10,
		"lamp":   5,
		"lap":    2,
		"desk":   7,
	}, 10)

	assert.Equal(t, []string{"laptop", "lap"}, tr.Suggest("lap", 10))
	assert.Equal(t, []string{"laptop", "lamp", "lap"}, tr.Suggest("la", 10))
	assert.Equal(t, []string{"desk"}, tr.Suggest("d", 10))
}

func TestSuggestMissingPrefix(t *testing.T) {
	tr := buildTrie(map[string]int64{"laptop": 1}, 10)
	assert.Nil(t, tr.Suggest("zzz", 10))
	assert.Nil(t, tr.Suggest("laptops", 10))
}

func TestSuggestFrequencyThenLexOrder(t *testing.T) {
	tr := buildTrie(map[string]int64{
		"stand":    3,
		"stapler":  3,
		"star":     9,
		"standard": 1,
	}, 10)

	got := tr.Suggest("sta", 10)
	require.Equal(t, []string{"star", "stand", "stapler", "standard"}, got)
}

func TestSuggestLimit(t *testing.T) {
	tr := buildTrie(map[string]int64{
		"alpha": 5, "beta": 4, "gamma": 3, "delta": 2, "epsilon": 1,
	}, 10)

	got := tr.Suggest("", 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got)

	assert.Nil(t, tr.Suggest("al", 0))
}

func TestSuggestEmptyPrefixUsesTopTerms(t *testing.T) {
	tr := buildTrie(map[string]int64{
		"laptop": 10, "desk": 8, "lamp": 6, "mouse": 4,
	}, 2)

	// Finalize capped the global list at 2.
	assert.Equal(t, []string{"laptop", "desk"}, tr.Suggest("", 10))
}

func TestInsertAccumulatesFrequency(t *testing.T) {
	tr := New()
	tr.Insert("laptop", 3)
	tr.Insert("laptop", 4)
	tr.Insert("lamp", 5)
	tr.Finalize(10)

	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, []string{"laptop", "lamp"}, tr.Suggest("la", 10))

	top := tr.Top()
	require.Len(t, top, 2)
	assert.Equal(t, Term{Text: "laptop", Freq: 7}, top[0])
}

func TestInsertNormalises(t *testing.T) {
	tr := New()
	tr.Insert("  Laptop ", 1)
	tr.Insert("LAPTOP", 1)
	tr.Insert("", 1)
	tr.Insert("   ", 1)
	tr.Finalize(10)

	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, []string{"laptop"}, tr.Suggest("Lap", 10))
}

func TestPrefixThatIsAlsoTerm(t *testing.T) {
	tr := buildTrie(map[string]int64{"lap": 1, "laptop": 2}, 10)
	assert.Equal(t, []string{"laptop", "lap"}, tr.Suggest("lap", 10))
}

func TestUnicodeTerms(t *testing.T) {
	tr := buildTrie(map[string]int64{"café": 2, "cable": 1}, 10)
	assert.Equal(t, []string{"café"}, tr.Suggest("caf", 10))
	assert.Equal(t, []string{"café", "cable"}, tr.Suggest("ca", 10))
}

func TestVisitCapBoundsTraversal(t *testing.T) {
	tr := New()
	// Far more nodes under one prefix than the traversal may visit.
	for i := 0; i < 2*maxVisit; i++ {
		tr.Insert(fmt.Sprintf("prefix%06d", i), int64(i))
	}
	tr.Finalize(10)

	got := tr.Suggest("prefix", 10)
	// Bounded, non-empty, and still well-formed.
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 10)
	for _, s := range got {
		assert.Contains(t, s, "prefix")
	}
}

func BenchmarkInsert(b *testing.B) {
	terms := make([]string, 10000)
	for i := range terms {
		terms[i] = fmt.Sprintf("term%05d", i)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr := New()
		for j, term := range terms {
			tr.Insert(term, int64(j%100))
		}
	}
}

func BenchmarkSuggest(b *testing.B) {
	tr := New()
	for i := 0; i < 10000; i++ {
		tr.Insert(fmt.Sprintf("term%05d", i), int64(i%100))
	}
	tr.Finalize(100)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tr.Suggest("term0", 10)
	}
}

func BenchmarkSuggestParallel(b *testing.B) {
	tr := New()
	for i := 0; i < 10000; i++ {
		tr.Insert(fmt.Sprintf("term%05d", i), int64(i%100))
	}
	tr.Finalize(100)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tr.Suggest("term1", 10)
		}
	})
}
