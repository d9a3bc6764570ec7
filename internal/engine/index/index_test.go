package index

import (
	"fmt"
	"reflect"
	"testing"
)

func TestBuildAndPostings(t *testing.T) {
	docs := [][]string{
		{"laptop", "stand"},
		{"desk", "lamp"},
		{"laptop", "mouse"},
	}
	ix := Build(docs)

	if got := ix.Docs(); got != 3 {
		t.Errorf("Docs() = %d, want 3", got)
	}
	if got := ix.Terms(); got != 5 {
		t.Errorf("Terms() = %d, want 5", got)
	}
	if got, want := ix.Postings("laptop"), []int32{0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Postings(laptop) = %v, want %v", got, want)
	}
	if got, want := ix.Postings("lamp"), []int32{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Postings(lamp) = %v, want %v", got, want)
	}
}

func TestPostingsMissingToken(t *testing.T) {
	ix := Build([][]string{{"laptop"}})
	if got := ix.Postings("zzz"); got != nil {
		t.Errorf("Postings(zzz) = %v, want nil", got)
	}
}

func TestBuildEmpty(t *testing.T) {
	ix := Build(nil)
	if got := ix.Docs(); got != 0 {
		t.Errorf("Docs() = %d, want 0", got)
	}
	if got := ix.Terms(); got != 0 {
		t.Errorf("Terms() = %d, want 0", got)
	}
}

func TestPostingsSortedByConstruction(t *testing.T) {
	docs := make([][]string, 100)
	for i := range docs {
		docs[i] = []string{"common"}
	}
	ix := Build(docs)

	postings := ix.Postings("common")
	if len(postings) != 100 {
		t.Fatalf("len(postings) = %d, want 100", len(postings))
	}
	for i := 1; i < len(postings); i++ {
		if postings[i-1] >= postings[i] {
			t.Fatalf("postings not strictly ascending at %d: %v >= %v", i, postings[i-1], postings[i])
		}
	}
}

func BenchmarkBuild(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, n := range sizes {
		docs := make([][]string, n)
		for i := range docs {
			docs[i] = []string{"laptop", "stand", fmt.Sprintf("tag%d", i%50)}
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Build(docs)
			}
		})
	}
}

func BenchmarkPostings(b *testing.B) {
	docs := make([][]string, 10000)
	for i := range docs {
		docs[i] = []string{"laptop", "stand", "desk"}
	}
	ix := Build(docs)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ix.Postings("laptop")
	}
}

func BenchmarkPostingsParallel(b *testing.B) {
	docs := make([][]string, 10000)
	for i := range docs {
		docs[i] = []string{"laptop", "stand", "desk"}
	}
	ix := Build(docs)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = ix.Postings("stand")
		}
	})
}
