package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "basic sentence",
			text: "Ergonomic Laptop Stand",
			want: []string{"ergonomic", "laptop", "stand"},
		},
		{
			name: "punctuation stripped",
			text: "wireless, noise-cancelling (over-ear) headset!",
			want: []string{"wireless", "noise", "cancelling", "over", "ear", "headset"},
		},
		{
			name: "single characters dropped",
			text: "a 4K monitor & a USB-C hub",
			want: []string{"4k", "monitor", "usb", "hub"},
		},
		{
			name: "digits kept",
			text: "iPhone 15 case",
			want: []string{"iphone", "15", "case"},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
		{
			name: "only punctuation",
			text: "!!! --- ???",
			want: []string{},
		},
		{
			name: "unicode letters",
			text: "Café Crème Brûlée",
			want: []string{"café", "crème", "brûlée"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizeUnique(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "duplicates removed",
			text: "laptop stand for laptop users",
			want: []string{"laptop", "stand", "for", "users"},
		},
		{
			name: "first seen order kept",
			text: "desk lamp desk LAMP Desk",
			want: []string{"desk", "lamp"},
		},
		{
			name: "no duplicates unchanged",
			text: "wireless mouse",
			want: []string{"wireless", "mouse"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenizeUnique(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TokenizeUnique(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

var sampleTexts = map[string]string{
	"short": "Ergonomic laptop stand with adjustable height",
	"medium": `Hybrid search combines a fast keyword prefilter with a semantic
        reranking stage. The keyword pass narrows the catalog to a bounded
        candidate set, then cosine similarity over the embedding vectors
        reorders the survivors so near-synonyms still surface.`,
	"long": strings.Repeat(`Catalog search services normalise listing titles,
        descriptions, categories, and tags into lowercase terms before
        indexing. The same normalisation runs on every query so postings
        lookups stay consistent. Autocomplete reuses the indexed vocabulary
        through a frequency-ranked prefix trie. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text)
		}
	})
}
