// Package tokenizer provides the text normalisation shared by index builds
// and the query path. It lower-cases input and splits on non-alphanumeric
// boundaries, discarding single-character fragments.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into a slice of lowercased terms with punctuation
// stripped. Indexing and querying must use the same normalisation or keyword
// lookups silently miss.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// TokenizeUnique returns the deduplicated token sequence in first-seen order.
// The keyword filter scores by distinct query tokens, so repeated words must
// not inflate the denominator.
func TokenizeUnique(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) <= 1 {
		return tokens
	}
	seen := make(map[string]struct{}, len(tokens))
	unique := tokens[:0]
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		unique = append(unique, tok)
	}
	return unique
}
