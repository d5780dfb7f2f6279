// Package textmatch holds the pure text functions of the search core:
// normalization, tokenization, phonetic keys and similarity scoring.
package textmatch

import (
	"strings"
	"unicode"
)

// Normalize lowercases text, trims it and collapses internal whitespace runs to one space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Tokenize splits text into lowercase words on every rune that is neither a
// letter nor a digit. Empty tokens are discarded and order is kept.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), isSeparator)
}

// UniqueTokens is Tokenize with duplicates removed, keeping first occurrences.
func UniqueTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
