package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Laravel", "laravel"},
		{"trims and collapses", "  Laravel \t  Testing \n", "laravel testing"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"keeps punctuation", "C++ & Go!", "c++ & go!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"punctuation boundaries", "Hello, World! Go-lang 2024", []string{"hello", "world", "go", "lang", "2024"}},
		{"empty", "", []string{}},
		{"only separators", "--- ,,, !!!", []string{}},
		{"unicode letters", "Café Zürich", []string{"café", "zürich"}},
		{"keeps duplicates", "go go", []string{"go", "go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			assert.ElementsMatch(t, tt.want, got)
			assert.Len(t, got, len(tt.want))
		})
	}
}

func TestTokenize_PreservesOrder(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, Tokenize("B a, C"))
}

func TestUniqueTokens(t *testing.T) {
	assert.Equal(t, []string{"go", "is", "fun"}, UniqueTokens("Go is fun, go GO"))
	assert.Empty(t, UniqueTokens(""))
}
