package textmatch

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// PhoneticKey returns the primary Double Metaphone code of a single word: an
// uppercase consonant skeleton of at most four characters where "0" stands
// for "th". Words that sound alike ("Smith"/"Smyth", "Philip"/"Filip")
// usually share a key. A word with nothing to encode yields "".
func PhoneticKey(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	primary, _ := matchr.DoubleMetaphone(word)
	return primary
}

// PhoneticKeys returns one key per token of text, skipping tokens without a key
func PhoneticKeys(text string) []string {
	tokens := Tokenize(text)
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if k := PhoneticKey(t); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// PhoneticString is PhoneticKeys joined by spaces, the form stored on indexed records.
func PhoneticString(text string) string {
	return strings.Join(PhoneticKeys(text), " ")
}
